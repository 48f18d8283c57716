package backend

import "testing"

func TestBuildDecodeRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.AddFunction(FunctionEntry{
		Name:       "fib",
		StackSize:  32,
		Statepoints: []StatepointEntry{
			{InstructionOffset: 16, LiveSlots: []uint8{1, 3}},
			{InstructionOffset: 48, LiveSlots: []uint8{2}},
		},
	})
	b.AddFunction(FunctionEntry{
		Name:      "main",
		StackSize: 8,
	})

	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(data)%8 != 0 {
		t.Fatalf("expected 8-byte-aligned output, got length %d", len(data))
	}

	sm, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(sm.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(sm.Functions))
	}
	if sm.Functions[0].Name != "fib" || sm.Functions[0].StackSize != 32 {
		t.Fatalf("unexpected first function: %+v", sm.Functions[0])
	}
	if len(sm.Functions[0].Statepoints) != 2 {
		t.Fatalf("expected 2 statepoints for fib, got %d", len(sm.Functions[0].Statepoints))
	}
	if sm.Functions[1].Name != "main" || len(sm.Functions[1].Statepoints) != 0 {
		t.Fatalf("unexpected second function: %+v", sm.Functions[1])
	}
}

func TestLookupFindsExactStatepoint(t *testing.T) {
	b := NewBuilder()
	b.AddFunction(FunctionEntry{
		Name: "f",
		Statepoints: []StatepointEntry{
			{InstructionOffset: 10, LiveSlots: []uint8{5}},
			{InstructionOffset: 20, LiveSlots: []uint8{6, 7}},
		},
	})

	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sm, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	const base = 0x1000
	if err := sm.ResolveAddresses(map[string]uint64{"f": base}); err != nil {
		t.Fatalf("ResolveAddresses: %v", err)
	}

	offsets, ok := sm.Lookup(base + 20)
	if !ok {
		t.Fatal("expected a match at base+20")
	}
	if len(offsets) != 2 || offsets[0] != 6 || offsets[1] != 7 {
		t.Fatalf("unexpected offsets: %v", offsets)
	}

	if _, ok := sm.Lookup(base + 15); ok {
		t.Fatal("expected no match at an address with no recorded statepoint")
	}
}

func TestResolveAddressesRejectsUnknownFunction(t *testing.T) {
	b := NewBuilder()
	b.AddFunction(FunctionEntry{Name: "f"})
	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sm, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := sm.ResolveAddresses(map[string]uint64{}); err == nil {
		t.Fatal("expected an error when no address is supplied for function f")
	}
}
