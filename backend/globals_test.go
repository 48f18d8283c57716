package backend

import "testing"

func TestNewGlobalsTableSeedsReservedEntries(t *testing.T) {
	tbl := NewGlobalsTable("main", 0xdead, 0xbeef)

	if v, ok := tbl.Lookup(GlobalInitFunc); !ok || v != 0xdead {
		t.Fatalf("expected init_func=0xdead, got %v ok=%v", v, ok)
	}
	if _, ok := tbl.Lookup(GlobalModuleName); !ok {
		t.Fatal("expected module_name entry to exist")
	}
	if v, ok := tbl.Lookup(GlobalStackMap); !ok || v != 0xbeef {
		t.Fatalf("expected stack_map=0xbeef, got %v ok=%v", v, ok)
	}

	entries := tbl.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected exactly the 3 reserved entries, got %d", len(entries))
	}
}

func TestDefineRejectsDuplicateNames(t *testing.T) {
	tbl := NewGlobalsTable("main", 0, 0)
	if err := tbl.Define("Foo", 1); err != nil {
		t.Fatalf("first Define: %v", err)
	}
	if err := tbl.Define("Foo", 2); err == nil {
		t.Fatal("expected redefining Foo to fail")
	}
	if err := tbl.Define(GlobalInitFunc, 99); err == nil {
		t.Fatal("expected redefining a reserved entry to fail")
	}
}

func TestDefineThenLookup(t *testing.T) {
	tbl := NewGlobalsTable("main", 0, 0)
	if err := tbl.Define("Counter", 42); err != nil {
		t.Fatalf("Define: %v", err)
	}
	v, ok := tbl.Lookup("Counter")
	if !ok || v != 42 {
		t.Fatalf("Lookup(Counter) = %v, %v; want 42, true", v, ok)
	}
	if _, ok := tbl.Lookup("Missing"); ok {
		t.Fatal("expected Lookup of an undefined name to fail")
	}
}
