package foreign

import (
	"testing"

	"github.com/chances/wrenc/runtime/object"
	"github.com/chances/wrenc/runtime/slab"
)

func newForeignClass(t *testing.T) *object.ObjClass {
	t.Helper()
	objectClass, rootClass := object.NewObjectClass()
	cls := object.NewClass("Point", objectClass, rootClass)
	cls.IsForeign = true
	return cls
}

func TestSetSlotNewForeignThenGetSlotForeignRoundTrips(t *testing.T) {
	alloc := slab.NewAllocator()
	defer alloc.Close()

	cls := newForeignClass(t)
	vm := NewVM(alloc)
	vm.EnsureSlots(2)
	if err := vm.SetSlotValue(1, object.ClassValue(cls)); err != nil {
		t.Fatalf("SetSlotValue: %v", err)
	}

	allocated, err := vm.SetSlotNewForeign(0, 1, 42.0)
	if err != nil {
		t.Fatalf("SetSlotNewForeign: %v", err)
	}

	got, err := vm.GetSlotForeign(0)
	if err != nil {
		t.Fatalf("GetSlotForeign: %v", err)
	}

	// Scenario: "the returned pointer equals the trailing-field address
	// of the managed object" — here, the handle's stable slot identity.
	if got.Addr() != allocated.Addr() {
		t.Fatalf("expected GetSlotForeign to resolve back to the same address, got %#x want %#x", got.Addr(), allocated.Addr())
	}
	if got.ForeignData().(float64) != 42.0 {
		t.Fatalf("expected native data 42.0, got %v", got.ForeignData())
	}
}

func TestGetSlotForeignRejectsNonForeignClass(t *testing.T) {
	alloc := slab.NewAllocator()
	defer alloc.Close()

	objectClass, rootClass := object.NewObjectClass()
	cls := object.NewClass("Plain", objectClass, rootClass)

	vm := NewVM(alloc)
	vm.EnsureSlots(1)
	h, err := alloc.Allocate(cls, cls.TotalFields())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	vm.slots[0] = h.Value()

	if _, err := vm.GetSlotForeign(0); err == nil {
		t.Fatal("expected an error reading foreign data from a non-foreign instance")
	}
}

func TestGetSetSlotDoubleRoundTrip(t *testing.T) {
	vm := NewVM(slab.NewAllocator())
	vm.EnsureSlots(1)
	if err := vm.SetSlotDouble(0, 3.5); err != nil {
		t.Fatalf("SetSlotDouble: %v", err)
	}
	got, err := vm.GetSlotDouble(0)
	if err != nil {
		t.Fatalf("GetSlotDouble: %v", err)
	}
	if got != 3.5 {
		t.Fatalf("expected 3.5, got %v", got)
	}
}

func TestBinderPrefersBuiltinOverEmbedder(t *testing.T) {
	b := NewBinder()
	called := ""
	b.RegisterMethod("random", "Random", false, "float()", func(vm *VM) {
		called = "builtin"
		vm.SetSlotDouble(0, 1)
	})
	b.SetEmbedderMethodBinder(func(module, class string, isStatic bool, signature string) (MethodFunc, bool) {
		called = "embedder"
		return func(vm *VM) { vm.SetSlotDouble(0, 2) }, true
	})

	fn, err := b.LookupMethod("random", "Random", false, "float()")
	if err != nil {
		t.Fatalf("LookupMethod: %v", err)
	}
	vm := NewVM(slab.NewAllocator())
	vm.EnsureSlots(1)
	fn(vm)

	if called != "builtin" {
		t.Fatalf("expected the built-in to win, got %q", called)
	}
	got, _ := vm.GetSlotDouble(0)
	if got != 1 {
		t.Fatalf("expected the built-in's result 1, got %v", got)
	}
}

func TestBinderFallsBackToEmbedderWhenNoBuiltinMatches(t *testing.T) {
	b := NewBinder()
	b.SetEmbedderMethodBinder(func(module, class string, isStatic bool, signature string) (MethodFunc, bool) {
		if module == "main" && class == "Foo" && signature == "bar()" {
			return func(vm *VM) { vm.SetSlotDouble(0, 9) }, true
		}
		return nil, false
	})

	fn, err := b.LookupMethod("main", "Foo", false, "bar()")
	if err != nil {
		t.Fatalf("LookupMethod: %v", err)
	}
	vm := NewVM(slab.NewAllocator())
	vm.EnsureSlots(1)
	fn(vm)
	got, _ := vm.GetSlotDouble(0)
	if got != 9 {
		t.Fatalf("expected 9, got %v", got)
	}
}

func TestLookupMethodErrorsWhenNothingMatches(t *testing.T) {
	b := NewBinder()
	if _, err := b.LookupMethod("main", "Foo", false, "bar()"); err == nil {
		t.Fatal("expected an error when no built-in or embedder binder matches")
	}
}

func TestMethodCacheResolvesOnlyOnce(t *testing.T) {
	resolveCount := 0
	cache := NewMethodCache(func() (MethodFunc, error) {
		resolveCount++
		return func(vm *VM) { vm.SetSlotDouble(0, 5) }, nil
	})

	vm := NewVM(slab.NewAllocator())
	vm.EnsureSlots(1)

	for i := 0; i < 3; i++ {
		got, err := cache.Call(vm)
		if err != nil {
			t.Fatalf("Call #%d: %v", i, err)
		}
		if got.Num() != 5 {
			t.Fatalf("Call #%d: expected 5, got %v", i, got.Num())
		}
	}
	if resolveCount != 1 {
		t.Fatalf("expected the resolver to run exactly once, ran %d times", resolveCount)
	}
}
