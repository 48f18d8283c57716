package object

import (
	"testing"
	"unsafe"

	"github.com/chances/wrenc/runtime/signature"
	"github.com/chances/wrenc/runtime/value"
)

func ptrOf(o *Obj) unsafe.Pointer { return unsafe.Pointer(o) }

func TestNewObjectClassWiresMetaclassDiagram(t *testing.T) {
	obj, root := NewObjectClass()

	if obj.ParentClass != nil {
		t.Fatal("Object must have no parent class")
	}
	if obj.MetaClass.Name != "Object" || !obj.MetaClass.IsMetaClass {
		t.Fatal("Object's metaclass must be named Object and marked as a metaclass")
	}
	if obj.MetaClass.ParentClass != root {
		t.Fatal("Object's metaclass must extend the root Class")
	}
	if root.MetaClass != nil {
		t.Fatal("the root Class has no metaclass of its own")
	}
	if root.ParentClass != obj {
		t.Fatal("the root Class extends Object")
	}
}

func TestExtendsWalksParentChain(t *testing.T) {
	obj, root := NewObjectClass()
	a := NewClass("A", obj, root)
	b := NewClass("B", a, root)

	if !b.Extends(a) || !b.Extends(obj) {
		t.Fatal("B should extend both A and Object")
	}
	if a.Extends(b) {
		t.Fatal("A must not extend its own subclass B")
	}
}

func TestFieldOffsetAccountsForInheritance(t *testing.T) {
	obj, root := NewObjectClass()
	a := NewClass("A", obj, root)
	a.Fields = []string{"x", "y"}
	b := NewClass("B", a, root)
	b.Fields = []string{"z"}

	if got := a.FieldOffset(); got != 0 {
		t.Fatalf("A.FieldOffset() = %d, want 0", got)
	}
	if got := b.FieldOffset(); got != 2 {
		t.Fatalf("B.FieldOffset() = %d, want 2", got)
	}
	if got := b.TotalFields(); got != 3 {
		t.Fatalf("B.TotalFields() = %d, want 3", got)
	}
}

func TestVirtualMethodLookupWalksAncestors(t *testing.T) {
	obj, root := NewObjectClass()
	a := NewClass("A", obj, root)
	b := NewClass("B", a, root)

	sig := &signature.Signature{Name: "foo", Kind: signature.Method, Arity: 0}
	called := false
	a.AddMethod(sig, func(receiver value.Value, args []value.Value) value.Value {
		called = true
		return value.Null
	})

	inst := &Obj{Class: b}
	reg := &Registry{}
	receiver := value.EncodeObjectPtr(ptrOf(inst))

	fn, err := reg.VirtualMethodLookup(receiver, sig)
	if err != nil {
		t.Fatalf("VirtualMethodLookup: %v", err)
	}
	fn(receiver, nil)
	if !called {
		t.Fatal("expected A's foo to be found by walking up from B")
	}
}

func TestVirtualMethodLookupMissingMethodErrors(t *testing.T) {
	obj, root := NewObjectClass()
	_ = root
	inst := &Obj{Class: obj}
	reg := &Registry{}
	receiver := value.EncodeObjectPtr(ptrOf(inst))

	sig := &signature.Signature{Name: "missing", Kind: signature.Method, Arity: 0}
	if _, err := reg.VirtualMethodLookup(receiver, sig); err == nil {
		t.Fatal("expected an error for an unimplemented method")
	}
}

func TestSuperMethodLookupStartsAboveDeclaringClass(t *testing.T) {
	obj, root := NewObjectClass()
	a := NewClass("A", obj, root)
	b := NewClass("B", a, root)
	c := NewClass("C", b, root)

	sig := &signature.Signature{Name: "foo", Kind: signature.Method, Arity: 0}
	a.AddMethod(sig, func(receiver value.Value, args []value.Value) value.Value { return value.True })
	b.AddMethod(sig, func(receiver value.Value, args []value.Value) value.Value { return value.False })

	reg := &Registry{}
	// C's super.foo(), declared in B, must resolve to A's foo, not B's own.
	fn, err := reg.SuperMethodLookup(b, sig, false)
	if err != nil {
		t.Fatalf("SuperMethodLookup: %v", err)
	}
	inst := &Obj{Class: c}
	if got := fn(value.EncodeObjectPtr(ptrOf(inst)), nil); got != value.True {
		t.Fatalf("expected super dispatch to resolve to A's foo (True), got %v", got)
	}
}
