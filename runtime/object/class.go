package object

import (
	"unsafe"

	"github.com/chances/wrenc/runtime/signature"
	"github.com/chances/wrenc/runtime/value"
)

// ObjClass is the runtime representation of a Wren class, a metaclass, or
// the root `Class` class (spec glossary: "ObjClass / metaclass: runtime
// representation of a class; the metaclass holds static methods").
// Grounded on original_source/rtsrc/ObjClass.h's diagram and field set,
// extended with the method tables that file's filtered excerpt doesn't
// show but spec §4.I/§4.J require (init_class installs methods;
// virtual_method_lookup walks them).
type ObjClass struct {
	Obj

	Name string

	// IsMetaClass is set for a class that either defines a metaclass or is
	// the root `Class` class itself.
	IsMetaClass bool

	// ParentClass is the single-arrow edge in ObjClass.h's diagram: the
	// class this one extends. Nil only for the root `Object` class.
	ParentClass *ObjClass

	// MetaClass is the double-arrow edge: this class's metaclass, holding
	// its static methods. Nil only for the root `Class` class.
	MetaClass *ObjClass

	// IsForeign marks a class whose instances are allocated/finalized by
	// native code (spec §6 MARK_FOREIGN_CLASS).
	IsForeign bool

	// Fields lists the field names declared directly on this class (not
	// counting inherited ones), in declaration order, matching
	// ClassDescription's ADD_FIELD commands.
	Fields []string

	// methods is this class's own instance-method table (spec §4.J
	// virtual_method_lookup); a metaclass's methods table instead holds
	// its class's static methods, matching the C++ model where a static
	// method is just an instance method defined on the metaclass.
	methods *methodTable
}

// MethodFunc stands in for a compiled function pointer: this module has
// no backend codegen, so a native-code call site's callee is represented
// as an invocable Go value instead of a raw address. The backend contract
// (package backend) still specifies the real ABI a machine backend would
// target.
type MethodFunc func(receiver value.Value, args []value.Value) value.Value

// NewObjectClass constructs the three-class root of every class hierarchy
// (the "special three" from original_source/rtsrc/CoreClasses.cpp):
// Object, Object's metaclass, and the root Class (which is its own
// metaclass's parent, closing the diagram in ObjClass.h).
func NewObjectClass() (objectClass, rootClass *ObjClass) {
	obj := &ObjClass{Name: "Object", methods: newMethodTable()}
	objMeta := &ObjClass{Name: "Object", IsMetaClass: true, methods: newMethodTable()}
	root := &ObjClass{Name: "Class", IsMetaClass: true, ParentClass: obj, methods: newMethodTable()}

	obj.MetaClass = objMeta
	objMeta.ParentClass = root
	objMeta.MetaClass = root
	root.MetaClass = nil

	return obj, root
}

// NewClass constructs a new object class derived from parent, with a
// freshly-created metaclass derived from the root Class (mirroring every
// non-Object class's position in the ObjClass.h diagram: its metaclass's
// parent is always the root Class).
func NewClass(name string, parent, rootClass *ObjClass) *ObjClass {
	meta := &ObjClass{Name: name, IsMetaClass: true, ParentClass: rootClass, MetaClass: rootClass, methods: newMethodTable()}
	cls := &ObjClass{Name: name, ParentClass: parent, MetaClass: meta, methods: newMethodTable()}
	return cls
}

// AddMethod installs a method in this class's own method table, keyed by
// its signature's dispatch id (spec §4.I item 5 "init_class ... installs
// methods").
func (c *ObjClass) AddMethod(sig *signature.Signature, fn MethodFunc) {
	c.methods.insert(sig.ID(), fn)
}

// Extends reports whether c is the same class as other, or a descendant
// of it by following ParentClass links — the `is` operator's
// implementation (original_source/rtsrc/ObjNull.cpp's `Is` delegates to
// exactly this walk).
func (c *ObjClass) Extends(other *ObjClass) bool {
	for cur := c; cur != nil; cur = cur.ParentClass {
		if cur == other {
			return true
		}
	}
	return false
}

// FieldOffset returns the number of fields inherited from ancestors,
// i.e. the index at which this class's own Fields begin — the
// "class_get_field_offset" operation (spec §4.J), expressed in field
// slots rather than bytes since this module has no fixed Obj byte layout
// to offset against.
func (c *ObjClass) FieldOffset() int {
	if c.ParentClass == nil {
		return 0
	}
	return c.ParentClass.FieldOffset() + len(c.ParentClass.Fields)
}

// TotalFields is FieldOffset plus this class's own field count: the
// total slot count alloc_obj must reserve.
func (c *ObjClass) TotalFields() int {
	return c.FieldOffset() + len(c.Fields)
}

// ClassValue encodes a reference to c itself as a tagged Value — what a
// bare class name (e.g. `Foo`) evaluates to in source. Classes are
// process-lifetime singletons (spec §9: "global mutable state ... is
// ... retained for process lifetime"), never slab-allocated, so this
// tags c's own Go pointer directly rather than going through the slab
// allocator's identity scheme the way instances do.
func ClassValue(c *ObjClass) value.Value {
	return value.EncodeObjectPtr(unsafe.Pointer(c))
}

// ValueClass recovers the *ObjClass a ClassValue encoded. The caller
// must know v came from ClassValue (an object Value from some other
// source, e.g. a slab-allocated instance, is not a valid argument).
func ValueClass(v value.Value) *ObjClass {
	return (*ObjClass)(v.ObjectPtr())
}
