// Package object implements the runtime's heap object model (spec §4.J):
// the Obj header every heap value carries, the ObjClass/metaclass pair
// that represents a Wren class at runtime, and virtual/super method
// dispatch over a per-class signature table. Grounded on
// original_source/rtsrc/Obj.h, ObjClass.{h,cpp} and CoreClasses.{h,cpp}.
package object

// Obj is the header every heap-allocated object starts with: a pointer to
// its class (used for dispatch and `is`/type-check operations) and the
// tracing GC's mark color (spec glossary: "Obj: in-memory header of every
// heap object; carries class pointer and GC word"). ObjClass embeds Obj
// as its first field, as original_source/rtsrc/Obj.h's single
// `ObjClass *type` member is the first thing laid out in every subclass.
// Field offsets are counted in slots, not bytes (see
// [ObjClass.FieldOffset]), so no byte layout depends on this header.
type Obj struct {
	Class *ObjClass

	// gcColor is a mark color in the same 0/1/2 scheme as the GC's
	// "reachable" color (spec §4.L); it starts at the zero value, which
	// never matches either toggled color. Package gc marks slab-allocated
	// objects through slab.Handle's own mark word, not through this field.
	gcColor uint8
}

// GCColor returns this object's current mark color.
func (o *Obj) GCColor() uint8 { return o.gcColor }

// SetGCColor sets this object's mark color (spec §4.L step 3).
func (o *Obj) SetGCColor(c uint8) { o.gcColor = c }
