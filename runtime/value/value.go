// Package value implements the runtime's NaN-tagged Value encoding (spec
// §4.J, §3 "Value"): a single uint64 that is either an unmodified IEEE-754
// double, one of four singleton values, or a tagged heap object pointer.
// This is a direct, field-for-field port of original_source/rtsrc/common.h's
// NAN_MASK/SIGN_MASK/CONTENT_MASK scheme — the comment block there (itself
// lifted from upstream Wren's wren_value.h) is the best explanation of the
// layout, so rather than repeat it badly this package keeps a condensed
// version and defers to the original for the full derivation.
package value

import (
	"fmt"
	"math"
	"unsafe"

	"golang.org/x/text/number"
)

// Value is a NaN-tagged 64-bit value: either an unmodified float64 bit
// pattern, a singleton (null/true/false/undefined), or a pointer to a
// heap-allocated Obj with the sign bit and NaN bits both set.
type Value uint64

const (
	nanMask     uint64 = 0x7ff8000000000000 // quiet-NaN exponent+flag bits
	contentMask uint64 = 0x0007ffffffffffff
	signMask    uint64 = 0x8000000000000000
)

// Singleton values, assigned sequentially starting at the all-NaN-bits,
// sign-clear pattern — matching original_source/rtsrc/common.h's
// NanSingletons enum exactly, since class/metaclass dispatch compares
// these as raw Values.
const (
	Null      Value = Value(nanMask)
	False     Value = Null + 1
	True      Value = Null + 2
	Undefined Value = Null + 3
)

// IsNum reports whether v holds a float64 rather than a NaN-tagged
// singleton or object pointer: true whenever the NaN bits are not all set.
func (v Value) IsNum() bool {
	return uint64(v)&nanMask != nanMask
}

// IsSingleton reports whether v is one of Null/False/True/Undefined: the
// NaN bits are all set and the sign bit is clear.
func (v Value) IsSingleton() bool {
	return uint64(v)&(signMask|nanMask) == nanMask
}

// IsObject reports whether v is a tagged heap object pointer: the NaN bits
// and the sign bit are both set.
func (v Value) IsObject() bool {
	return uint64(v)&(signMask|nanMask) == (signMask | nanMask)
}

// Num decodes v as a float64. The caller must have already checked IsNum;
// calling Num on a singleton or object Value returns a meaningless bit
// pattern reinterpreted as a float, not an error, mirroring the C++
// original's zero-cost unchecked access.
func (v Value) Num() float64 {
	return math.Float64frombits(uint64(v))
}

// EncodeNum packs a float64 into a Value. It panics if n's own bit pattern
// would already satisfy the NaN-tag test — i.e. n is a NaN (never an
// infinity) with every NaN-tag bit set in a way indistinguishable from a tagged
// value — matching rt_throw_error(NAN_FLOAT) in the original; Wren source
// code can't construct such a float through normal arithmetic, so this
// should never fire outside of a miscompiled backend.
func EncodeNum(n float64) Value {
	v := Value(math.Float64bits(n))
	if !v.IsNum() {
		panic(fmt.Sprintf("value: %v encodes as a reserved NaN-tag bit pattern", n))
	}
	return v
}

// Bool encodes a boolean as the True or False singleton.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// IsTruthy applies Wren's truthiness rule: everything is truthy except
// null and false.
func (v Value) IsTruthy() bool {
	return v != Null && v != False
}

// EncodeObjectPtr packs a pointer to a heap object into a Value. It panics
// if the pointer's own bits overlap the sign or NaN-tag bits — which on
// every real amd64/aarch64 user-space address they never do, since
// canonical user pointers leave the top 17 bits clear — matching
// rt_throw_error(INVALID_PTR) in the original.
func EncodeObjectPtr(p unsafe.Pointer) Value {
	addr := uint64(uintptr(p))
	if addr&(signMask|nanMask) != 0 {
		panic("value: object pointer overlaps the NaN-tag bits")
	}
	return Value(signMask | nanMask | addr)
}

// ObjectPtr recovers the object pointer from a tagged Value. The caller
// must have already checked IsObject.
func (v Value) ObjectPtr() unsafe.Pointer {
	return unsafe.Pointer(uintptr(uint64(v) & contentMask))
}

// SingletonContent returns the low bits distinguishing one singleton from
// another; defined for any Value, singleton or not, exactly like the
// original's get_object_value (which the comment notes "works on
// singletons too").
func (v Value) SingletonContent() uint64 {
	return uint64(v) & contentMask
}

// FormatNum renders a Wren number the way `System.print` and string
// interpolation do: plain decimal digits, no thousands separator, the
// minimum fraction digits needed to round-trip. Uses
// golang.org/x/text/number rather than hand-rolled strconv formatting
// (the teacher pack's own text-formatting dependency); NoSeparator keeps
// the rendering locale-stable instead of picking up a grouping character
// from whatever locale happens to be active.
func FormatNum(n float64) string {
	return fmt.Sprintf("%v", number.Decimal(n, number.NoSeparator()))
}

func (v Value) String() string {
	switch {
	case v == Null:
		return "null"
	case v == True:
		return "true"
	case v == False:
		return "false"
	case v == Undefined:
		return "undefined"
	case v.IsNum():
		return FormatNum(v.Num())
	case v.IsObject():
		return fmt.Sprintf("object@%p", v.ObjectPtr())
	default:
		return fmt.Sprintf("value(0x%016x)", uint64(v))
	}
}
