package value

import (
	"math"
	"testing"
	"unsafe"
)

func TestNumRoundTrip(t *testing.T) {
	cases := []float64{0, 1, -1, 3.14159, math.MaxFloat64, -math.MaxFloat64, 1e-300}
	for _, n := range cases {
		v := EncodeNum(n)
		if !v.IsNum() {
			t.Fatalf("EncodeNum(%v).IsNum() = false", n)
		}
		if v.IsObject() || v.IsSingleton() {
			t.Fatalf("EncodeNum(%v) misclassified as object/singleton", n)
		}
		if got := v.Num(); got != n {
			t.Fatalf("round-trip mismatch: encoded %v, decoded %v", n, got)
		}
	}
}

func TestSingletonsAreDistinctAndClassified(t *testing.T) {
	singletons := []Value{Null, True, False, Undefined}
	seen := map[Value]bool{}
	for _, s := range singletons {
		if seen[s] {
			t.Fatalf("duplicate singleton value %#x", uint64(s))
		}
		seen[s] = true
		if !s.IsSingleton() {
			t.Fatalf("%v not classified as singleton", s)
		}
		if s.IsNum() || s.IsObject() {
			t.Fatalf("%v misclassified", s)
		}
	}
}

func TestBoolEncoding(t *testing.T) {
	if Bool(true) != True || Bool(false) != False {
		t.Fatal("Bool did not map to the True/False singletons")
	}
}

func TestTruthiness(t *testing.T) {
	if Null.IsTruthy() || False.IsTruthy() {
		t.Fatal("null and false must be falsy")
	}
	if !True.IsTruthy() || !EncodeNum(0).IsTruthy() {
		t.Fatal("every value except null and false must be truthy, including 0")
	}
}

func TestObjectPtrRoundTrip(t *testing.T) {
	x := 42
	p := unsafe.Pointer(&x)

	v := EncodeObjectPtr(p)
	if !v.IsObject() {
		t.Fatal("expected IsObject to be true")
	}
	if v.IsNum() || v.IsSingleton() {
		t.Fatal("object value misclassified")
	}
	if v.ObjectPtr() != p {
		t.Fatalf("round-trip mismatch: got %p, want %p", v.ObjectPtr(), p)
	}
}

func TestEncodeNumPanicsOnReservedBitPattern(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected EncodeNum to panic on a NaN-tag-colliding bit pattern")
		}
	}()
	// A quiet NaN with the sign bit and every NaN-tag bit set is
	// indistinguishable from a tagged Value; its raw bits are exactly
	// Null's pattern with the sign bit set.
	reserved := math.Float64frombits(uint64(Null) | signMask)
	EncodeNum(reserved)
}
