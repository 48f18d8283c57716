package scope

import (
	"testing"

	"github.com/chances/wrenc/ir"
)

func TestLookupFindsInnermostShadowing(t *testing.T) {
	s := New()
	s.PushFrame(nil)
	outer := &ir.LocalVariable{Name_: "x"}
	if !s.Add(outer) {
		t.Fatal("expected Add to succeed in an empty frame")
	}

	s.PushFrame(nil)
	inner := &ir.LocalVariable{Name_: "x"}
	if !s.Add(inner) {
		t.Fatal("expected Add to succeed: shadowing an outer frame's variable is fine")
	}

	if got := s.Lookup("x"); got != inner {
		t.Fatalf("expected Lookup to find the innermost 'x', got %+v", got)
	}

	s.PopFrame()
	if got := s.Lookup("x"); got != outer {
		t.Fatalf("expected Lookup to find the outer 'x' after popping, got %+v", got)
	}
}

func TestAddRejectsRedeclarationInSameFrame(t *testing.T) {
	s := New()
	s.PushFrame(nil)
	if !s.Add(&ir.LocalVariable{Name_: "x"}) {
		t.Fatal("first Add should succeed")
	}
	if s.Add(&ir.LocalVariable{Name_: "x"}) {
		t.Fatal("redeclaring 'x' in the same frame should fail")
	}
}

func TestAddRegistersWithUpvalueContainer(t *testing.T) {
	s := New()
	begin := &ir.StmtBeginUpvalues{}
	s.PushFrame(begin)

	v := &ir.LocalVariable{Name_: "captured"}
	s.Add(v)

	if len(begin.Variables) != 1 || begin.Variables[0] != v {
		t.Fatalf("expected the new local to be registered with its frame's upvalue container")
	}
	if v.BeginUpvalues != begin {
		t.Fatalf("expected v.BeginUpvalues to point back at the container")
	}
}

func TestVariableCountIncludesOuterFrames(t *testing.T) {
	s := New()
	s.PushFrame(nil)
	s.Add(&ir.LocalVariable{Name_: "a"})
	s.Add(&ir.LocalVariable{Name_: "b"})

	s.PushFrame(nil)
	s.Add(&ir.LocalVariable{Name_: "c"})

	if got := s.VariableCount(); got != 3 {
		t.Fatalf("VariableCount() = %d, want 3", got)
	}
}

func TestFramesSinceReturnsOuterToInner(t *testing.T) {
	s := New()
	s.PushFrame(nil)
	mark := s.TopFrame()
	s.PushFrame(nil)
	s.PushFrame(nil)

	frames := s.FramesSince(mark)
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames since the mark, got %d", len(frames))
	}
	if frames[0] != s.frames[mark] || frames[2] != s.frames[s.TopFrame()] {
		t.Fatal("expected frames in outer-to-inner order, from the mark to the top")
	}
}
