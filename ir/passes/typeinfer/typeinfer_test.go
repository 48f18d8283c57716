package typeinfer

import (
	"testing"

	"github.com/chances/wrenc/ir"
	"github.com/chances/wrenc/runtime/signature"
)

func constNum(n float64) *ir.ExprConst {
	return &ir.ExprConst{Value: ir.CcValue{Kind: ir.CcNum, Num: n}}
}

// a = 1; b = a + 2 should infer both a and b as Num, and mark the call as
// the NumAdd intrinsic.
func TestNumAddResolvesToIntrinsic(t *testing.T) {
	fn := ir.NewFn("add")

	a := &ir.SSAVariable{Name_: "a"}
	b := &ir.SSAVariable{Name_: "b"}

	a.Assignment = ir.NewStmtAssign(a, constNum(1))

	call := &ir.ExprFuncCall{
		Receiver:  &ir.ExprLoad{Var: a},
		Signature: &signature.Signature{Name: "+", Kind: signature.Method, Arity: 1},
		Args:      []ir.Expr{constNum(2)},
	}
	b.Assignment = ir.NewStmtAssign(b, call)

	fn.SSAVars = []*ir.SSAVariable{a, b}

	p := New()
	p.process(fn)

	if a.Type != p.Registry().Num() {
		t.Fatalf("expected a to be inferred as Num, got %v", a.Type)
	}
	if b.Type != p.Registry().Num() {
		t.Fatalf("expected b to be inferred as Num, got %v", b.Type)
	}
	if call.Intrinsic != ir.IntrinsicNumAdd {
		t.Fatalf("expected the call to be lowered to IntrinsicNumAdd, got %v", call.Intrinsic)
	}
}

// A function parameter (no Assignment) must end up resolved-but-unknown,
// never tripping the "ended without a type set" invariant check.
func TestParameterWithNoAssignmentResolves(t *testing.T) {
	fn := ir.NewFn("param")
	p := &ir.SSAVariable{Name_: "p"}
	fn.SSAVars = []*ir.SSAVariable{p}

	pass := New()
	pass.process(fn) // must not panic

	if p.Type != nil {
		t.Fatalf("expected an unassigned variable to stay untyped, got %v", p.Type)
	}
}

// A Phi node merging two Num-typed inputs should resolve to Num, without
// needing every input to be known before it can run once (spec §4.H's
// loop-carried-type convergence).
func TestPhiOfMatchingNumsResolvesToNum(t *testing.T) {
	fn := ir.NewFn("phi")

	a := &ir.SSAVariable{Name_: "a"}
	c := &ir.SSAVariable{Name_: "c"}
	b := &ir.SSAVariable{Name_: "b"} // phi(a, c)

	a.Assignment = ir.NewStmtAssign(a, constNum(1))
	b.Assignment = ir.NewStmtAssign(b, &ir.ExprPhi{Inputs: []*ir.SSAVariable{a, c}})
	c.Assignment = ir.NewStmtAssign(c, &ir.ExprFuncCall{
		Receiver:  &ir.ExprLoad{Var: b},
		Signature: &signature.Signature{Name: "+", Kind: signature.Method, Arity: 1},
		Args:      []ir.Expr{constNum(1)},
	})

	fn.SSAVars = []*ir.SSAVariable{a, b, c}

	pass := New()
	pass.process(fn)

	if a.Type != pass.Registry().Num() || b.Type != pass.Registry().Num() || c.Type != pass.Registry().Num() {
		t.Fatalf("expected a, b, c all inferred as Num; got a=%v b=%v c=%v", a.Type, b.Type, c.Type)
	}
}
