package cleanup

import (
	"testing"

	"github.com/chances/wrenc/ir"
	"github.com/chances/wrenc/runtime/signature"
)

func constNum(n float64) *ir.ExprConst {
	return &ir.ExprConst{Value: ir.CcValue{Kind: ir.CcNum, Num: n}}
}

// A nested StmtBlock must be flattened away entirely: its statements splice
// directly into the parent in place, in order, with the statements on
// either side of it untouched (spec §4.E item 1).
func TestNestedBlockFlattensIntoParent(t *testing.T) {
	fn := ir.NewFn("nested")
	first := &ir.StmtEvalAndIgnore{Expr: constNum(1)}
	inner1 := &ir.StmtEvalAndIgnore{Expr: constNum(2)}
	inner2 := &ir.StmtEvalAndIgnore{Expr: constNum(3)}
	last := &ir.StmtReturn{}

	fn.Body.Statements = []ir.Stmt{
		first,
		&ir.StmtBlock{Statements: []ir.Stmt{inner1, inner2}},
		last,
	}

	Process(fn)

	want := []ir.Stmt{first, inner1, inner2, last}
	if len(fn.Body.Statements) != len(want) {
		t.Fatalf("expected %d flattened statements, got %d: %#v", len(want), len(fn.Body.Statements), fn.Body.Statements)
	}
	for i, s := range want {
		if fn.Body.Statements[i] != s {
			t.Fatalf("statement %d: expected %#v, got %#v", i, s, fn.Body.Statements[i])
		}
	}
}

// Statements after an unconditional branch are unreachable and must be
// trimmed, but only up to the next label: a label may still be some other
// jump's target, so it survives. The unconditional jump after the label
// makes the statement following it dead as well, so that is trimmed too.
func TestDeadCodeAfterReturnTrimmedUntilNextLabel(t *testing.T) {
	fn := ir.NewFn("deadcode")
	ret := &ir.StmtReturn{}
	deadFirst := &ir.StmtEvalAndIgnore{Expr: constNum(1)}
	deadSecond := &ir.StmtEvalAndIgnore{Expr: constNum(2)}
	label := &ir.StmtLabel{Name: "L"}
	jump := &ir.StmtJump{Target: label}
	survivor := &ir.StmtEvalAndIgnore{Expr: constNum(3)}

	fn.Body.Statements = []ir.Stmt{ret, deadFirst, deadSecond, label, jump, survivor}

	Process(fn)

	want := []ir.Stmt{ret, label, jump}
	if len(fn.Body.Statements) != len(want) {
		t.Fatalf("expected %d statements after trimming, got %d: %#v", len(want), len(fn.Body.Statements), fn.Body.Statements)
	}
	for i, s := range want {
		if fn.Body.Statements[i] != s {
			t.Fatalf("statement %d: expected %#v, got %#v", i, s, fn.Body.Statements[i])
		}
	}
}

// A label no StmtJump ever targets is dead and must be removed; removing it
// can expose a run of dead code that was only separated from a terminator
// by that label (the after_while.wren case item 3's comment describes), so
// the owning block must be re-flattened afterward.
func TestUnusedLabelRemovedAndBlockRevisitedForDeadCode(t *testing.T) {
	fn := ir.NewFn("deadlabel")
	ret1 := &ir.StmtReturn{}
	deadLabel := &ir.StmtLabel{Name: "unused"}
	ret2 := &ir.StmtReturn{}

	fn.Body.Statements = []ir.Stmt{ret1, deadLabel, ret2}

	Process(fn)

	if len(fn.Body.Statements) != 1 {
		t.Fatalf("expected the dead label and the now-unreachable return to be removed, got %#v", fn.Body.Statements)
	}
	if fn.Body.Statements[0] != ir.Stmt(ret1) {
		t.Fatalf("expected only the first return to survive, got %#v", fn.Body.Statements[0])
	}
}

// SubstituteExprRunStatements splices the hoisted statement into the
// current block at the current insertion index, immediately ahead of the
// statement it came from, and replaces the expression with a load of its
// temporary.
func TestSubstituteRunStatementsInsertsAtCurrentIndex(t *testing.T) {
	fn := ir.NewFn("runstmts")
	tmp := &ir.LocalVariable{Name_: "tmp"}
	fn.Locals = []*ir.LocalVariable{tmp}

	preceding := &ir.StmtEvalAndIgnore{Expr: constNum(0)}
	hoisted := ir.NewStmtAssign(tmp, constNum(1))
	withRunStatements := &ir.StmtEvalAndIgnore{
		Expr: &ir.ExprRunStatements{Statement: hoisted, Temporary: tmp},
	}
	ret := &ir.StmtReturn{}

	fn.Body.Statements = []ir.Stmt{preceding, withRunStatements, ret}

	Process(fn)

	want := []ir.Stmt{preceding, hoisted, withRunStatements, ret}
	if len(fn.Body.Statements) != len(want) {
		t.Fatalf("expected %d statements, got %d: %#v", len(want), len(fn.Body.Statements), fn.Body.Statements)
	}
	for i, s := range want {
		if fn.Body.Statements[i] != s {
			t.Fatalf("statement %d: expected %#v, got %#v", i, s, fn.Body.Statements[i])
		}
	}

	load, ok := withRunStatements.Expr.(*ir.ExprLoad)
	if !ok || load.Var != ir.VarDecl(tmp) {
		t.Fatalf("expected the original expression to become a load of tmp, got %#v", withRunStatements.Expr)
	}
}

// substituteFuncCall, called for a non-safe position, must hoist the call
// into a synthetic local assigned at the current insertion index (pushing
// whatever already sits at that index back by one), advance the insertion
// index past what it just inserted, and hand back a load of the new local.
func TestSubstituteFuncCallHoistsAtCurrentInsertionIndex(t *testing.T) {
	fn := ir.NewFn("hoist")
	sig := &signature.Signature{Name: "bar", Kind: signature.Method, Arity: 0}
	call := &ir.ExprFuncCall{Receiver: constNum(1), Signature: sig}

	preceding := &ir.StmtEvalAndIgnore{Expr: constNum(0)}
	current := &ir.StmtEvalAndIgnore{Expr: constNum(2)}
	following := &ir.StmtReturn{}
	block := &ir.StmtBlock{Statements: []ir.Stmt{preceding, current, following}}

	c := New()
	c.fn = fn
	c.target = runStatementsTarget{block: block, insertIndex: 1}

	result := c.substituteFuncCall(call, false)

	load, ok := result.(*ir.ExprLoad)
	if !ok {
		t.Fatalf("expected substituteFuncCall to return a load, got %T", result)
	}
	tmp, ok := load.Var.(*ir.LocalVariable)
	if !ok {
		t.Fatalf("expected the load to reference a new LocalVariable, got %T", load.Var)
	}

	if len(block.Statements) != 4 {
		t.Fatalf("expected one hoisted statement inserted, got %d: %#v", len(block.Statements), block.Statements)
	}
	if block.Statements[0] != ir.Stmt(preceding) || block.Statements[2] != ir.Stmt(current) || block.Statements[3] != ir.Stmt(following) {
		t.Fatalf("statements surrounding the insertion point should be untouched, got %#v", block.Statements)
	}
	assign, ok := block.Statements[1].(*ir.StmtAssign)
	if !ok {
		t.Fatalf("expected a StmtAssign at the insertion index, got %#v", block.Statements[1])
	}
	if assign.Var != ir.VarDecl(tmp) || assign.Expr() != ir.Expr(call) {
		t.Fatalf("expected the hoisted assignment to assign the call to the new local")
	}

	if c.target.insertIndex != 2 {
		t.Fatalf("expected insertIndex to advance past the inserted statement, got %d", c.target.insertIndex)
	}
	if !c.target.inserted {
		t.Fatalf("expected target.inserted to be set")
	}

	found := false
	for _, l := range fn.Locals {
		if l == tmp {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the hoisted local to be registered on fn.Locals")
	}
}

// A FuncCall in a safe position (the direct child of a StmtAssign or
// StmtEvalAndIgnore) must be returned unchanged, with no hoisting at all.
func TestSubstituteFuncCallLeavesSafePositionUntouched(t *testing.T) {
	fn := ir.NewFn("safe")
	sig := &signature.Signature{Name: "bar", Kind: signature.Method, Arity: 0}
	call := &ir.ExprFuncCall{Receiver: constNum(1), Signature: sig}
	block := &ir.StmtBlock{Statements: []ir.Stmt{&ir.StmtEvalAndIgnore{Expr: call}}}

	c := New()
	c.fn = fn
	c.target = runStatementsTarget{block: block, insertIndex: 0}

	result := c.substituteFuncCall(call, true)

	if result != ir.Expr(call) {
		t.Fatalf("expected the call to be returned unchanged in a safe position, got %#v", result)
	}
	if len(block.Statements) != 1 {
		t.Fatalf("expected no statement to be inserted, got %#v", block.Statements)
	}
	if len(fn.Locals) != 0 {
		t.Fatalf("expected no local to be allocated, got %#v", fn.Locals)
	}
}
