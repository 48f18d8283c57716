// Package cleanup implements the IR cleanup pass: the first of the four
// mid-end passes (spec §4.E). It is grounded directly on
// original_source/src/passes/IRCleanup.cpp, translated from the C++
// visitor-with-parent-stack shape into a plain recursive walk, which is the
// idiomatic Go equivalent (no virtual dispatch needed: a type switch plays
// the same role as the C++ IRVisitor's overridable Visit* methods).
package cleanup

import (
	"github.com/chances/wrenc/ir"
)

// labelInfo tracks whether a label is ever the target of a jump, and which
// block directly contains it, mirroring IRCleanup::LabelInfo.
type labelInfo struct {
	used   bool
	parent *ir.StmtBlock
}

// runStatementsTarget is where SubstituteExprRunStatements and
// SubstituteExprFuncCall insert their hoisted statements: the block
// currently being flattened, and the index new statements are inserted at.
// Mirrors IRCleanup::RunStatementsTarget.
type runStatementsTarget struct {
	block       *ir.StmtBlock
	insertIndex int
	inserted    bool
}

// Cleanup runs the cleanup pass over one function body.
type Cleanup struct {
	labels  map[*ir.StmtLabel]*labelInfo
	target  runStatementsTarget
	fn      *ir.Fn
	nextTmp int
}

// New constructs a cleanup pass instance. A fresh instance should be used
// per function, since label liveness and hoisting state don't need to
// persist across functions.
func New() *Cleanup {
	return &Cleanup{labels: make(map[*ir.StmtLabel]*labelInfo)}
}

// Process runs every cleanup responsibility over fn's body: block
// flattening, dead-label removal, dead-code-after-terminator removal,
// RunStatements lowering, call-site hoisting, and empty-BeginUpvalues
// removal (spec §4.E items 1-6).
func Process(fn *ir.Fn) {
	c := New()
	c.fn = fn
	c.visitBlock(fn.Body, true)
	c.removeDeadLabels()
}

func (c *Cleanup) labelInfoFor(l *ir.StmtLabel) *labelInfo {
	info, ok := c.labels[l]
	if !ok {
		info = &labelInfo{}
		c.labels[l] = info
	}
	return info
}

// removeDeadLabels implements the second half of IRCleanup::Process: delete
// every StmtLabel that no StmtJump ever targets, then re-flatten the blocks
// that changed (in case two returns ended up separated only by a now-dead
// label, spec §4.E item 3's comment about after_while.wren).
func (c *Cleanup) removeDeadLabels() {
	toRevisit := map[*ir.StmtBlock]bool{}

	for label, info := range c.labels {
		if info.used || info.parent == nil {
			continue
		}
		block := info.parent
		for i, stmt := range block.Statements {
			if l, ok := stmt.(*ir.StmtLabel); ok && l == label {
				block.Statements = append(block.Statements[:i], block.Statements[i+1:]...)
				break
			}
		}
		toRevisit[block] = true
	}

	for block := range toRevisit {
		c.visitBlock(block, false)
	}
}

// visitBlock implements IRCleanup::VisitBlock: flattening nested blocks
// (recurse==true also visits each remaining statement for RunStatements
// lowering and call-site hoisting), then trimming dead code after a
// terminator.
func (c *Cleanup) visitBlock(block *ir.StmtBlock, recurse bool) {
	prevTarget := c.target
	c.target = runStatementsTarget{block: block}

	for i := 0; i < len(block.Statements); i++ {
		stmt := block.Statements[i]

		if nested, ok := stmt.(*ir.StmtBlock); ok {
			rest := append([]ir.Stmt{}, block.Statements[i+1:]...)
			block.Statements = append(block.Statements[:i], append(append([]ir.Stmt{}, nested.Statements...), rest...)...)
			i--
			continue
		}

		if !recurse {
			continue
		}

		c.target.insertIndex = i
		c.target.inserted = false

		c.visitStmt(block, stmt)

		if c.target.inserted {
			i--
		}

		if begin, ok := stmt.(*ir.StmtBeginUpvalues); ok {
			c.visitBeginUpvalues(begin)
			if len(begin.Variables) == 0 {
				block.Statements = append(block.Statements[:i], block.Statements[i+1:]...)
				i--
				continue
			}
		}
	}

	// Dead-code-after-terminator: done after flattening, for the same
	// reason IRCleanup::VisitBlock does it as a second pass.
	for i := 0; i < len(block.Statements); i++ {
		if block.Statements[i].IsUnconditionalBranch() {
			j := i + 1
			for j < len(block.Statements) {
				if _, ok := block.Statements[j].(*ir.StmtLabel); ok {
					break
				}
				block.Statements = append(block.Statements[:j], block.Statements[j+1:]...)
			}
		}
	}

	c.target = prevTarget
}

func (c *Cleanup) visitBeginUpvalues(node *ir.StmtBeginUpvalues) {
	kept := node.Variables[:0]
	for _, v := range node.Variables {
		if len(v.Upvalues) == 0 {
			continue
		}
		kept = append(kept, v)
	}
	node.Variables = kept
}

// visitStmt records label parentage/liveness, recurses into nested blocks,
// and rewrites every expression reachable from stmt via visitExpr.
func (c *Cleanup) visitStmt(parent *ir.StmtBlock, stmt ir.Stmt) {
	switch s := stmt.(type) {
	case *ir.StmtLabel:
		info := c.labelInfoFor(s)
		info.parent = parent
		s.Parent = parent
	case *ir.StmtJump:
		if s.Target != nil {
			c.labelInfoFor(s.Target).used = true
		}
		if s.Condition != nil {
			s.Condition = c.visitExpr(s.Condition)
		}
	case *ir.StmtAssign:
		s.Expr_ = c.visitExprInPosition(s, s.Expr_)
	case *ir.StmtFieldAssign:
		s.Value = c.visitExpr(s.Value)
		if s.ThisOverride != nil {
			s.ThisOverride = c.visitExpr(s.ThisOverride)
		}
	case *ir.StmtEvalAndIgnore:
		s.Expr = c.visitExprInPosition(s, s.Expr)
	case *ir.StmtReturn:
		if s.Value != nil {
			s.Value = c.visitExpr(s.Value)
		}
	case *ir.StmtBlock:
		c.visitBlock(s, true)
	}
}

// visitExpr rewrites an expression that is not itself a FuncCall's direct
// parent-tracked position; it substitutes RunStatements unconditionally and
// substitutes a FuncCall as though its parent were neither Assign nor
// EvalAndIgnore (so it is always eligible for hoisting), matching
// IRCleanup::Visit(IRExpr*&) called from any subexpression position.
func (c *Cleanup) visitExpr(e ir.Expr) ir.Expr {
	if rs, ok := e.(*ir.ExprRunStatements); ok {
		e = c.substituteRunStatements(rs)
	}
	if call, ok := e.(*ir.ExprFuncCall); ok {
		e = c.substituteFuncCall(call, false)
	}
	c.recurseIntoChildren(e)
	return e
}

// visitExprInPosition is used for the two "safe" positions (StmtAssign's
// Expr and StmtEvalAndIgnore's Expr) where a bare FuncCall never needs
// hoisting, mirroring SubstituteExprFuncCall's GetParent(-1) check.
func (c *Cleanup) visitExprInPosition(_ ir.Stmt, e ir.Expr) ir.Expr {
	if rs, ok := e.(*ir.ExprRunStatements); ok {
		e = c.substituteRunStatements(rs)
	}
	c.recurseIntoChildren(e)
	return e
}

func (c *Cleanup) recurseIntoChildren(e ir.Expr) {
	switch ex := e.(type) {
	case *ir.ExprFuncCall:
		ex.Receiver = c.visitExpr(ex.Receiver)
		for i, a := range ex.Args {
			ex.Args[i] = c.visitExpr(a)
		}
	case *ir.ExprFieldLoad:
		if ex.ThisOverride != nil {
			ex.ThisOverride = c.visitExpr(ex.ThisOverride)
		}
	}
}

// substituteRunStatements implements IRCleanup::SubstituteExprRunStatements:
// splice node.Statement into the current block at the current insertion
// index, then replace the expression with a load of node.Temporary.
func (c *Cleanup) substituteRunStatements(node *ir.ExprRunStatements) ir.Expr {
	insertIdx := c.target.insertIndex
	c.target.insertIndex++
	c.target.inserted = true

	block := c.target.block
	block.Statements = insertAt(block.Statements, insertIdx, node.Statement)

	load := &ir.ExprLoad{DebugInfo: node.DebugInfo, Var: node.Temporary}
	return load
}

// substituteFuncCall implements IRCleanup::SubstituteExprFuncCall: a
// FuncCall used as a non-root subexpression is hoisted into a synthetic
// local, assigned just ahead of the current statement, and replaced by a
// load of that local. isSafePosition corresponds to the parent being a
// StmtAssign or StmtEvalAndIgnore, in which case no hoisting is needed.
func (c *Cleanup) substituteFuncCall(node *ir.ExprFuncCall, isSafePosition bool) ir.Expr {
	if isSafePosition {
		return node
	}

	tmp := &ir.LocalVariable{Name_: "tmp_call_res"}
	if node.Signature != nil {
		tmp.Name_ = "tmp_call_res_" + node.Signature.Name
	}
	c.fn.Locals = append(c.fn.Locals, tmp)

	assign := ir.NewStmtAssign(tmp, node)
	assign.DebugInfo = node.DebugInfo

	insertIdx := c.target.insertIndex
	c.target.insertIndex++
	block := c.target.block
	block.Statements = insertAt(block.Statements, insertIdx, ir.Stmt(assign))
	c.target.inserted = true

	return &ir.ExprLoad{DebugInfo: node.DebugInfo, Var: tmp}
}

func insertAt(stmts []ir.Stmt, idx int, s ir.Stmt) []ir.Stmt {
	stmts = append(stmts, nil)
	copy(stmts[idx+1:], stmts[idx:])
	stmts[idx] = s
	return stmts
}
