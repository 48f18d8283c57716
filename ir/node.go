// Package ir defines the typed intermediate representation built by the
// (external) parser and consumed by the mid-end passes: cleanup, basic-block
// formation, SSA construction, and type inference. Every node is allocated
// from a single per-module [arena.Arena] and is mutated in place by each
// pass in turn; nothing here is safe for concurrent use by more than one
// pass at a time, matching the teacher's own single-writer IR discipline
// (golang.org/x/tools/go/ssa's Function/BasicBlock/Instruction graph) and
// the original wrenc compiler's IRNode tree.
package ir

// DebugInfo carries source-position and provenance information that
// travels with every node. Synthetic is set on nodes fabricated by a pass
// (a fallthrough Jump, a hoisted temporary, a Phi) rather than parsed from
// source, mirroring DebugInfo::synthetic in original_source/src/IRNode.h.
type DebugInfo struct {
	Line      int
	Synthetic bool
}

// Node is implemented by every IR node: statements, expressions and
// variables alike. It exists so passes can walk a uniform tree without type
// asserting on every concrete type up front.
type Node interface {
	irNode()
}

// Stmt is an IR statement: an executable unit inside a function body.
type Stmt interface {
	Node
	stmtNode()
	// IsUnconditionalBranch reports whether control never falls through
	// this statement to the next one in its block: an unconditional Jump
	// or a Return. Cleanup and basic-block formation both use this to find
	// where a block must end (see original_source/src/passes/BasicBlockPass.cpp).
	IsUnconditionalBranch() bool
}

// Expr is an IR expression: a node which produces a Value when evaluated.
type Expr interface {
	Node
	exprNode()
}

// VarDecl is implemented by every kind of variable a Load/Assign can name:
// LocalVariable, UpvalueVariable, SSAVariable, IRGlobalDecl and
// FieldVariable. Spec §3 "Variables".
type VarDecl interface {
	Node
	varDecl()
	// Name is the variable's debug name, not necessarily unique.
	Name() string
}

func (*StmtBlock) irNode()           {}
func (*StmtAssign) irNode()          {}
func (*StmtFieldAssign) irNode()     {}
func (*StmtEvalAndIgnore) irNode()   {}
func (*StmtReturn) irNode()          {}
func (*StmtJump) irNode()            {}
func (*StmtLabel) irNode()           {}
func (*StmtLoadModule) irNode()      {}
func (*StmtDefineClass) irNode()     {}
func (*StmtBeginUpvalues) irNode()   {}
func (*StmtRelocateUpvalues) irNode() {}

func (*StmtBlock) stmtNode()           {}
func (*StmtAssign) stmtNode()          {}
func (*StmtFieldAssign) stmtNode()     {}
func (*StmtEvalAndIgnore) stmtNode()   {}
func (*StmtReturn) stmtNode()          {}
func (*StmtJump) stmtNode()            {}
func (*StmtLabel) stmtNode()           {}
func (*StmtLoadModule) stmtNode()      {}
func (*StmtDefineClass) stmtNode()     {}
func (*StmtBeginUpvalues) stmtNode()   {}
func (*StmtRelocateUpvalues) stmtNode() {}

func (*StmtBlock) IsUnconditionalBranch() bool       { return false }
func (*StmtAssign) IsUnconditionalBranch() bool      { return false }
func (*StmtFieldAssign) IsUnconditionalBranch() bool { return false }
func (*StmtEvalAndIgnore) IsUnconditionalBranch() bool { return false }
func (*StmtReturn) IsUnconditionalBranch() bool      { return true }
func (s *StmtJump) IsUnconditionalBranch() bool      { return s.Condition == nil }
func (*StmtLabel) IsUnconditionalBranch() bool       { return false }
func (*StmtLoadModule) IsUnconditionalBranch() bool  { return false }
func (*StmtDefineClass) IsUnconditionalBranch() bool { return false }
func (*StmtBeginUpvalues) IsUnconditionalBranch() bool { return false }
func (*StmtRelocateUpvalues) IsUnconditionalBranch() bool { return false }

func (*ExprConst) irNode()                 {}
func (*ExprLoad) irNode()                  {}
func (*ExprFieldLoad) irNode()             {}
func (*ExprFuncCall) irNode()              {}
func (*ExprClosure) irNode()               {}
func (*ExprLoadReceiver) irNode()          {}
func (*ExprRunStatements) irNode()         {}
func (*ExprAllocateInstanceMemory) irNode() {}
func (*ExprSystemVar) irNode()             {}
func (*ExprGetClassVar) irNode()           {}
func (*ExprPhi) irNode()                   {}

func (*ExprConst) exprNode()                 {}
func (*ExprLoad) exprNode()                  {}
func (*ExprFieldLoad) exprNode()             {}
func (*ExprFuncCall) exprNode()              {}
func (*ExprClosure) exprNode()               {}
func (*ExprLoadReceiver) exprNode()          {}
func (*ExprRunStatements) exprNode()         {}
func (*ExprAllocateInstanceMemory) exprNode() {}
func (*ExprSystemVar) exprNode()             {}
func (*ExprGetClassVar) exprNode()           {}
func (*ExprPhi) exprNode()                   {}

func (*LocalVariable) irNode()   {}
func (*UpvalueVariable) irNode() {}
func (*SSAVariable) irNode()     {}
func (*GlobalDecl) irNode()      {}
func (*FieldVariable) irNode()   {}

func (*LocalVariable) varDecl()   {}
func (*UpvalueVariable) varDecl() {}
func (*SSAVariable) varDecl()     {}
func (*GlobalDecl) varDecl()      {}
func (*FieldVariable) varDecl()   {}
