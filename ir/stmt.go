package ir

// StmtBlock groups a sequence of statements. Before the basic-block pass
// runs, a function body is one arbitrarily nested StmtBlock tree; cleanup
// flattens nested blocks away (spec §4.E item 1) and the basic-block pass
// then replaces the top-level block's children with blocks marked
// IsBasicBlock (spec §4.F).
type StmtBlock struct {
	DebugInfo DebugInfo

	Statements []Stmt

	// IsBasicBlock is set once the basic-block pass has carved this block
	// out as a single-entry, single-exit region starting with exactly one
	// Label.
	IsBasicBlock bool

	// SSAInputs holds the ordered predecessor list for this block, filled
	// in by the SSA pass only for blocks that ended up needing at least one
	// Phi node (spec §4.G item 3 "Finalization").
	SSAInputs []*StmtBlock

	backend any
}

func (b *StmtBlock) SetSSABackendData(v any) { b.backend = v }
func (b *StmtBlock) SSABackendData() any     { return b.backend }

// StmtAssign assigns the value of Expr to Var.
type StmtAssign struct {
	DebugInfo DebugInfo
	Var       VarDecl
	Expr_     Expr
}

func NewStmtAssign(v VarDecl, e Expr) *StmtAssign { return &StmtAssign{Var: v, Expr_: e} }

func (s *StmtAssign) Expr() Expr { return s.Expr_ }

// StmtFieldAssign assigns to a field of the receiver (or ThisOverride).
type StmtFieldAssign struct {
	DebugInfo    DebugInfo
	Field        *FieldVariable
	Value        Expr
	ThisOverride Expr
}

// StmtEvalAndIgnore evaluates an expression purely for its side effects,
// discarding the result.
type StmtEvalAndIgnore struct {
	DebugInfo DebugInfo
	Expr      Expr
}

// StmtReturn returns Value (nil for a bare `return`, which returns null at
// the backend level) from the enclosing function.
type StmtReturn struct {
	DebugInfo DebugInfo
	Value     Expr
}

// StmtJump transfers control to Target. If Condition is non-nil this is a
// conditional branch: control goes to Target when Condition's truthiness
// matches JumpOnFalse's negation, i.e. JumpOnFalse selects whether the jump
// fires on a false or a true condition. Looping marks a jump that forms a
// loop back-edge. The SSA pass does not read it: it avoids infinite
// recursion on back-edges while importing variables through its own
// pending Phi offers (spec §4.G item 2).
type StmtJump struct {
	DebugInfo   DebugInfo
	Target      *StmtLabel
	Condition   Expr
	JumpOnFalse bool
	Looping     bool
}

func NewStmtJump(target *StmtLabel, cond Expr) *StmtJump {
	return &StmtJump{Target: target, Condition: cond}
}

// StmtLabel names a jump target. Parent points back at the owning
// StmtBlock, maintained by the cleanup pass (spec §4.E item 2) so unused
// labels can be located and removed.
type StmtLabel struct {
	DebugInfo DebugInfo
	Name      string
	Parent    *StmtBlock

	// BasicBlock is set by the basic-block pass: the block this label now
	// begins.
	BasicBlock *StmtBlock
}

// StmtLoadModule imports another module by name, binding a subset of its
// globals into locals of the importing module. Spec §4.J "import_module".
type StmtLoadModule struct {
	DebugInfo DebugInfo
	Name      string
	Bindings  []ModuleBinding
}

// ModuleBinding maps one exported name in the imported module to a local in
// the importing one.
type ModuleBinding struct {
	SourceName string
	Local      *LocalVariable
}

// StmtDefineClass installs a class (parses ClassInfo into the runtime's
// class-descriptor format at backend time) and binds the resulting class
// Value to Target.
type StmtDefineClass struct {
	DebugInfo DebugInfo
	Class     *ClassInfo
	Target    VarDecl
}

// StmtBeginUpvalues marks the point in a function body where storage blocks
// for the given locals must be allocated, because a nested closure captures
// them. The cleanup pass drops any local from Variables that never actually
// acquired an upvalue, and removes the whole node if it becomes empty
// (spec §4.E item 6).
type StmtBeginUpvalues struct {
	DebugInfo DebugInfo
	Variables []*LocalVariable
}

// StmtRelocateUpvalues marks a set of StmtBeginUpvalues nodes whose storage
// blocks must have their reference count decremented at this point --
// typically used when a loop iteration's captured locals need fresh storage
// each time around.
type StmtRelocateUpvalues struct {
	DebugInfo DebugInfo
	Targets   []*StmtBeginUpvalues
}
