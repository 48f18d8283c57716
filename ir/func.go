package ir

// Fn is a compiled function: a top-level function, a method, or a closure
// body. Spec §3 "Functions".
type Fn struct {
	DebugName string

	// Params are ordered LocalVariables; the backend emits them, in order,
	// after the receiver (if Class != nil) and the upvalue-pack pointer (if
	// Upvalues is non-empty). Spec §4.I item 1.
	Params []*LocalVariable

	// Locals holds every LocalVariable declared in this function, including
	// Params. SSAVariables created for them are appended to SSAVars as the
	// SSA pass runs.
	Locals []*LocalVariable

	// Temporaries are SSA-form variables introduced directly by a pass
	// rather than by renaming a source-level local. (Cleanup's hoisted
	// call-site temporaries are LocalVariables in Locals, not entries here.)
	Temporaries []*SSAVariable

	// SSAVars accumulates every SSAVariable created for this function,
	// including both renamed locals and Phi outputs. Populated by the SSA
	// pass; read by type inference.
	SSAVars []*SSAVariable

	// Body is the function's single top-level StmtBlock. Before the
	// basic-block pass it is one flat (post-cleanup) block; after, its
	// direct Statements are themselves basic blocks.
	Body *StmtBlock

	// Upvalues lists the UpvalueVariables this function's body captures
	// from an enclosing scope.
	Upvalues []*UpvalueVariable

	// Class is set when this Fn is a method or constructor body.
	Class *ClassInfo

	// IsStatic marks a method defined on the metaclass.
	IsStatic bool

	// Arity is the number of declared parameters, kept separately from
	// len(Params) so the backend can validate foreign-call argument counts
	// before Params is fully built out during parsing.
	Arity int

	// Root, if set, is the function's root StmtBeginUpvalues node (spec §3:
	// "optional root StmtBeginUpvalues").
	Root *StmtBeginUpvalues
}

// NewFn allocates a zero-valued Fn. Real code allocates Fn values from a
// module's [arena.Arena]; this helper exists for tests and small tools that
// don't need arena-scoped lifetime management.
func NewFn(name string) *Fn {
	return &Fn{DebugName: name, Body: &StmtBlock{}}
}
