package ir

import "github.com/chances/wrenc/runtime/signature"

// CcValue is a compile-time constant: the value baked into an ExprConst
// node. Spec §3 "Expressions": Const(CcValue). This is distinct from the
// runtime's NaN-tagged Value -- it is the compiler's own representation of
// a literal, which the backend later lowers to a runtime Value or an
// immediate.
type CcValue struct {
	Kind   CcValueKind
	Num    float64
	Str    string
	Bool   bool
}

type CcValueKind int

const (
	CcUndefined CcValueKind = iota
	CcNull
	CcString
	CcBool
	CcNum
)

// ExprConst is a literal value baked in at compile time.
type ExprConst struct {
	DebugInfo DebugInfo
	Value     CcValue
}

// ExprLoad reads the current value of a variable.
type ExprLoad struct {
	DebugInfo DebugInfo
	Var       VarDecl
}

// ExprFieldLoad reads a field of either the current receiver or an
// explicitly given instance (ThisOverride), used when a method captures
// `this` across a closure boundary.
type ExprFieldLoad struct {
	DebugInfo    DebugInfo
	Field        *FieldVariable
	ThisOverride Expr // nil to use the enclosing method's receiver
}

// Intrinsic marks that a FuncCall has been proven, by the type-inference
// pass, to match a receiver/argument type combination the backend can
// special-case instead of performing a dynamic dispatch. Spec §4.H.
type Intrinsic int

const (
	IntrinsicNone Intrinsic = iota
	IntrinsicNumAdd
	IntrinsicNumSub
	IntrinsicNumMul
	IntrinsicNumDiv
	IntrinsicNumLt
	IntrinsicNumGt
	IntrinsicNumLe
	IntrinsicNumGe
	IntrinsicNumEq
)

// ExprFuncCall is a (possibly super-) method call: receiver.signature(args).
type ExprFuncCall struct {
	DebugInfo DebugInfo
	Receiver  Expr
	Signature *signature.Signature
	Args      []Expr
	Super     bool

	// DeclaringClass is required when Super is true: the runtime super
	// dispatch helper starts its search at DeclaringClass.parentClass
	// (spec §4.I item 2).
	DeclaringClass *ClassInfo

	// Intrinsic is filled in by type inference (spec §4.H); the backend
	// may use it instead of emitting a dynamic dispatch.
	Intrinsic Intrinsic
}

// ExprClosure creates a new ObjFn instance bound to the enclosing frame's
// captured variables.
type ExprClosure struct {
	DebugInfo DebugInfo
	Fn        *Fn
}

// ExprLoadReceiver reads the implicit `this` of the enclosing method.
type ExprLoadReceiver struct {
	DebugInfo DebugInfo
}

// ExprRunStatements executes Statement as a preamble, then yields the value
// of Temporary. It is a compiler-internal device used by expression-parsing
// code paths to emit statements from inside an expression position, and is
// *always* eliminated by the cleanup pass (spec §4.E item 4, §9); no later
// pass or backend ever sees one.
type ExprRunStatements struct {
	DebugInfo DebugInfo
	Statement Stmt
	Temporary *LocalVariable
}

// ExprAllocateInstanceMemory allocates the field storage block for a new
// instance of Class, before any constructor body runs.
type ExprAllocateInstanceMemory struct {
	DebugInfo DebugInfo
	Class     *ClassInfo
}

// ExprSystemVar reads a module-level system variable by name (e.g. a
// reference to a built-in class used as a value, such as `Num` or `Fiber`).
type ExprSystemVar struct {
	DebugInfo DebugInfo
	Name      string
}

// ExprGetClassVar reads the class value a DefineClass statement produced.
type ExprGetClassVar struct {
	DebugInfo DebugInfo
	Class     *ClassInfo
}

// ExprPhi is the SSA merge operator: its value is whichever Inputs entry
// corresponds to the predecessor basic block control actually came from.
// Produced exclusively by the SSA pass (spec §4.G); Inputs is parallel to
// the owning block's SSAInputs (predecessor list).
type ExprPhi struct {
	DebugInfo DebugInfo
	Inputs    []*SSAVariable

	// Assignment is the StmtAssign that defines this phi's output SSA
	// variable, set by the SSA pass in lock-step with the variable it
	// produces. Mirrors the C++ original's ExprPhi::assignment, set
	// directly in ImportVariable.
	Assignment *StmtAssign
}
