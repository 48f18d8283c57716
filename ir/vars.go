package ir

// LocalVariable is a mutable, stack-frame-scoped variable that may be
// closed over by a nested closure. Spec §3 "Variables": LocalVariable.
type LocalVariable struct {
	DebugInfo DebugInfo
	Name_     string

	// Upvalues lists the UpvalueVariable nodes in nested closures that
	// capture this local. A non-empty list means the SSA pass must leave
	// this local out of SSA form entirely (writes become observable to the
	// closures), per spec §4.G.
	Upvalues []*UpvalueVariable

	// DisableSSA opts this local out of SSA renaming even though it has no
	// upvalues -- used for module-import targets (spec §4.G), which the
	// backend rewrites by name rather than by assignment.
	DisableSSA bool

	// BeginUpvalues points back at the StmtBeginUpvalues node that declared
	// this local's storage block, if any.
	BeginUpvalues *StmtBeginUpvalues

	// Set by the SSA pass; opaque to earlier/later passes other than via
	// the accessor methods below.
	ssaBackend any
}

func (l *LocalVariable) Name() string { return l.Name_ }

// SetSSABackendData and SSABackendData let a pass attach per-local
// bookkeeping without every other pass having to know the field exists,
// mirroring the C++ BackendNodeData pattern
// (original_source/src/passes/SSAPass.cpp's `local->backendVarData`).
// This module's SSA pass keeps its per-local state in its own maps and
// does not use them.
func (l *LocalVariable) SetSSABackendData(v any) { l.ssaBackend = v }
func (l *LocalVariable) SSABackendData() any     { return l.ssaBackend }

// UpvalueVariable captures either a LocalVariable from a directly enclosing
// scope, or another UpvalueVariable one level further out, letting a chain
// of nested closures each add one hop. Spec §3, §9 "Upvalue capture".
type UpvalueVariable struct {
	DebugInfo DebugInfo
	Name_     string

	// Exactly one of Local/Outer is set.
	Local *LocalVariable
	Outer *UpvalueVariable
}

func (u *UpvalueVariable) Name() string { return u.Name_ }

// CapturesLocal reports the LocalVariable this upvalue ultimately resolves
// to, walking through any chain of outer upvalues.
func (u *UpvalueVariable) CapturesLocal() *LocalVariable {
	for u.Local == nil {
		u = u.Outer
	}
	return u.Local
}

// SSAVariable is a single-assignment variable produced by the SSA pass
// (spec §4.G). It is also the unit type-inference (§4.H) operates over: see
// Type and Assignment below.
type SSAVariable struct {
	DebugInfo DebugInfo
	Name_     string

	// Local is the LocalVariable this SSA variable was renamed from, or nil
	// for a pass-internal temporary with no source-level counterpart.
	Local *LocalVariable

	// Assignment is the single StmtAssign that defines this variable, or
	// nil for function parameters, which have no assignment. Spec §8:
	// "each SSAVariable has exactly one assignment (except function
	// parameters which have none)".
	Assignment *StmtAssign

	// Type is filled in by the type-inference pass; nil both before that
	// pass runs and afterward if the variable's type could not be
	// determined (spec §4.H's "always-safe unknown" case).
	Type *Type

	typeBackend any
}

func (v *SSAVariable) Name() string { return v.Name_ }

func (v *SSAVariable) SetTypeBackendData(d any) { v.typeBackend = d }
func (v *SSAVariable) TypeBackendData() any     { return v.typeBackend }

// GlobalDecl is a module-scope variable: either a top-level `var`, a class
// binding created by StmtDefineClass, or an imported symbol.
type GlobalDecl struct {
	DebugInfo DebugInfo
	Name_     string
}

func (g *GlobalDecl) Name() string { return g.Name_ }

// FieldVariable names a field on the enclosing class. Unlike locals, fields
// are accessed through ExprFieldLoad/StmtFieldAssign rather than
// ExprLoad/StmtAssign, and are never SSA-renamed (spec §3).
type FieldVariable struct {
	DebugInfo DebugInfo
	Name_     string
	Class     *ClassInfo
	Offset    int // byte offset from the object's field block, set by the backend
}

func (f *FieldVariable) Name() string { return f.Name_ }
