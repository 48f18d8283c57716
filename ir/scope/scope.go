// Package scope implements the lexical scope stack used while lowering a
// parsed function body into IR: name resolution for locals, and the
// bookkeeping needed to register a local with its enclosing
// StmtBeginUpvalues as soon as it is declared in a frame that has one.
// It is a direct port
// of original_source/src/Scope.{h,cpp}'s ScopeStack/ScopeFrame, the one
// piece of IR-adjacent infrastructure that lives upstream of the four mid-
// end passes (spec §4.D) rather than inside any one of them.
package scope

import "github.com/chances/wrenc/ir"

// Frame is one nested lexical scope: a block, a loop body, a function body.
type Frame struct {
	parent *Frame

	// upvalueContainer is the StmtBeginUpvalues every local added to this
	// frame registers itself with, at the moment it is added, whether or
	// not a closure ends up capturing it. Scopes without one (most of
	// them) leave this nil.
	upvalueContainer *ir.StmtBeginUpvalues

	locals map[string]*ir.LocalVariable
}

// Stack is a function's lexical scope stack: a LIFO sequence of Frames,
// searched innermost-first by Lookup.
type Stack struct {
	frames []*Frame
}

// New returns an empty scope stack. Push a frame before calling Add.
func New() *Stack {
	return &Stack{}
}

func (s *Stack) top() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Lookup searches from the innermost frame outward for a local named name,
// returning nil if no such local is in scope.
func (s *Stack) Lookup(name string) *ir.LocalVariable {
	for f := s.top(); f != nil; f = f.parent {
		if v, ok := f.locals[name]; ok {
			return v
		}
	}
	return nil
}

// Add registers var in the innermost frame. It reports false without
// modifying anything if a local with the same name already exists in that
// exact frame (shadowing an outer frame's variable of the same name is
// fine; redeclaring within the same frame is not).
func (s *Stack) Add(v *ir.LocalVariable) bool {
	top := s.top()
	if top == nil {
		panic("scope: Add called with no frame pushed")
	}

	if _, exists := top.locals[v.Name_]; exists {
		return false
	}
	top.locals[v.Name_] = v

	if top.upvalueContainer != nil {
		top.upvalueContainer.Variables = append(top.upvalueContainer.Variables, v)
		v.BeginUpvalues = top.upvalueContainer
	}

	return true
}

// VariableCount returns the number of locals visible from the current
// frame, counting every outer frame's locals too (including ones shadowed
// by an inner frame's variable of the same name).
func (s *Stack) VariableCount() int {
	count := 0
	for f := s.top(); f != nil; f = f.parent {
		count += len(f.locals)
	}
	return count
}

// PushFrame opens a new innermost scope. upvalues, if non-nil, is the
// StmtBeginUpvalues that locals declared directly in this frame register
// themselves with when Add declares them.
func (s *Stack) PushFrame(upvalues *ir.StmtBeginUpvalues) {
	f := &Frame{parent: s.top(), upvalueContainer: upvalues, locals: make(map[string]*ir.LocalVariable)}
	s.frames = append(s.frames, f)
}

// PopFrame closes the innermost scope.
func (s *Stack) PopFrame() {
	s.frames = s.frames[:len(s.frames)-1]
}

// TopFrame returns the index of the current innermost frame, suitable for
// passing to FramesSince later (e.g. to know which frames a `break` or
// `return` needs to unwind through).
func (s *Stack) TopFrame() int {
	return len(s.frames) - 1
}

// FramesSince returns every frame from index since (as returned by
// TopFrame at some earlier point) up to and including the current top,
// in outer-to-inner order.
func (s *Stack) FramesSince(since int) []*Frame {
	return append([]*Frame{}, s.frames[since:]...)
}
