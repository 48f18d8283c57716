// Package typeinfer implements the worklist-based type inference pass
// (spec §4.H), the last of the four mid-end passes. It is a direct port of
// original_source/src/passes/TypeInferencePass.{h,cpp}: every SSAVariable's
// type is computed as a function of its assignment's dependencies, Phi
// nodes are allowed to resolve provisionally from a single known input
// (letting a loop-carried variable's type converge across back-edges), and
// the whole thing runs to a fixpoint on a worklist seeded from
// dependency-free variables.
package typeinfer

import (
	"fmt"

	"github.com/chances/wrenc/ir"
)

// varInfo is the per-variable bookkeeping the worklist algorithm needs.
// Mirrors TypeInferencePass::VarInfo.
type varInfo struct {
	reverseDeps []*ir.SSAVariable
	deps        []*ir.SSAVariable

	// lastUpdateCycle avoids evaluating the same variable twice within one
	// worklist sweep.
	lastUpdateCycle int

	// firstUnsetInput is the first index into deps not yet known to be
	// set; -1 once every dependency is set (or for a Phi node, which is
	// eligible to run as soon as its first dependency is known). 0 forces a
	// full re-check the first time this variable is visited.
	firstUnsetInput int

	// setType is true once this variable's type has been computed, even if
	// that type is nil (unknown).
	setType bool
}

// Pass holds the state for one function's worklist. A Pass is single-use;
// construct a fresh one per function via New.
type Pass struct {
	reg      *Registry
	core     map[string]fnInfo
	vars     map[*ir.SSAVariable]*varInfo
	workList []*ir.SSAVariable
}

// New constructs a type-inference pass, building its own type Registry.
func New() *Pass {
	reg := NewRegistry()
	return &Pass{
		reg:  reg,
		core: coreFunctionInfo(reg),
		vars: make(map[*ir.SSAVariable]*varInfo),
	}
}

// Process runs type inference over fn, which must already be in SSA form
// (spec §4.G having already run). Every SSAVariable in fn.SSAVars and
// fn.Temporaries ends with its Type field set (possibly to nil, meaning
// unknown), and every ExprFuncCall whose receiver and arguments are all
// provably typed gets its Intrinsic field filled in.
func Process(fn *ir.Fn) {
	p := New()
	p.process(fn)
}

// Registry exposes the pass's interned types, for callers (backend, tests)
// that need to compare against a known type without running inference
// themselves.
func (p *Pass) Registry() *Registry { return p.reg }

func (p *Pass) process(fn *ir.Fn) {
	allVars := make([]*ir.SSAVariable, 0, len(fn.SSAVars)+len(fn.Temporaries))
	allVars = append(allVars, fn.SSAVars...)
	allVars = append(allVars, fn.Temporaries...)

	for _, v := range allVars {
		p.vars[v] = &varInfo{lastUpdateCycle: -1}
	}

	for _, v := range allVars {
		p.setupVariable(v)
	}

	cycle := 1
	for len(p.workList) > 0 {
		current := p.workList
		p.workList = nil

		for _, v := range current {
			if v.Assignment == nil {
				continue
			}
			info := p.vars[v]

			if info.lastUpdateCycle == cycle {
				continue
			}
			info.lastUpdateCycle = cycle

			if info.firstUnsetInput != -1 {
				hitNotSet := false
				for {
					if info.firstUnsetInput == len(info.deps) {
						info.firstUnsetInput = -1
						break
					}
					dep := p.vars[info.deps[info.firstUnsetInput]]
					if dep.setType {
						info.firstUnsetInput++
						continue
					}
					hitNotSet = true
					break
				}
				if hitNotSet {
					continue
				}
			}

			newType := p.processExpr(v.Assignment.Expr())

			if newType == v.Type && info.setType {
				continue
			}

			info.setType = true
			v.Type = newType

			p.workList = append(p.workList, info.reverseDeps...)
		}

		cycle++
	}

	for _, v := range allVars {
		info := p.vars[v]
		if !info.setType {
			panic(fmt.Sprintf("typeinfer: variable %q ended without having a type set", v.Name()))
		}
	}
}

func (p *Pass) setupVariable(v *ir.SSAVariable) {
	info := p.vars[v]

	if v.Assignment == nil {
		// Function parameters and pass-internal temporaries with no
		// assignment can never be resolved by expression evaluation; leave
		// them permanently unknown but resolved, so the fixpoint check
		// doesn't trip over them.
		info.setType = true
		return
	}

	expr := v.Assignment.Expr()

	markDep := func(dep *ir.SSAVariable) {
		// A dependency that will never be visited (no assignment of its
		// own) must not be registered, or this variable would never reach
		// the worklist.
		if dep.Assignment == nil {
			return
		}
		depInfo := p.vars[dep]
		depInfo.reverseDeps = append(depInfo.reverseDeps, v)
		info.deps = append(info.deps, dep)
	}

	if phi, ok := expr.(*ir.ExprPhi); ok {
		p.getExprDepsPhi(phi, markDep)
		// A Phi node may run with only its first known input, so it never
		// waits on firstUnsetInput the way every other node does.
		info.firstUnsetInput = -1
		return
	}

	p.getExprDeps(expr, markDep)

	if len(info.deps) == 0 {
		p.workList = append(p.workList, v)
	}
}

func (p *Pass) getExprDeps(expr ir.Expr, markDep func(*ir.SSAVariable)) {
	switch e := expr.(type) {
	case *ir.ExprConst:
	case *ir.ExprLoad:
		if v, ok := e.Var.(*ir.SSAVariable); ok {
			markDep(v)
		}
	case *ir.ExprLoadReceiver:
	case *ir.ExprFuncCall:
		p.getExprDeps(e.Receiver, markDep)
		for _, a := range e.Args {
			p.getExprDeps(a, markDep)
		}
	case *ir.ExprSystemVar:
	case *ir.ExprAllocateInstanceMemory:
	case *ir.ExprClosure:
	case *ir.ExprFieldLoad:
	case *ir.ExprGetClassVar:
	default:
		panic(fmt.Sprintf("typeinfer: unknown expression type %T in dependency scan", expr))
	}
}

func (p *Pass) getExprDepsPhi(phi *ir.ExprPhi, markDep func(*ir.SSAVariable)) {
	for _, v := range phi.Inputs {
		markDep(v)
	}
}

func (p *Pass) processExpr(expr ir.Expr) *ir.Type {
	switch e := expr.(type) {
	case *ir.ExprConst:
		return p.processConst(e)
	case *ir.ExprLoad:
		return p.processLoad(e)
	case *ir.ExprLoadReceiver:
		// TODO: types for user-defined classes, once the backend carries a
		// notion of "this class's instance type".
		return nil
	case *ir.ExprFuncCall:
		return p.processFuncCall(e)
	case *ir.ExprSystemVar:
		// TODO: support statically-typed system variables.
		return nil
	case *ir.ExprAllocateInstanceMemory:
		// Only used by the small generated allocation shims; its value's
		// type doesn't matter for intrinsic lowering.
		return nil
	case *ir.ExprClosure:
		return p.reg.SysClass("ObjFn")
	case *ir.ExprFieldLoad:
		// Fields aren't typed.
		return nil
	case *ir.ExprGetClassVar:
		return nil
	case *ir.ExprPhi:
		return p.processPhi(e)
	default:
		panic(fmt.Sprintf("typeinfer: unknown expression type %T", expr))
	}
}

func (p *Pass) processConst(expr *ir.ExprConst) *ir.Type {
	switch expr.Value.Kind {
	case ir.CcUndefined:
		return nil
	case ir.CcNull:
		return p.reg.Null()
	case ir.CcString:
		return p.reg.SysClass("ObjString")
	case ir.CcBool:
		return p.reg.SysClass("ObjBool")
	case ir.CcNum:
		return p.reg.Num()
	default:
		panic(fmt.Sprintf("typeinfer: invalid constant kind %d", expr.Value.Kind))
	}
}

func (p *Pass) processLoad(expr *ir.ExprLoad) *ir.Type {
	v, ok := expr.Var.(*ir.SSAVariable)
	if !ok {
		// Locals and globals aren't typed.
		return nil
	}
	info := p.vars[v]
	if !info.setType {
		panic(fmt.Sprintf("typeinfer: found non-set variable %q in ExprLoad", v.Name()))
	}
	return v.Type
}

func (p *Pass) processFuncCall(expr *ir.ExprFuncCall) *ir.Type {
	receiverType := p.processExpr(expr.Receiver)
	if receiverType == nil {
		expr.Intrinsic = ir.IntrinsicNone
		return nil
	}

	var coreName string
	switch receiverType.Kind {
	case ir.TypeNull:
		coreName = "ObjNull"
	case ir.TypeNum:
		coreName = "ObjNumClass"
	case ir.TypeObject:
		// TODO: user-defined object types.
		expr.Intrinsic = ir.IntrinsicNone
		return nil
	case ir.TypeObjectSystem:
		coreName = receiverType.SystemClassName
	default:
		expr.Intrinsic = ir.IntrinsicNone
		return nil
	}

	info, ok := p.core[coreName+"|"+expr.Signature.String()]
	if !ok {
		// Might be a real wren_core method this table just doesn't carry;
		// treated the same as "unknown" rather than an error.
		expr.Intrinsic = ir.IntrinsicNone
		return nil
	}

	areArgsCorrect := len(expr.Args) == len(info.argTypes)
	for i := 0; areArgsCorrect && i < len(expr.Args); i++ {
		argType := p.processExpr(expr.Args[i])
		if argType != info.argTypes[i] {
			areArgsCorrect = false
		}
	}

	if areArgsCorrect {
		expr.Intrinsic = info.intrinsic
	} else {
		// Mismatched argument types still dispatch normally at runtime
		// (Wren has no overloading; a bad-argument call surfaces as a
		// runtime fault instead), so it must not be lowered to an
		// intrinsic that would skip that check.
		expr.Intrinsic = ir.IntrinsicNone
	}

	return info.returnType
}

func (p *Pass) processPhi(expr *ir.ExprPhi) *ir.Type {
	var only *ir.Type
	numFound := 0

	for _, v := range expr.Inputs {
		info := p.vars[v]
		if !info.setType {
			continue
		}
		if numFound == 0 {
			only = v.Type
		} else if only != v.Type {
			return nil
		}
		numFound++
	}

	if numFound == 0 {
		panic("typeinfer: phi node evaluated without any set inputs")
	}

	return only
}
