// Package ssa converts a function already in basic-block form into SSA
// form, following the on-demand construction algorithm of Braun et al.,
// "Simple and Efficient Construction of Static Single Assignment Form"
// (https://doi.org/10.1007/978-3-642-37051-9_6). It is a direct port of
// original_source/src/passes/SSAPass.{h,cpp}, with the C++ backend-pointer
// bookkeeping (BlockInfo/LocalInfo/SSAInfo attached via BackendNodeData)
// replaced by plain maps owned by the Pass value: Go has no need for a
// type-erased backend-data slot when a map keyed by pointer identity does
// the same job without unsafe casts.
package ssa

import (
	"fmt"
	"strconv"

	"github.com/chances/wrenc/ir"
)

// blockInfo is the per-block bookkeeping the pass needs while it runs; it
// does not survive past Process. Mirrors SSAPass::BlockInfo.
type blockInfo struct {
	fn *ir.Fn

	successors   []*ir.StmtBlock
	predecessors []*ir.StmtBlock

	// prepend collects the Phi-assigning StmtAssigns to splice onto the
	// front of this block once scanning finishes.
	prepend []ir.Stmt

	// exports maps a local to the SSA variable live for it at the end of
	// this block (or the one computed so far, while scanning is ongoing).
	exports map[*ir.LocalVariable]*ir.SSAVariable

	// offers records the in-progress Phi-node offer for a local, letting a
	// recursive ImportVariable call on a loop back-edge find its own
	// not-yet-finished result instead of recursing forever.
	offers map[*ir.LocalVariable]*phiOffer

	loads []*ir.ExprLoad

	scanned bool
}

// varInfo is the per-SSA-variable bookkeeping attached while building. It is
// never touched once Process returns on a variable that was not eliminated.
// Mirrors SSAPass::SSAInfo.
type varInfo struct {
	fn *ir.Fn

	phiUsers  []*ir.ExprPhi
	loadUsers []*ir.ExprLoad

	// replacement is set when this variable was found to be a trivial Phi
	// node and eliminated in favour of another variable.
	replacement *ir.SSAVariable
}

// phiOffer is a promise to produce a Phi node for `target` in `block`, used
// to break the infinite recursion that would otherwise occur on a loop's
// back edge: ImportVariable registers the offer before recursing into
// predecessors, so a predecessor that loops back to this block finds the
// offer instead of calling ImportVariable on it again.
type phiOffer struct {
	target *ir.LocalVariable
	result *ir.SSAVariable
}

// Pass holds the state for converting one function to SSA form. A Pass
// value is single-use: construct a fresh one per function via New.
type Pass struct {
	nextVarID int

	blocks map[*ir.StmtBlock]*blockInfo
	locals map[*ir.LocalVariable]bool // true if eligible for SSA renaming
	vars   map[*ir.SSAVariable]*varInfo
}

// New constructs an SSA pass instance.
func New() *Pass {
	return &Pass{
		nextVarID: 1,
		blocks:    make(map[*ir.StmtBlock]*blockInfo),
		locals:    make(map[*ir.LocalVariable]bool),
		vars:      make(map[*ir.SSAVariable]*varInfo),
	}
}

// Process converts fn, which must already be in basic-block form (spec
// §4.F), to SSA form (spec §4.G).
func Process(fn *ir.Fn) {
	p := New()
	p.process(fn)
}

func (p *Pass) process(fn *ir.Fn) {
	// A local is eligible for SSA renaming unless it has upvalues (writes
	// must remain externally observable to the closures capturing it) or
	// has DisableSSA set (module-import targets, which the backend rewrites
	// by name).
	for _, local := range fn.Locals {
		p.locals[local] = len(local.Upvalues) == 0 && !local.DisableSSA
	}

	blocks := blockList(fn)

	for _, block := range blocks {
		if !block.IsBasicBlock {
			panic("ssa: found a non-basic-block statement in SSA pass input")
		}
		p.blocks[block] = &blockInfo{
			fn:      fn,
			exports: make(map[*ir.LocalVariable]*ir.SSAVariable),
			offers:  make(map[*ir.LocalVariable]*phiOffer),
		}
	}

	for _, block := range blocks {
		bi := p.blocks[block]

		// There can be more than one jump at the end of a block in the case
		// of a conditional jump followed by its synthetic fallthrough, so
		// walk backwards until a non-jump statement is found.
		for i := len(block.Statements) - 1; i >= 0; i-- {
			jump, ok := block.Statements[i].(*ir.StmtJump)
			if !ok {
				break
			}
			bi.successors = append(bi.successors, jump.Target.BasicBlock)
			targetBI := p.blocks[jump.Target.BasicBlock]
			targetBI.predecessors = append(targetBI.predecessors, block)
		}

		p.scanVars(block)
	}

	for _, block := range blocks {
		p.scan(block)
	}

	for _, block := range blocks {
		bi := p.blocks[block]
		if len(block.Statements) == 0 {
			continue
		}
		block.Statements = append(append([]ir.Stmt{}, bi.prepend...), block.Statements...)
		// Only fill in the predecessor list now it's actually needed: this
		// lets blocks with no Phi nodes skip carrying it.
		if len(bi.prepend) > 0 {
			block.SSAInputs = bi.predecessors
		}
	}
}

func blockList(fn *ir.Fn) []*ir.StmtBlock {
	blocks := make([]*ir.StmtBlock, 0, len(fn.Body.Statements))
	for _, stmt := range fn.Body.Statements {
		block, ok := stmt.(*ir.StmtBlock)
		if !ok {
			panic(fmt.Sprintf("ssa: found non-block statement in SSA pass: %T", stmt))
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// ImportVariable looks up the SSA variable that represents local's value at
// the end of block, creating a Phi node if the value was set differently
// across different predecessors. excludeBlock is true when the caller
// already knows the load is not satisfied by something computed earlier in
// this very block (see the comment on the original's ImportVariable).
func (p *Pass) ImportVariable(block *ir.StmtBlock, local *ir.LocalVariable, excludeBlock bool) *ir.SSAVariable {
	bi := p.blocks[block]

	if !excludeBlock {
		p.scan(block)

		if v, ok := bi.exports[local]; ok {
			return v
		}
		if offer, ok := bi.offers[local]; ok {
			return p.produceOffer(block, offer)
		}
	}

	offer := &phiOffer{target: local}
	bi.offers[local] = offer

	vars := make([]*ir.SSAVariable, 0, len(bi.predecessors))
	for _, pred := range bi.predecessors {
		vars = append(vars, p.ImportVariable(pred, local, false))
	}

	// Now that every import (and thus replacement) is resolved, follow any
	// replacement chain before checking for triviality.
	for i, v := range vars {
		for {
			info := p.vars[v]
			if info.replacement == nil {
				break
			}
			v = info.replacement
		}
		vars[i] = v
	}

	result := p.isPhiTrivial(offer.result, vars)

	if result == nil {
		result = p.produceOffer(block, offer)

		phi := &ir.ExprPhi{Inputs: vars}
		phi.DebugInfo.Synthetic = true

		for _, input := range phi.Inputs {
			p.vars[input].phiUsers = append(p.vars[input].phiUsers, phi)
		}

		assignment := ir.NewStmtAssign(result, phi)
		assignment.DebugInfo.Synthetic = true
		result.Assignment = assignment
		phi.Assignment = assignment
		bi.prepend = append(bi.prepend, assignment)
	} else {
		// If the offer's own variable was already produced and is being
		// used elsewhere, replace it with the trivial value we found,
		// recursively simplifying anything that becomes trivial as a
		// result.
		if offer.result != nil {
			p.removeTrivialPhi(offer.result, result)
		}
		for p.vars[result].replacement != nil {
			result = p.vars[result].replacement
		}
	}

	delete(bi.offers, local)

	if _, ok := bi.exports[local]; !ok {
		bi.exports[local] = result
	}
	return result
}

// produceOffer lazily creates offer's output SSA variable, caching it on
// first call so repeated recursive references to the same in-progress offer
// see the same variable.
func (p *Pass) produceOffer(block *ir.StmtBlock, offer *phiOffer) *ir.SSAVariable {
	if offer.result != nil {
		return offer.result
	}

	bi := p.blocks[block]

	v := &ir.SSAVariable{
		Name_: offer.target.Name() + "_phi" + strconv.Itoa(p.nextVarID),
		Local: offer.target,
	}
	p.nextVarID++
	p.vars[v] = &varInfo{fn: bi.fn}
	bi.fn.SSAVars = append(bi.fn.SSAVars, v)

	offer.result = v
	return v
}

// removeTrivialPhi replaces every use of var with replacement, because var
// was found to be a trivial Phi node (one whose only real input is
// replacement). It recurses into any Phi node that becomes trivial as a
// consequence. Mirrors SSAPass::RemoveTrivialPhi.
func (p *Pass) removeTrivialPhi(v *ir.SSAVariable, replacement *ir.SSAVariable) {
	info := p.vars[v]
	repInfo := p.vars[replacement]
	info.replacement = replacement

	for _, load := range info.loadUsers {
		load.Var = replacement
	}
	repInfo.loadUsers = append(repInfo.loadUsers, info.loadUsers...)

	for _, phi := range info.phiUsers {
		assignment := phi.Assignment
		output, ok := assignment.Var.(*ir.SSAVariable)
		if !ok {
			panic(fmt.Sprintf("ssa: phi node writes to non-SSA variable %q", assignment.Var.Name()))
		}

		for i, in := range phi.Inputs {
			if in == v {
				phi.Inputs[i] = replacement
			}
		}

		remaining := p.isPhiTrivial(output, phi.Inputs)
		if remaining == nil {
			continue
		}

		// This Phi node turned out to be redundant too: drop its
		// assignment from the prepend list of whichever block it lives in,
		// and stop tracking it as a user of its own inputs.
		p.removePrependedAssignment(assignment)
		p.vars[remaining].phiUsers = removePhiUser(p.vars[remaining].phiUsers, phi)

		p.removeTrivialPhi(output, remaining)
	}

	p.removeSSAVar(info.fn, v)
}

// isPhiTrivial reports whether a Phi node with the given inputs is
// redundant: every input is either output itself (a self-reference on a
// loop back edge) or the exact same other variable. If so, it returns that
// one other variable; otherwise nil.
func (p *Pass) isPhiTrivial(output *ir.SSAVariable, inputs []*ir.SSAVariable) *ir.SSAVariable {
	var only *ir.SSAVariable
	hasMultiple := false
	for _, v := range inputs {
		if v == output {
			continue
		}
		if only == nil {
			only = v
		} else if only != v {
			hasMultiple = true
		}
	}
	if hasMultiple {
		return nil
	}
	return only
}

// scan imports every cross-block load recorded against block, memoizing per
// local within the block so repeated loads of the same variable don't each
// create their own Phi node.
func (p *Pass) scan(block *ir.StmtBlock) {
	bi := p.blocks[block]
	if bi.scanned {
		return
	}
	bi.scanned = true

	cache := make(map[*ir.LocalVariable]*ir.SSAVariable)
	for _, load := range bi.loads {
		local, ok := load.Var.(*ir.LocalVariable)
		if !ok {
			continue
		}

		v, ok := cache[local]
		if !ok {
			v = p.ImportVariable(block, local, true)
			cache[local] = v
		}

		load.Var = v
		p.vars[v].loadUsers = append(p.vars[v].loadUsers, load)
	}
}

// scanVars walks block's own statements (in source order, so a write is
// seen before later reads within the same block) and: renames every
// StmtAssign target that is an SSA-eligible local to a fresh SSAVariable,
// recording it as this block's export; and records every ExprLoad of an
// SSA-eligible local not yet assigned earlier in this block as needing a
// cross-block import once scanning runs. Mirrors SSAPass::VarScanner.
func (p *Pass) scanVars(block *ir.StmtBlock) {
	bi := p.blocks[block]

	for _, stmt := range block.Statements {
		switch s := stmt.(type) {
		case *ir.StmtAssign:
			// Visit the expression before renaming the target, in case it
			// loads from the same local being assigned here.
			p.scanExprLoads(block, s.Expr_)

			local, ok := s.Var.(*ir.LocalVariable)
			if !ok || !p.locals[local] {
				continue
			}

			v := &ir.SSAVariable{
				Name_:      local.Name_ + "_ssa" + strconv.Itoa(p.nextVarID),
				Local:      local,
				Assignment: s,
			}
			p.nextVarID++
			p.vars[v] = &varInfo{fn: bi.fn}
			bi.fn.SSAVars = append(bi.fn.SSAVars, v)

			s.Var = v
			bi.exports[local] = v

		case *ir.StmtFieldAssign:
			p.scanExprLoads(block, s.Value)
			if s.ThisOverride != nil {
				p.scanExprLoads(block, s.ThisOverride)
			}
		case *ir.StmtEvalAndIgnore:
			p.scanExprLoads(block, s.Expr)
		case *ir.StmtReturn:
			if s.Value != nil {
				p.scanExprLoads(block, s.Value)
			}
		case *ir.StmtJump:
			if s.Condition != nil {
				p.scanExprLoads(block, s.Condition)
			}
		case *ir.StmtLabel:
			// No expressions to scan.
		default:
			panic(fmt.Sprintf("ssa: unexpected statement kind in basic block: %T", stmt))
		}
	}
}

// scanExprLoads recurses through e looking for ExprLoads of SSA-eligible
// locals. A load already satisfied by something exported earlier in this
// very block is rewritten immediately; everything else is queued onto the
// block's loads list, to be resolved (possibly across blocks, possibly with
// a Phi node) once every block has finished its local numbering pass.
func (p *Pass) scanExprLoads(block *ir.StmtBlock, e ir.Expr) {
	bi := p.blocks[block]

	switch ex := e.(type) {
	case *ir.ExprLoad:
		local, ok := ex.Var.(*ir.LocalVariable)
		if !ok || !p.locals[local] {
			return
		}
		if v, ok := bi.exports[local]; ok {
			ex.Var = v
			return
		}
		bi.loads = append(bi.loads, ex)

	case *ir.ExprFuncCall:
		p.scanExprLoads(block, ex.Receiver)
		for _, a := range ex.Args {
			p.scanExprLoads(block, a)
		}
	case *ir.ExprFieldLoad:
		if ex.ThisOverride != nil {
			p.scanExprLoads(block, ex.ThisOverride)
		}
	}
}

func (p *Pass) removePrependedAssignment(assignment *ir.StmtAssign) {
	for _, bi := range p.blocks {
		for i, s := range bi.prepend {
			if s == ir.Stmt(assignment) {
				bi.prepend = append(bi.prepend[:i], bi.prepend[i+1:]...)
				return
			}
		}
	}
}

func (p *Pass) removeSSAVar(fn *ir.Fn, v *ir.SSAVariable) {
	for i, sv := range fn.SSAVars {
		if sv == v {
			fn.SSAVars = append(fn.SSAVars[:i], fn.SSAVars[i+1:]...)
			return
		}
	}
}

func removePhiUser(users []*ir.ExprPhi, phi *ir.ExprPhi) []*ir.ExprPhi {
	for i, u := range users {
		if u == phi {
			return append(users[:i], users[i+1:]...)
		}
	}
	return users
}
