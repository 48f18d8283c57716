// Package basicblock implements the basic-block formation pass (spec §4.F),
// the second of the four mid-end passes. It is grounded directly on
// original_source/src/passes/BasicBlockPass.cpp: a single forward scan over
// the (already-flattened, post-cleanup) statement list that carves it into
// single-entry/single-exit StmtBlocks, inserting synthetic fallthrough
// label/jump pairs at every conditional-jump boundary.
package basicblock

import "github.com/chances/wrenc/ir"

// Process replaces fn.Body's statement list with a list of basic blocks: the
// top-level StmtBlock's direct children are all themselves *ir.StmtBlock
// values with IsBasicBlock set, and every statement inside them belongs to
// exactly one such block.
func Process(fn *ir.Fn) {
	contents := fn.Body

	var newContents []ir.Stmt
	current := createBasicBlock(&newContents)

	lastWasUnconditionalBranch := false

	for _, statement := range contents.Statements {
		prevUnconditionalBranch := lastWasUnconditionalBranch
		lastWasUnconditionalBranch = statement.IsUnconditionalBranch()

		if _, ok := statement.(*ir.StmtBlock); ok {
			panic("basicblock: nested blocks are not allowed on entry to this pass")
		}

		if label, ok := statement.(*ir.StmtLabel); ok {
			// A fallthrough into the new block is needed unless the
			// previous statement already left via an unconditional branch
			// (in which case it would be dead code, and is in fact illegal
			// under single-entry/single-exit block rules).
			if !prevUnconditionalBranch {
				jumpToNext := &ir.StmtJump{Target: label}
				jumpToNext.DebugInfo.Synthetic = true
				current.Statements = append(current.Statements, jumpToNext)
			}

			current = createBasicBlock(&newContents)
			current.Statements = append(current.Statements, label)
			label.BasicBlock = current

			continue
		}

		current.Statements = append(current.Statements, statement)

		// Unconditional branches (including returns) end the current block
		// with nothing permitted to follow until the next label.
		if statement.IsUnconditionalBranch() {
			current = nil
			continue
		}

		if jump, ok := statement.(*ir.StmtJump); ok {
			// A conditional jump still needs a block boundary right after
			// it: synthesize a fallthrough label/jump pair. The current
			// block ends with two jumps (the conditional one, then the
			// synthetic unconditional one), which is fine since our jump
			// representation has no implicit "fall through on false" edge.
			_ = jump
			fallthroughLabel := &ir.StmtLabel{Name: "cond-jump-fallthrough"}
			fallthroughJump := &ir.StmtJump{Target: fallthroughLabel}

			fallthroughLabel.DebugInfo.Synthetic = true
			fallthroughJump.DebugInfo.Synthetic = true

			current.Statements = append(current.Statements, fallthroughJump)
			current = createBasicBlock(&newContents)
			current.Statements = append(current.Statements, fallthroughLabel)
			fallthroughLabel.BasicBlock = current

			continue
		}
	}

	contents.Statements = newContents
}

func createBasicBlock(newContents *[]ir.Stmt) *ir.StmtBlock {
	block := &ir.StmtBlock{IsBasicBlock: true}
	block.DebugInfo.Synthetic = true
	*newContents = append(*newContents, block)
	return block
}
