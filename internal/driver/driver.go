// Package driver runs the mid-end pass pipeline (cleanup, basicblock,
// ssa, typeinfer) over a batch of modules. Spec §1 states each module is
// compiled independently with no transitive importing, so a batch
// invocation over N input files is an embarrassingly parallel fan-out:
// CompileAll uses golang.org/x/sync/errgroup, the teacher's own
// dependency for exactly this shape, to compile every module
// concurrently and cancel the rest on the first internal compiler error.
package driver

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/chances/wrenc/internal/ice"
	"github.com/chances/wrenc/internal/telemetry"
	"github.com/chances/wrenc/ir"
	"github.com/chances/wrenc/ir/passes/basicblock"
	"github.com/chances/wrenc/ir/passes/cleanup"
	"github.com/chances/wrenc/ir/passes/ssa"
	"github.com/chances/wrenc/ir/passes/typeinfer"
)

// ModuleSource is one module's already-parsed function bodies, handed
// to the driver by an external frontend (lexer/parser are out of scope,
// spec §1). Name is used only for diagnostics and span labels.
type ModuleSource struct {
	Name      string
	Functions []*ir.Fn
}

// Result is one module's outcome: Err is non-nil for an internal
// compiler error (package ice) aborting that module, or for ctx's own
// error when the context was cancelled before the module finished (see
// CompileAll); lex/parse/semantic
// diagnostics belong in a separate compileerr.List gathered by the
// frontend, not here, since this driver only runs the mid-end.
type Result struct {
	Name string
	Err  error
}

type passStep struct {
	name string
	run  func(fn *ir.Fn)
}

var pipeline = []passStep{
	{"cleanup", cleanup.Process},
	{"basicblock", basicblock.Process},
	{"ssa", ssa.Process},
	{"typeinfer", typeinfer.Process},
}

func runPass(ctx context.Context, name string, fn *ir.Fn, run func(fn *ir.Fn)) (err error) {
	defer ice.Recover(name, &err)
	end := telemetry.StartSpan(ctx, name)
	run(fn)
	end(telemetry.Label{Key: "fn", Value: fn.DebugName})
	return nil
}

// CompileModule runs the full pipeline over every function in src, in
// order, stopping at the first function/pass that raises an internal
// compiler error, or before the next function once ctx is cancelled.
func CompileModule(ctx context.Context, src ModuleSource) Result {
	end := telemetry.StartSpan(ctx, "module")
	defer end(telemetry.Label{Key: "module", Value: src.Name})

	for _, fn := range src.Functions {
		if err := ctx.Err(); err != nil {
			return Result{Name: src.Name, Err: err}
		}
		for _, step := range pipeline {
			if err := runPass(ctx, step.name, fn, step.run); err != nil {
				return Result{Name: src.Name, Err: fmt.Errorf("module %s, function %s: %w", src.Name, fn.DebugName, err)}
			}
		}
	}
	return Result{Name: src.Name}
}

// CompileAll compiles every source concurrently, returning one Result
// per source (in input order, regardless of completion order) and the
// first error encountered, which also cancels any modules still in
// flight via the errgroup's shared context.
func CompileAll(ctx context.Context, sources []ModuleSource) ([]Result, error) {
	results := make([]Result, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			res := CompileModule(gctx, src)
			results[i] = res
			return res.Err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
