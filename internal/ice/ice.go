// Package ice reports internal compiler errors: the spec §7 category that
// "should never trigger" (missing backend data, an SSA variable without a
// type at the end of inference, an unknown IR node) and therefore aborts
// with a diagnostic rather than being collected alongside user-facing
// lex/parse/semantic errors (see internal/compileerr for those).
//
// Every mid-end pass (ir/passes/cleanup, ir/passes/basicblock,
// ir/passes/ssa, ir/passes/typeinfer) signals a violated invariant by
// panicking with a plain string, mirroring the assert()-style aborts in
// original_source/src/passes/*.cpp. Recover turns such a panic into a
// structured, wrapped error instead of letting it escape the driver.
package ice

import (
	"runtime"

	"golang.org/x/xerrors"
)

// Error is an internal compiler error: a pass name, the offending detail,
// and (when recovered from a panic) the wrapped panic value.
type Error struct {
	Pass string
	err  error
}

func (e *Error) Error() string {
	return xerrors.Errorf("internal compiler error in %s pass: %w", e.Pass, e.err).Error()
}

func (e *Error) Unwrap() error { return e.err }

// New builds an internal compiler error attributed to pass, with a
// message built the way fmt.Errorf builds one (%w wraps a lower error,
// matching the teacher's own xerrors.Errorf usage).
func New(pass, format string, args ...interface{}) error {
	return &Error{Pass: pass, err: xerrors.Errorf(format, args...)}
}

// Recover should be deferred around a single pass invocation:
//
//	func runPass(pass string, fn *ir.Fn) (err error) {
//		defer ice.Recover(pass, &err)
//		cleanup.Process(fn)
//		return nil
//	}
//
// A panic with an error value is wrapped with %w (preserving Unwrap);
// any other panic value is rendered with %v. A pass that returns
// normally, or that panics with a runtime.Error (a real bug in this
// compiler, not a checked invariant), is left alone — Recover only
// converts the "this should never happen" string/error panics the passes
// themselves raise.
func Recover(pass string, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if rerr, ok := r.(runtime.Error); ok {
		panic(rerr)
	}
	if err, ok := r.(error); ok {
		*errp = &Error{Pass: pass, err: xerrors.Errorf("%w", err)}
		return
	}
	*errp = &Error{Pass: pass, err: xerrors.Errorf("%v", r)}
}
