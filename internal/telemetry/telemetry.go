// Package telemetry is this module's internal/event-derived tracing
// package (SPEC_FULL §2 Ambient Stack): typed keys, a context-scoped
// exporter, and spans per compilation phase, for diagnostic and trace
// output (pass timings, GC cycle summaries, fiber switches when a debug
// flag is set).
//
// The teacher pack's own copy of internal/event is fragmentary — only
// internal/event/keys/util_test.go (testing a Join helper over typed
// keys) and internal/event/export/printer.go (a timestamp-prefixed,
// label-appending line writer) survived the retrieval pack's filtering,
// with the core event/label/context machinery both of them depend on
// missing. This package reimplements the pattern those two fragments
// show — sorted, joined label keys; a timestamp-and-message line per
// event, followed by its "key=value" pairs — as a small, self-contained exporter
// rather than depending on the otel subpackage's missing machinery (see
// DESIGN.md's deleted-module entry for internal/event).
package telemetry

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Label is one key/value pair attached to an event or span.
type Label struct {
	Key   string
	Value interface{}
}

// Exporter receives every event and completed span. Tests can install a
// recording Exporter; production code installs a Printer.
type Exporter interface {
	Export(name string, at time.Time, dur time.Duration, labels []Label)
}

type exporterKey struct{}

// WithExporter returns a context that routes Log and span completions to
// exp, following the teacher's context-scoped-exporter convention rather
// than a package-level global, so concurrent compiler-driver goroutines
// (package driver) don't contend on shared state.
func WithExporter(ctx context.Context, exp Exporter) context.Context {
	return context.WithValue(ctx, exporterKey{}, exp)
}

func exporterFrom(ctx context.Context) Exporter {
	if exp, ok := ctx.Value(exporterKey{}).(Exporter); ok {
		return exp
	}
	return nopExporter{}
}

type nopExporter struct{}

func (nopExporter) Export(string, time.Time, time.Duration, []Label) {}

// Log records a zero-duration event, e.g. a GC cycle summary or a fiber
// switch, with the labels sorted into a stable order (matching the
// Join-then-print shape keys/util_test.go and export/printer.go show).
func Log(ctx context.Context, msg string, labels ...Label) {
	exporterFrom(ctx).Export(msg, time.Now(), 0, sortLabels(labels))
}

// span is an in-flight compilation phase.
type span struct {
	name  string
	start time.Time
	exp   Exporter
}

// StartSpan begins a named span (one per compilation phase: cleanup,
// basicblock, ssa, typeinfer, or a whole module). Call the returned End
// func with any labels gathered during the span (e.g. the node count a
// pass processed) when the phase completes.
func StartSpan(ctx context.Context, name string) (end func(labels ...Label)) {
	s := &span{name: name, start: time.Now(), exp: exporterFrom(ctx)}
	return func(labels ...Label) {
		s.exp.Export(s.name, s.start, time.Since(s.start), sortLabels(labels))
	}
}

func sortLabels(labels []Label) []Label {
	out := append([]Label(nil), labels...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Printer is the production Exporter, following export/printer.go's
// format: a header line (timestamp, name, and the duration for a span),
// then each "key=value" pair on its own tab-indented line, written to W.
// Export holds a mutex while writing, so concurrent events do not
// interleave.
type Printer struct {
	W  io.Writer
	mu sync.Mutex
}

func (p *Printer) Export(name string, at time.Time, dur time.Duration, labels []Label) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	b.WriteString(at.Format("2006/01/02 15:04:05 "))
	b.WriteString(name)
	if dur > 0 {
		fmt.Fprintf(&b, " (%s)", dur)
	}
	for _, l := range labels {
		fmt.Fprintf(&b, "\n\t%s=%v", l.Key, l.Value)
	}
	b.WriteString("\n")
	io.WriteString(p.W, b.String())
}
