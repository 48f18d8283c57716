package telemetry

import (
	"context"
	"strings"
	"testing"
	"time"
)

type recordingExporter struct {
	calls []string
}

func (r *recordingExporter) Export(name string, at time.Time, dur time.Duration, labels []Label) {
	r.calls = append(r.calls, name)
}

func TestLogRoutesThroughContextExporter(t *testing.T) {
	rec := &recordingExporter{}
	ctx := WithExporter(context.Background(), rec)
	Log(ctx, "gc cycle", Label{Key: "reclaimed", Value: 12})

	if len(rec.calls) != 1 || rec.calls[0] != "gc cycle" {
		t.Fatalf("expected one 'gc cycle' export, got %v", rec.calls)
	}
}

func TestLogWithoutExporterDoesNotPanic(t *testing.T) {
	Log(context.Background(), "orphaned event")
}

func TestStartSpanRecordsNonZeroDuration(t *testing.T) {
	var gotDur time.Duration
	exp := exportFunc(func(name string, at time.Time, dur time.Duration, labels []Label) {
		gotDur = dur
	})
	ctx := WithExporter(context.Background(), exp)

	end := StartSpan(ctx, "ssa")
	time.Sleep(time.Millisecond)
	end(Label{Key: "blocks", Value: 4})

	if gotDur <= 0 {
		t.Fatalf("expected a positive span duration, got %v", gotDur)
	}
}

type exportFunc func(name string, at time.Time, dur time.Duration, labels []Label)

func (f exportFunc) Export(name string, at time.Time, dur time.Duration, labels []Label) {
	f(name, at, dur, labels)
}

func TestPrinterFormatsTimestampNameAndLabels(t *testing.T) {
	var buf strings.Builder
	p := &Printer{W: &buf}
	ctx := WithExporter(context.Background(), p)

	Log(ctx, "pass complete", Label{Key: "pass", Value: "cleanup"}, Label{Key: "nodes", Value: 42})

	out := buf.String()
	if !strings.Contains(out, "pass complete") {
		t.Fatalf("expected output to contain the event name, got %q", out)
	}
	if !strings.Contains(out, "nodes=42") || !strings.Contains(out, "pass=cleanup") {
		t.Fatalf("expected output to contain both labels, got %q", out)
	}
	// labels are sorted by key: "nodes" before "pass".
	if strings.Index(out, "nodes=42") > strings.Index(out, "pass=cleanup") {
		t.Fatalf("expected labels in sorted-by-key order, got %q", out)
	}
}
