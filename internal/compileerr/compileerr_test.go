package compileerr

import "testing"

func TestHasErrorsReflectsRecordedDiagnostics(t *testing.T) {
	var l List
	if l.HasErrors() {
		t.Fatal("empty list should report HasErrors() == false")
	}
	l.Add("main", 3, "duplicate method %q", "foo()")
	if !l.HasErrors() {
		t.Fatal("expected HasErrors() == true after Add")
	}
}

func TestSortOrdersByModuleThenLine(t *testing.T) {
	var l List
	l.Add("b", 5, "z")
	l.Add("a", 10, "y")
	l.Add("a", 2, "x")
	l.Sort()

	got := l.All()
	want := []Diagnostic{
		{Module: "a", Line: 2, Msg: "x"},
		{Module: "a", Line: 10, Msg: "y"},
		{Module: "b", Line: 5, Msg: "z"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d diagnostics, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestDedupRemovesExactDuplicates(t *testing.T) {
	var l List
	l.Add("main", 1, "use before declare: %s", "n")
	l.Add("main", 1, "use before declare: %s", "n")
	l.Add("main", 1, "redeclared variable: %s", "n")
	l.Dedup()

	if l.Len() != 2 {
		t.Fatalf("expected 2 diagnostics after dedup, got %d", l.Len())
	}
}

func TestDiagnosticStringOmitsLineWhenZero(t *testing.T) {
	d := Diagnostic{Module: "main", Msg: "module not found"}
	if got, want := d.String(), "main: module not found"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	d.Line = 7
	if got, want := d.String(), "main:7: module not found"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestErrorJoinsAllDiagnostics(t *testing.T) {
	var l List
	l.Add("main", 1, "first")
	l.Add("main", 2, "second")
	var err error = &l
	if got := err.Error(); got != "main:1: first\nmain:2: second" {
		t.Fatalf("unexpected Error() output: %q", got)
	}
}
