package signature

import "testing"

func TestRoundTrip(t *testing.T) {
	cases := []*Signature{
		{Name: "toString", Kind: Getter},
		{Name: "value", Kind: Setter, Arity: 1},
		{Name: "call", Kind: Method, Arity: 0},
		{Name: "call", Kind: Method, Arity: 2},
		{Kind: Subscript, Arity: 1},
		{Kind: Subscript, Arity: 2},
		{Kind: SubscriptSetter, Arity: 2},
		{Kind: SubscriptSetter, Arity: 1},
		{Name: "new", Kind: Initializer, Arity: 0},
		{Name: "new", Kind: Initializer, Arity: 3},
	}

	for _, sig := range cases {
		text := sig.String()
		parsed, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", text, err)
		}
		if parsed.String() != text {
			t.Fatalf("round trip mismatch: %q -> %+v -> %q", text, parsed, parsed.String())
		}
	}
}

func TestIDStable(t *testing.T) {
	a := &Signature{Name: "foo", Kind: Method, Arity: 2}
	b := &Signature{Name: "foo", Kind: Method, Arity: 2}
	if a.ID() != b.ID() {
		t.Fatalf("identical signatures hashed differently: %d vs %d", a.ID(), b.ID())
	}

	c := &Signature{Name: "foo", Kind: Method, Arity: 1}
	if a.ID() == c.ID() {
		t.Fatalf("distinct signatures hashed the same by coincidence (should be astronomically unlikely): %d", a.ID())
	}
}

func TestParseInvalid(t *testing.T) {
	invalid := []string{"", "foo(", "[foo]", "foo=(x)"}
	for _, text := range invalid {
		if _, err := Parse(text); err == nil {
			// "" is rejected explicitly; the others must fail structurally
			// or be rejected by countUnderscores.
			t.Fatalf("Parse(%q) unexpectedly succeeded", text)
		}
	}
}
