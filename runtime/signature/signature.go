// Package signature implements method signatures: the {name, kind, arity}
// triples that identify a dispatchable method, their canonical string form,
// and the 64-bit hash used to key a class's method table (spec §3
// "Signature", §4.J dispatch).
package signature

import (
	"fmt"
	"strings"
)

// Kind is one of the six ways a signature can be invoked. Spec §3.
type Kind int

const (
	Getter Kind = iota
	Setter
	Method
	Subscript
	SubscriptSetter
	Initializer
)

// Signature identifies a dispatchable method: its name, its call kind, and
// its arity (the setter's implicit value argument and the
// subscript-setter's implicit value argument are both counted in Arity).
type Signature struct {
	Name  string
	Kind  Kind
	Arity int
}

func underscoreList(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "_"
	}
	return strings.Join(parts, ",")
}

// String renders the canonical form used for hashing and for the
// ADD_METHOD class-descriptor command (spec §6). Every concrete Kind has a
// distinct shape, so String is injective and [Parse] is its exact inverse
// (spec §8 testable property #3).
func (s *Signature) String() string {
	switch s.Kind {
	case Getter:
		return s.Name
	case Setter:
		return s.Name + "=(_)"
	case Method:
		return s.Name + "(" + underscoreList(s.Arity) + ")"
	case Subscript:
		return "[" + underscoreList(s.Arity) + "]"
	case SubscriptSetter:
		// The final "(_)" is the assigned value; the bracketed arguments
		// are the subscript indices, one fewer than the total Arity.
		return "[" + underscoreList(s.Arity-1) + "]=(_)"
	case Initializer:
		return "init " + s.Name + "(" + underscoreList(s.Arity) + ")"
	default:
		panic(fmt.Sprintf("signature: invalid kind %d", s.Kind))
	}
}

// Parse recovers a Signature from its canonical string form. It is the
// exact inverse of String: for every Signature s, Parse(s.String()) yields
// a Signature equal to s, and for every valid canonical string text,
// Parse(text).String() == text.
func Parse(text string) (*Signature, error) {
	switch {
	case strings.HasPrefix(text, "init "):
		rest := text[len("init "):]
		name, arity, err := parseNameAndArgs(rest)
		if err != nil {
			return nil, fmt.Errorf("signature: parsing initializer %q: %w", text, err)
		}
		return &Signature{Name: name, Kind: Initializer, Arity: arity}, nil

	case strings.HasPrefix(text, "["):
		if strings.HasSuffix(text, "]=(_)") {
			inner := text[1 : len(text)-len("]=(_)")]
			n, err := countUnderscores(inner)
			if err != nil {
				return nil, fmt.Errorf("signature: parsing subscript setter %q: %w", text, err)
			}
			return &Signature{Kind: SubscriptSetter, Arity: n + 1}, nil
		}
		if strings.HasSuffix(text, "]") {
			inner := text[1 : len(text)-1]
			n, err := countUnderscores(inner)
			if err != nil {
				return nil, fmt.Errorf("signature: parsing subscript %q: %w", text, err)
			}
			return &Signature{Kind: Subscript, Arity: n}, nil
		}
		return nil, fmt.Errorf("signature: malformed subscript form %q", text)

	default:
		if idx := strings.IndexByte(text, '('); idx >= 0 {
			if !strings.HasSuffix(text, ")") {
				return nil, fmt.Errorf("signature: malformed method form %q", text)
			}
			name := text[:idx]
			inner := text[idx+1 : len(text)-1]
			n, err := countUnderscores(inner)
			if err != nil {
				return nil, fmt.Errorf("signature: parsing method %q: %w", text, err)
			}
			return &Signature{Name: name, Kind: Method, Arity: n}, nil
		}
		if strings.HasSuffix(text, "=(_)") {
			name := text[:len(text)-len("=(_)")]
			return &Signature{Name: name, Kind: Setter, Arity: 1}, nil
		}
		if text == "" {
			return nil, fmt.Errorf("signature: empty text")
		}
		return &Signature{Name: text, Kind: Getter, Arity: 0}, nil
	}
}

func parseNameAndArgs(rest string) (string, int, error) {
	idx := strings.IndexByte(rest, '(')
	if idx < 0 || !strings.HasSuffix(rest, ")") {
		return "", 0, fmt.Errorf("expected name(_,_) form, got %q", rest)
	}
	name := rest[:idx]
	inner := rest[idx+1 : len(rest)-1]
	n, err := countUnderscores(inner)
	if err != nil {
		return "", 0, err
	}
	return name, n, nil
}

func countUnderscores(inner string) (int, error) {
	if inner == "" {
		return 0, nil
	}
	parts := strings.Split(inner, ",")
	for _, p := range parts {
		if p != "_" {
			return 0, fmt.Errorf("expected comma-separated underscores, got %q", inner)
		}
	}
	return len(parts), nil
}

// Id is the 64-bit dispatch key for a signature: a class's method table is
// keyed by this value. Spec §3: "The 64-bit id is
// murmur3-like-hash(canonical-string, seed=hash(\"signature id\"))."
type Id uint64

// idSeed is hash("signature id", 0), computed once and reused for every
// signature, exactly as original_source/common/HashUtil.cpp's
// findSignatureId caches SIG_SEED in a function-local static.
var idSeed = hashString("signature id", 0)

// ID computes this signature's dispatch key.
func (s *Signature) ID() Id {
	return Id(hashString(s.String(), idSeed))
}
