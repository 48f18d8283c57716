// Package modtable implements import_module (spec §4.J): a global
// module table that "ensures the module is loaded exactly once
// (initializer invoked on first import)" and the name-normalization
// rules a relative import path follows.
//
// Module loading is itself a compilation (parse + the full mid-end pass
// pipeline, package driver) followed by running the module's top-level
// code to populate its globals — work expensive enough, and reentrant
// enough (a foreign method bound into the module being loaded could
// itself call back into import_module), that two cooperative fibers
// racing to import the same name for the first time must not both pay
// for it. golang.org/x/sync/singleflight.Group.Do is exactly the
// once-per-key initializer spec §9's "wrap each [piece of global mutable
// state] in a once-initialized lazy singleton" calls for, generalized
// from a single flag to one flag per module name.
package modtable

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/chances/wrenc/runtime/value"
)

// Module is a loaded module's handle: its normalized name and the
// globals its top-level code populated.
type Module struct {
	Name string

	mu      sync.RWMutex
	globals map[string]value.Value
}

// SetGlobal records or updates a top-level variable's current value.
func (m *Module) SetGlobal(name string, v value.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.globals == nil {
		m.globals = make(map[string]value.Value)
	}
	m.globals[name] = v
}

// Global returns the named global's current value (get_module_global),
// failing if absent.
func (m *Module) Global(name string) (value.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.globals[name]
	if !ok {
		return value.Null, fmt.Errorf("modtable: module %q has no global named %q", m.Name, name)
	}
	return v, nil
}

// Loader compiles and runs the module named by the already-normalized
// name, returning its populated handle. Supplied by the embedder/driver;
// modtable only handles normalization and the load-exactly-once
// guarantee.
type Loader func(normalizedName string) (*Module, error)

// Table is the process-lifetime module table (spec §9: global mutable
// state "retained for process lifetime").
type Table struct {
	mu      sync.RWMutex
	modules map[string]*Module
	group   singleflight.Group
}

// NewTable constructs an empty module table.
func NewTable() *Table {
	return &Table{modules: make(map[string]*Module)}
}

// Import resolves name relative to importingDir (per Normalize) and
// loads it via load if this is the table's first successful import of
// that normalized name; concurrent importers of the same name block on
// the same in-flight load and share its result.
func (t *Table) Import(importingDir, name string, load Loader) (*Module, error) {
	normalized, err := Normalize(importingDir, name)
	if err != nil {
		return nil, err
	}

	if m, ok := t.lookup(normalized); ok {
		return m, nil
	}

	v, err, _ := t.group.Do(normalized, func() (interface{}, error) {
		if m, ok := t.lookup(normalized); ok {
			return m, nil
		}
		m, err := load(normalized)
		if err != nil {
			return nil, err
		}
		t.mu.Lock()
		t.modules[normalized] = m
		t.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Module), nil
}

func (t *Table) lookup(normalized string) (*Module, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.modules[normalized]
	return m, ok
}

// Normalize applies spec §4.J's import-name rules: a leading `/` makes
// name absolute; otherwise it is resolved relative to importingDir.
// Empty and `.` segments are elided; `..` cancels one preceding segment,
// erroring if there is no segment left to cancel ("erroring at the
// root").
func Normalize(importingDir, name string) (string, error) {
	var parts []string
	if !strings.HasPrefix(name, "/") {
		parts = splitSegments(importingDir)
	}
	parts = append(parts, splitSegments(name)...)

	var segs []string
	for _, seg := range parts {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(segs) == 0 {
				return "", fmt.Errorf("modtable: %q ascends above the root", name)
			}
			segs = segs[:len(segs)-1]
		default:
			segs = append(segs, seg)
		}
	}
	return "/" + strings.Join(segs, "/"), nil
}

// splitSegments splits on "/" without eliding anything; empty and "."
// segments are the caller's (Normalize's) responsibility, since a
// leading "/" and doubled "//" both produce an empty segment here and
// the normalization rule treats both the same way.
func splitSegments(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
