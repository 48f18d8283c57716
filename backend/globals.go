package backend

import "fmt"

// GlobalEntry is one name→pointer pair in a compiled module's globals
// table (spec §4.I item 5). Value is a placeholder for whatever the real
// backend would put there (a relocation, a constant-pool index); this
// module only fixes the table's shape and the three reserved entries
// every module must carry, grounded on
// original_source/rtsrc/GenEntry_ABI.h's RtModule/getGlobalsFunc
// convention (the getGlobalsFunc callback indexes into exactly this
// table).
type GlobalEntry struct {
	Name  string
	Value uint64
}

// GlobalsTable is one module's globals-table symbol.
type GlobalsTable struct {
	ModuleName string
	entries    []GlobalEntry
	byName     map[string]int
}

// NewGlobalsTable starts a globals table for a module, seeding the three
// reserved entries spec §4.I item 5 requires every module to carry.
func NewGlobalsTable(moduleName string, initFunc, stackMap uint64) *GlobalsTable {
	t := &GlobalsTable{
		ModuleName: moduleName,
		byName:     make(map[string]int),
	}
	t.add(GlobalInitFunc, initFunc)
	t.add(GlobalModuleName, 0) // resolved by the backend's string-literal pool, not carried here
	t.add(GlobalStackMap, stackMap)
	return t
}

func (t *GlobalsTable) add(name string, value uint64) {
	t.byName[name] = len(t.entries)
	t.entries = append(t.entries, GlobalEntry{Name: name, Value: value})
}

// Define adds a user-level global (a top-level var, function, or class
// value). It is an error to redefine a name, including one of the three
// reserved entries.
func (t *GlobalsTable) Define(name string, value uint64) error {
	if _, exists := t.byName[name]; exists {
		return fmt.Errorf("backend: global %q already defined in module %q", name, t.ModuleName)
	}
	t.add(name, value)
	return nil
}

// Lookup returns a global's current value, mirroring FnGetModuleGlobal's
// runtime behaviour (spec §4.J "get_module_global").
func (t *GlobalsTable) Lookup(name string) (uint64, bool) {
	i, ok := t.byName[name]
	if !ok {
		return 0, false
	}
	return t.entries[i].Value, true
}

// Entries returns every entry in definition order (reserved entries
// first), the order the backend emits them to the module symbol in.
func (t *GlobalsTable) Entries() []GlobalEntry {
	return append([]GlobalEntry(nil), t.entries...)
}
