// Package backend defines the contract between the mid-end IR this module
// builds and whatever machine backend eventually lowers it: the dispatch
// helper names and signatures a generated function body calls into, the
// statepoint/stackmap wire format the GC walks, and the globals-table
// layout a compiled module exports (spec §4.I). It does not lower IR to
// machine code itself — that's out of scope — but it does give the pieces
// that format depends on (the reserved globals-table entries, the
// stackmap reader/writer, the ABI function names) a single grounded home,
// mirroring original_source/rtsrc/GenEntry_ABI.h's extern "C" surface.
package backend

// ABI function names the backend must call at the listed call sites. These
// match original_source/rtsrc/GenEntry_ABI.h's wren_* extern "C" symbols
// verbatim; a backend targeting this runtime links against a library
// exporting exactly these names.
const (
	// FnVirtualMethodLookup resolves (receiver, signature_id) to a function
	// pointer by walking parentClass chains (spec §4.I item 2, §4.J).
	FnVirtualMethodLookup = "wren_virtual_method_lookup"

	// FnSuperMethodLookup is FnVirtualMethodLookup's `super` counterpart,
	// starting the search at declaring_class.parentClass (or its metaclass
	// chain, for a static call).
	FnSuperMethodLookup = "wren_super_method_lookup"

	// FnInitClass parses a class-descriptor byte block (spec §6) and
	// installs methods, fields and attributes, returning the class Value.
	FnInitClass = "wren_init_class"

	// FnAllocObj allocates an ObjManaged sized for a class's total fields.
	FnAllocObj = "wren_alloc_obj"

	// FnAllocForeignObj invokes a foreign class's allocator callback.
	FnAllocForeignObj = "wren_alloc_foreign_obj"

	// FnClassGetFieldOffset returns the byte offset to a class's first
	// field slot, accounting for inherited fields.
	FnClassGetFieldOffset = "wren_class_get_field_offset"

	// FnCreateClosure allocates an ObjFn and fills in its upvalue pointer
	// array from the caller's stack base and storage-block pointers.
	FnCreateClosure = "wren_create_closure"

	// FnAllocUpvalueStorage and FnUnrefUpvalueStorage manage the
	// reference-counted heap blocks backing captured locals that outlive
	// their stack frame.
	FnAllocUpvalueStorage  = "wren_alloc_upvalue_storage"
	FnUnrefUpvalueStorage  = "wren_unref_upvalue_storage"
	FnGetCoreClassValue    = "wren_get_core_class_value"
	FnImportModule         = "wren_import_module"
	FnGetModuleGlobal      = "wren_get_module_global"
	FnCallForeignMethod    = "wren_call_foreign_method"
)

// Reserved globals-table entries every compiled module symbol carries in
// addition to its own name→pointer pairs (spec §4.I item 5).
const (
	GlobalInitFunc   = "<INTERNAL>::init_func"
	GlobalModuleName = "<INTERNAL>::module_name"
	GlobalStackMap   = "<INTERNAL>::stack_map"
)

// CallKind distinguishes the four ways a call site can reach a callee, so
// a backend can decide whether it owes the runtime a statepoint (spec §4.I
// item 3: "every call site that is not marked a GC-leaf").
type CallKind int

const (
	// CallDirect is an ordinary static call to a known Fn.
	CallDirect CallKind = iota
	// CallVirtual goes through FnVirtualMethodLookup.
	CallVirtual
	// CallSuper goes through FnSuperMethodLookup.
	CallSuper
	// CallForeign goes through FnCallForeignMethod (spec §4.N).
	CallForeign
)

// IsGCLeaf reports whether a call of this kind can never itself trigger
// garbage collection, and therefore needs no statepoint. Only a direct
// call to a function already known to allocate nothing qualifies in
// practice; this module conservatively treats every call kind as
// non-leaf (IsGCLeaf always returns false), since a
// wrongly-omitted statepoint corrupts the heap on the next collection
// while a spurious one only wastes a little stackmap space.
func (k CallKind) IsGCLeaf() bool {
	return false
}
