package typeinfer

import "github.com/chances/wrenc/ir"

// Registry interns *ir.Type values so that two variables inferred to hold
// the same concrete type compare equal by pointer (==), exactly as the C++
// teacher compares VarType* pointers rather than deep-comparing structures
// (original_source/src/VarType.h).
type Registry struct {
	simple map[ir.TypeKind]*ir.Type
	system map[string]*ir.Type // non-static system classes, keyed by class name
	static map[string]*ir.Type // static (the class object itself), keyed by class name
}

// NewRegistry builds a registry pre-populated with the three simple types
// and the nine native system classes type inference knows about (spec
// §4.H).
func NewRegistry() *Registry {
	r := &Registry{
		simple: make(map[ir.TypeKind]*ir.Type),
		system: make(map[string]*ir.Type),
		static: make(map[string]*ir.Type),
	}
	r.simple[ir.TypeNull] = &ir.Type{Kind: ir.TypeNull}
	r.simple[ir.TypeNum] = &ir.Type{Kind: ir.TypeNum}
	r.simple[ir.TypeObject] = &ir.Type{Kind: ir.TypeObject}

	for _, name := range nativeSystemClasses {
		r.system[name] = &ir.Type{Kind: ir.TypeObjectSystem, SystemClassName: name}
		r.static[name] = &ir.Type{Kind: ir.TypeObjectSystem, SystemClassName: name, Static: true}
	}
	return r
}

// nativeSystemClasses is the fixed set of built-in classes the type
// inference pass assigns a dedicated type to, matching the
// m_nativeTypeObj* fields the C++ generated backend relies on by exact
// name.
var nativeSystemClasses = []string{
	"ObjString", "ObjBool", "ObjRange", "ObjSystem",
	"ObjFn", "ObjFibre", "ObjClass", "ObjList", "ObjMap",
}

func (r *Registry) Null() *ir.Type   { return r.simple[ir.TypeNull] }
func (r *Registry) Num() *ir.Type    { return r.simple[ir.TypeNum] }
func (r *Registry) Object() *ir.Type { return r.simple[ir.TypeObject] }

// SysClass returns the interned instance type for a native class name, or
// nil if name isn't one of the nine [nativeSystemClasses].
func (r *Registry) SysClass(name string) *ir.Type { return r.system[name] }

// SysClassStatic returns the interned "class object itself" type for a
// native class name.
func (r *Registry) SysClassStatic(name string) *ir.Type { return r.static[name] }
