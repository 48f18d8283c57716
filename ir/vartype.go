package ir

// TypeKind enumerates the four concrete type flavours type inference can
// resolve an SSAVariable to. Spec §4.H. There is deliberately no "unknown"
// member here: unknown is represented by a nil *Type, matching the C++
// teacher's use of a null VarType* (original_source/src/VarType.h) as the
// always-safe over-approximation.
type TypeKind int

const (
	TypeNull TypeKind = iota
	TypeNum
	TypeObject
	TypeObjectSystem
)

// Type is an inferred variable type. Instances are interned by
// [ir/passes/typeinfer.Registry] so that two variables of the same concrete
// type compare equal with ==, exactly as the C++ pass compares VarType*
// pointers rather than deep-comparing structures.
type Type struct {
	Kind TypeKind

	// SystemClassName names a native class (e.g. "ObjString") when
	// Kind == TypeObjectSystem. Spec §4.H's native class list: ObjString,
	// ObjBool, ObjRange, ObjSystem, ObjFn, ObjFibre, ObjClass, ObjList, ObjMap.
	SystemClassName string

	// Static marks that the variable holds the class object itself, not an
	// instance of it (VarType::FLAG_STATIC in the teacher).
	Static bool
}

func (t *Type) String() string {
	if t == nil {
		return "unknown"
	}
	switch t.Kind {
	case TypeNull:
		return "null"
	case TypeNum:
		return "num"
	case TypeObject:
		return "obj"
	case TypeObjectSystem:
		if t.Static {
			return "obj_sys_static:" + t.SystemClassName
		}
		return "obj_sys:" + t.SystemClassName
	default:
		return "invalid"
	}
}
