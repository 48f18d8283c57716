package ir

// ClassInfo is the compile-time description of a class: its fields, its
// methods, and a handful of flags the backend needs to emit the runtime
// class-descriptor byte stream (spec §6). Spec §3 "Classes".
type ClassInfo struct {
	Name string

	// Fields is the set of instance field names declared directly on this
	// class (not counting inherited fields), in declaration order so field
	// offsets are deterministic.
	Fields []string

	// Methods and StaticMethods map a method's canonical signature string
	// to its Fn body.
	Methods       map[string]*Fn
	StaticMethods map[string]*Fn

	// IsForeign marks a class whose instances are allocated and finalized
	// by native code rather than by the managed-object allocator (spec
	// §4.N, §6 MARK_FOREIGN_CLASS).
	IsForeign bool

	// ParentExpr computes the value of the parent class at class-definition
	// time; nil only for the root `Object` class.
	ParentExpr Expr

	// Attributes holds doc-comment-style metadata attached to the class or
	// its methods, decoded by runtime/classdesc from ADD_ATTRIBUTE_GROUP
	// commands (SPEC_FULL.md supplemented feature).
	Attributes []AttributeGroup
}

// AttributeGroup is one `ADD_ATTRIBUTE_GROUP` command's payload: a named
// group of key/value pairs, either attached to the class itself
// (MethodIndex == -1) or to one of its methods.
type AttributeGroup struct {
	Group        string
	MethodIndex  int // -1 for a class-level group
	Attributes   []ClassAttribute
}

type AttributeValueKind int

const (
	AttrValue AttributeValueKind = iota
	AttrBoolean
	AttrString
)

type ClassAttribute struct {
	Name string
	Kind AttributeValueKind
	// Exactly one of these is meaningful, selected by Kind.
	BoolValue   bool
	StringValue string
	NumValue    float64
}

// NewClassInfo allocates a class with empty method tables.
func NewClassInfo(name string) *ClassInfo {
	return &ClassInfo{
		Name:          name,
		Methods:       make(map[string]*Fn),
		StaticMethods: make(map[string]*Fn),
	}
}
