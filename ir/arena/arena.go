// Package arena provides a bump-allocating region for compiler nodes that
// live exactly as long as the module being compiled. The C++ teacher
// (original_source/src/ArenaAllocator.{h,cpp}) hands out raw bytes and
// placement-news a node into them; Go's GC already gives us safe,
// type-correct allocation, so this arena's job is narrower: group every
// node belonging to one module under a single owner so that a whole
// module's IR can be dropped in one call to [Arena.Reset] instead of
// relying on each node becoming separately unreachable.
package arena

// Arena owns every IR node allocated for one module's compilation.
type Arena struct {
	nodes int
	live  []any // keeps every node reachable until Reset, mirroring the
	// C++ arena's single contiguous backing store: the module's IR
	// is alive as one unit and dies as one unit.
}

// NewArena returns a ready-to-use Arena. The zero value is also usable.
func NewArena() *Arena {
	return &Arena{}
}

// Nodes reports how many values have been allocated from this arena.
func (a *Arena) Nodes() int { return a.nodes }

// Reset releases every node this arena was keeping alive. Any node
// previously allocated from this arena must not be touched again; doing so
// is a dangling reference, exactly as in the C++ arena once it is destroyed.
func (a *Arena) Reset() {
	a.live = nil
	a.nodes = 0
}

// Alloc carves a zero-valued T out of the arena and returns a pointer to it.
// It is the Go analogue of the C++ template ArenaAllocator::New<T>(args...),
// minus constructor arguments: callers set fields after allocation.
func Alloc[T any](a *Arena) *T {
	n := new(T)
	a.live = append(a.live, n)
	a.nodes++
	return n
}
