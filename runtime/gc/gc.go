// Package gc implements the tracing garbage collector (spec §4.L): a
// tri-colour mark over object roots, drained through a grey queue, with
// sweep delegated to [slab.Allocator.Sweep]. Grounded on
// original_source/rtsrc/GCTracingScanner.{h,cpp}.
//
// The C++ original finds its roots by walking the current thread's
// native call stack with libunwind, binary-searching a sorted function
// table, and consulting each frame's statepoint (package backend) for
// which stack slots hold live Values. Go exposes no equivalent in-process
// stack-introspection primitive — there is no portable way to read an
// arbitrary goroutine's stack slots from within that same process — so
// this package replaces stack walking with explicit root providers:
// anything holding Values that must survive a collection (the fibre
// subsystem's suspended/running stacks, the globals table, the VM's
// foreign-call slot-stack) registers a provider function that the
// collector calls at the start of each cycle. This is the same
// "statepoint of a suspended fibre's unwind context" idea as spec §4.M,
// generalized so every root source uses one mechanism instead of two.
package gc

import (
	"github.com/chances/wrenc/runtime/object"
	"github.com/chances/wrenc/runtime/slab"
	"github.com/chances/wrenc/runtime/value"
)

// RootProvider returns the set of Values currently reachable from one
// root source (a fibre's stack, the globals table, ...). Collect calls
// every registered provider at the start of each cycle, exactly once.
type RootProvider func() []value.Value

// TraceFunc is a class's trace callback (spec §4.L item 4: "call its
// class's trace callback, which calls back into the GC to mark contained
// values"). It receives the object's field slots and appends every
// Value they hold that the collector should also mark, to out, returning
// the extended slice (the same append-and-return idiom as a Go
// AppendFoo method, to let callers avoid an allocation on the common
// leaf case of returning out unchanged).
type TraceFunc func(fields []value.Value, out []value.Value) []value.Value

// Collector runs mark/sweep cycles over one allocator's objects. String,
// Bool and other leaf classes need no registered tracer: an object whose
// class has none is treated as opaque and traces nothing, matching spec
// §4.L item 4 exactly.
type Collector struct {
	alloc *slab.Allocator

	roots   []RootProvider
	tracers map[*object.ObjClass]TraceFunc

	// currentColor is this cycle's "reachable" mark value; it toggles
	// between 1 and 2 every Collect so that marks left over from the
	// previous cycle are automatically stale (spec §4.L: "Between mark
	// phases the reachable color value toggles").
	currentColor uint8

	grey []slab.Handle
}

// NewCollector constructs a collector over alloc. Register at least one
// root provider before the first Collect, or every object will be swept.
func NewCollector(alloc *slab.Allocator) *Collector {
	return &Collector{
		alloc:        alloc,
		tracers:      make(map[*object.ObjClass]TraceFunc),
		currentColor: 1,
	}
}

// RegisterRoot adds a root provider, called once at the start of every
// future Collect cycle.
func (c *Collector) RegisterRoot(p RootProvider) {
	c.roots = append(c.roots, p)
}

// RegisterTracer installs cls's trace callback (spec §4.L item 4:
// "List/Map/Range/Fibre/Fn trace their contained values"). Classes with
// no registered tracer are treated as leaves.
func (c *Collector) RegisterTracer(cls *object.ObjClass, fn TraceFunc) {
	c.tracers[cls] = fn
}

// markValueAsRoot is spec §4.L item 3: numbers and null are ignored;
// object pointers not already coloured this cycle are coloured reachable
// and queued for the grey-queue drain.
func (c *Collector) markValueAsRoot(v value.Value) {
	if v.IsNum() || v.IsSingleton() {
		return
	}
	h, ok := c.alloc.Resolve(v)
	if !ok {
		return
	}
	c.mark(h)
}

func (c *Collector) mark(h slab.Handle) {
	if h.GCColor() == c.currentColor {
		return
	}
	h.SetGCColor(c.currentColor)
	c.grey = append(c.grey, h)
}

// drain processes the grey queue until empty, tracing each object's
// contained values through its class's tracer (spec §4.L item 4).
func (c *Collector) drain() {
	var scratch []value.Value
	for len(c.grey) > 0 {
		h := c.grey[len(c.grey)-1]
		c.grey = c.grey[:len(c.grey)-1]

		tracer, ok := c.tracers[h.Class()]
		if !ok {
			continue
		}

		scratch = tracer(h.Fields(), scratch[:0])
		for _, v := range scratch {
			c.markValueAsRoot(v)
		}
	}
}

// Collect runs one full mark/sweep cycle: toggle the reachable colour,
// mark every registered root, drain the grey queue, then sweep anything
// the allocator holds whose colour didn't end up matching this cycle's
// reachable value (spec §4.L item 5, delegating to [slab.Allocator.Sweep]).
// It returns the number of objects reclaimed.
func (c *Collector) Collect() int {
	c.currentColor = 3 - c.currentColor // toggles between 1 and 2

	for _, root := range c.roots {
		for _, v := range root() {
			c.markValueAsRoot(v)
		}
	}
	c.drain()

	return c.alloc.Sweep(func(h slab.Handle) bool {
		return h.GCColor() == c.currentColor
	})
}
