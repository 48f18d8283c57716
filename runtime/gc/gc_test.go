package gc

import (
	"testing"

	"github.com/chances/wrenc/runtime/object"
	"github.com/chances/wrenc/runtime/slab"
	"github.com/chances/wrenc/runtime/value"
)

func newTestClasses(t *testing.T) (objectClass, rootClass, pointCls, listCls *object.ObjClass) {
	t.Helper()
	objectClass, rootClass = object.NewObjectClass()
	pointCls = object.NewClass("Point", objectClass, rootClass)
	pointCls.Fields = []string{"x", "y"}
	listCls = object.NewClass("List", objectClass, rootClass)
	listCls.Fields = []string{"items"}
	return
}

func TestCollectReclaimsUnrootedObjects(t *testing.T) {
	alloc := slab.NewAllocator()
	defer alloc.Close()

	_, _, pointCls, _ := newTestClasses(t)

	rooted, err := alloc.Allocate(pointCls, pointCls.TotalFields())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	garbage, err := alloc.Allocate(pointCls, pointCls.TotalFields())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	c := NewCollector(alloc)
	rootedValue := rooted.Value()
	c.RegisterRoot(func() []value.Value { return []value.Value{rootedValue} })

	reclaimed := c.Collect()
	if reclaimed != 1 {
		t.Fatalf("expected 1 object reclaimed, got %d", reclaimed)
	}
	if !rooted.IsLive() {
		t.Fatal("expected the rooted object to survive collection")
	}
	if garbage.IsLive() {
		t.Fatal("expected the unrooted object to be swept")
	}
}

func TestCollectTracesContainedValuesTransitively(t *testing.T) {
	alloc := slab.NewAllocator()
	defer alloc.Close()

	_, _, pointCls, listCls := newTestClasses(t)

	leaf, err := alloc.Allocate(pointCls, pointCls.TotalFields())
	if err != nil {
		t.Fatalf("Allocate leaf: %v", err)
	}
	container, err := alloc.Allocate(listCls, listCls.TotalFields())
	if err != nil {
		t.Fatalf("Allocate container: %v", err)
	}
	container.Fields()[0] = leaf.Value()

	c := NewCollector(alloc)
	c.RegisterTracer(listCls, func(fields []value.Value, out []value.Value) []value.Value {
		return append(out, fields...)
	})
	containerValue := container.Value()
	c.RegisterRoot(func() []value.Value { return []value.Value{containerValue} })

	reclaimed := c.Collect()
	if reclaimed != 0 {
		t.Fatalf("expected nothing reclaimed, got %d", reclaimed)
	}
	if !leaf.IsLive() {
		t.Fatal("expected the transitively-reachable leaf object to survive")
	}
}

func TestCollectToggleMakesStaleMarksIneffective(t *testing.T) {
	alloc := slab.NewAllocator()
	defer alloc.Close()

	_, _, pointCls, _ := newTestClasses(t)

	h, err := alloc.Allocate(pointCls, pointCls.TotalFields())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	c := NewCollector(alloc)
	v := h.Value()
	c.RegisterRoot(func() []value.Value { return []value.Value{v} })

	if reclaimed := c.Collect(); reclaimed != 0 {
		t.Fatalf("expected the rooted object to survive the first cycle, reclaimed=%d", reclaimed)
	}
	firstColor := h.GCColor()

	c.roots = nil // simulate the reference being dropped between cycles
	reclaimed := c.Collect()
	if reclaimed != 1 {
		t.Fatalf("expected the now-unrooted object to be reclaimed, got %d", reclaimed)
	}
	if firstColor == h.GCColor() {
		t.Fatal("expected the reachable colour to have toggled between cycles")
	}
}

func TestLeafClassWithNoTracerStopsTraversal(t *testing.T) {
	alloc := slab.NewAllocator()
	defer alloc.Close()

	_, _, pointCls, _ := newTestClasses(t)

	h, err := alloc.Allocate(pointCls, pointCls.TotalFields())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	c := NewCollector(alloc)
	v := h.Value()
	c.RegisterRoot(func() []value.Value { return []value.Value{v} })

	// No tracer registered for pointCls: Collect must not panic and must
	// still keep h alive as a direct root even though its fields (which
	// hold no live Values here) are never traced.
	if reclaimed := c.Collect(); reclaimed != 0 {
		t.Fatalf("expected 0 reclaimed, got %d", reclaimed)
	}
}
