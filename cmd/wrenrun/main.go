// The wrenrun command boots the runtime (slab allocator, tracing GC,
// fiber scheduler) and runs a single fiber to completion, printing its
// result.
//
// Usage:
//
//	$ wrenrun [-debug]
//
// wrenrun has no bytecode interpreter of its own: the backend contract
// (package backend) specifies the ABI a real machine backend targets,
// but code generation and the parser/lexer front end are external
// collaborators (spec §1). This command wires the allocator, collector
// and fiber scheduler together the way a generated program's own process-startup sequence
// would (global mutable state "initialized on first use and retained
// for process lifetime", spec §9), then runs one fiber representing
// what a compiled program's entry point would otherwise supply.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/chances/wrenc/internal/telemetry"
	"github.com/chances/wrenc/runtime/fiber"
	"github.com/chances/wrenc/runtime/gc"
	"github.com/chances/wrenc/runtime/slab"
	"github.com/chances/wrenc/runtime/value"
)

var debug = flag.Bool("debug", false, "print a trace line for every GC cycle and fiber switch")

func main() {
	flag.Parse()

	ctx := context.Background()
	if *debug {
		ctx = telemetry.WithExporter(ctx, &telemetry.Printer{W: os.Stderr})
	}

	alloc := slab.NewAllocator()
	defer alloc.Close()

	scheduler := fiber.NewScheduler()
	collector := gc.NewCollector(alloc)
	collector.RegisterRoot(func() []value.Value { return scheduler.Roots() })

	main := fiber.NewFunc(func(arg value.Value) value.Value {
		telemetry.Log(ctx, "fiber running", telemetry.Label{Key: "arg", Value: arg.String()})
		return value.EncodeNum(arg.Num() + 1)
	})

	result, err := scheduler.Call(main, value.EncodeNum(41))
	if err != nil {
		fmt.Fprintln(os.Stderr, "wrenrun:", err)
		os.Exit(1)
	}

	reclaimed := collector.Collect()
	telemetry.Log(ctx, "gc cycle", telemetry.Label{Key: "reclaimed", Value: reclaimed})

	fmt.Println(result.String())
}
