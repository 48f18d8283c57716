// The wrencc command drives the mid-end pass pipeline (cleanup,
// basicblock, ssa, typeinfer) over one or more modules and reports
// whether each compiled cleanly.
//
// Usage:
//
//	$ wrencc [-debug] module...
//
// wrencc has no lexer or parser of its own (spec §1 scopes those to an
// external frontend); each module argument is compiled as a module named
// after it holding one empty function body. This command exists to exercise internal/driver's
// batch-compilation fan-out the way go/cfg's and go/ssa's own main.go
// demo commands exercise their packages, not as a complete toolchain
// entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/chances/wrenc/internal/compileerr"
	"github.com/chances/wrenc/internal/driver"
	"github.com/chances/wrenc/internal/telemetry"
	"github.com/chances/wrenc/ir"
)

var debug = flag.Bool("debug", false, "print a trace line for every compilation phase")

func init() {
	flag.Usage = func() {
		os.Stderr.WriteString("Usage: wrencc [-debug] module...\n\n")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	if *debug {
		ctx = telemetry.WithExporter(ctx, &telemetry.Printer{W: os.Stderr})
	}

	sources := make([]driver.ModuleSource, flag.NArg())
	for i, name := range flag.Args() {
		// Without a frontend, every module compiles as an empty function
		// body: this still exercises the full pipeline and the driver's
		// parallel fan-out, but produces no diagnostics of its own.
		sources[i] = driver.ModuleSource{Name: name, Functions: []*ir.Fn{ir.NewFn(name)}}
	}

	results, err := driver.CompileAll(ctx, sources)
	var diags compileerr.List
	for _, res := range results {
		if res.Err != nil {
			diags.Add(res.Name, 0, "%v", res.Err)
		}
	}
	diags.Dedup()

	for _, d := range diags.All() {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if err != nil {
		log.Fatal("wrencc: compilation aborted by an internal compiler error")
	}
	if diags.HasErrors() {
		os.Exit(1)
	}
}
