// Package vtable builds the virtual dispatch tables a whole-program
// compiler uses to lower dynamic calls onto a typed stack-machine target
// with explicit function tables.
//
// Given a closed-world program — every class with a dense integer class-id
// numbering, every instance member, call-site metadata, and typed lowering
// information — the builder groups members into selectors, computes
// per-selector (class-id range -> target) mappings, joins target
// signatures into one uniform call signature per selector, packs all rows
// into a single flat table via row-displacement compression, and
// materializes the result as one defined function table plus per-module
// imported views.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	vtable/              Root package (this documentation)
//	├── dispatchbuild/   Build orchestration and the DispatchTable snapshot
//	├── selector/        Selector interning, metadata merge, dynamic-name index
//	├── rangebuild/      Super-first hierarchy walk and range coalescing
//	├── signature/       Least-upper-bound signature synthesis
//	├── packer/          Row-displacement table compression
//	├── wtable/          Function table emission (main + imported views)
//	├── classes/         Closed-world class hierarchy and front-end metadata
//	├── member/          Members, references, parameter schemas
//	├── vtype/           Target value type lattice with join
//	├── program/         YAML closed-world program descriptions
//	├── errors/          Structured error types for compiler faults
//	└── vlog/            Structured build logging
//
// # Quick Start
//
// Load a program description and build its dispatch table:
//
//	prog, err := program.Load("world.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	dt, err := dispatchbuild.NewBuilder(prog.Hierarchy, prog.Metadata, prog.Lattice).
//	    Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := dt.Emit(prog.Resolver); err != nil {
//	    log.Fatal(err)
//	}
//
//	s := dt.SelectorByID(42)
//	fmt.Println(*s.Offset, s.Signature)
//
// A virtual call then compiles to an indirect call through
// table[s.Offset + classID of the receiver].
//
// # Build Ordering
//
// Build runs single-threaded through fixed phases: register selectors and
// fill target ranges (one super-first walk), apply front-end metadata,
// synthesize signatures, pack. Signatures are computed exactly once,
// strictly after ranges are final. Emit must run after Build and after
// every function body has been registered with the functions collaborator.
//
// # Failure Model
//
// Every error is a compiler bug: a structural invariant violation, missing
// front-end metadata, or an unresolvable emission target. There is no
// recovery path; callers abort the compilation.
package vtable
