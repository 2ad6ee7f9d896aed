package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/vtable/dispatchbuild"
	"github.com/wippyai/vtable/program"
	"github.com/wippyai/vtable/selector"
	"github.com/wippyai/vtable/vlog"
)

func main() {
	var (
		programFile = flag.String("program", "", "Path to program description yaml")
		listSel     = flag.Bool("selectors", false, "List selectors and exit")
		dumpTable   = flag.Bool("table", false, "Dump the packed table and exit")
		dynName     = flag.String("dynamic", "", "List selectors dynamically reachable under a member name")
		verbose     = flag.Bool("v", false, "Verbose build logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *programFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: vtable -program <prog.yaml> [-selectors] [-table] [-dynamic name]")
		fmt.Fprintln(os.Stderr, "       vtable -program <prog.yaml> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			vlog.SetLogger(logger)
		}
	}

	if *interactive {
		if err := runInteractive(*programFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*programFile, *listSel, *dumpTable, *dynName); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(programFile string, listSel, dumpTable bool, dynName string) error {
	ctx := context.Background()

	prog, err := program.Load(programFile)
	if err != nil {
		return fmt.Errorf("load program: %w", err)
	}

	dt, err := dispatchbuild.NewBuilder(prog.Hierarchy, prog.Metadata, prog.Lattice).Build(ctx)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := dt.Emit(prog.Resolver); err != nil {
		return fmt.Errorf("emit: %w", err)
	}

	fmt.Printf("Program: %s\n", programFile)
	fmt.Printf("Classes: %d (max concrete id %d)\n",
		len(prog.Hierarchy.SuperFirstOrder), prog.Hierarchy.MaxConcreteClassID)
	fmt.Printf("Selectors: %d\n", len(dt.Selectors()))
	fmt.Printf("Table: %d slots, %d main elements, %d imported views\n",
		len(dt.Table), len(dt.Main.Elems), len(dt.Imported))

	if dynName != "" {
		printDynamic(dt, dynName)
	}
	if listSel {
		for _, s := range dt.Selectors() {
			fmt.Println(formatSelector(s))
		}
	}
	if dumpTable {
		printTable(dt)
	}
	return nil
}

func formatSelector(s *selector.Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  #%d %s %s", s.ID, kindStr(s.Kind), s.Name)
	fmt.Fprintf(&b, " calls=%d classes=%d", s.CallCount, s.ConcreteClasses)
	if s.Offset != nil {
		fmt.Fprintf(&b, " offset=%d", *s.Offset)
	} else {
		b.WriteString(" offset=-")
	}
	for _, tr := range s.TargetRanges {
		fmt.Fprintf(&b, " [%d..%d]->%s", tr.Range.Start, tr.Range.End, tr.Target.Name)
	}
	return b.String()
}

func kindStr(k selector.Kind) string {
	switch k {
	case selector.KindGetter:
		return "get"
	case selector.KindSetter:
		return "set"
	default:
		return "call"
	}
}

func printDynamic(dt *dispatchbuild.DispatchTable, name string) {
	fmt.Printf("Dynamic %q:\n", name)
	for _, s := range dt.DynamicGetterSelectors(name) {
		fmt.Printf("  getter #%d\n", s.ID)
	}
	for _, s := range dt.DynamicSetterSelectors(name) {
		fmt.Printf("  setter #%d\n", s.ID)
	}
	for _, s := range dt.DynamicMethodSelectors(name) {
		fmt.Printf("  method #%d\n", s.ID)
	}
}

func printTable(dt *dispatchbuild.DispatchTable) {
	fmt.Println("Packed table:")
	for i, ref := range dt.Table {
		if ref == nil {
			fmt.Printf("  %4d: -\n", i)
			continue
		}
		fmt.Printf("  %4d: %s (class %d)\n", i, ref.Name, ref.EnclosingClassID)
	}
}
