// Package cli implements the unvirt command surface. The cmd wrapper
// stays thin so embedders can drive runs programmatically.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/unvirt/unvirt/internal/bundle"
	"github.com/unvirt/unvirt/internal/config"
	"github.com/unvirt/unvirt/internal/diagnostics"
	"github.com/unvirt/unvirt/internal/disasm"
	"github.com/unvirt/unvirt/internal/metadata"
	"github.com/unvirt/unvirt/internal/pipeline"
	"github.com/unvirt/unvirt/internal/profile"
	"github.com/unvirt/unvirt/internal/report"
	"github.com/unvirt/unvirt/internal/vm"
)

const usage = `usage: unvirt <command> [flags]

commands:
  devirt  -bundle in.uvb [-profile p.yaml] [-out out.uvd]   run the full pipeline
  disasm  -bundle in.uvb [-profile p.yaml]                  print decoded blocks and trees
  runs    [-report path]                                    list archived runs
`

// Run executes one invocation and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	switch args[0] {
	case "devirt":
		return runDevirt(args[1:], stdout, stderr)
	case "disasm":
		return runDisasm(args[1:], stdout, stderr)
	case "runs":
		return runList(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		fmt.Fprint(stderr, usage)
		return 2
	}
}

func loadProfile(path string) (*profile.Profile, error) {
	if path == "" {
		return profile.Default(), nil
	}
	return profile.Load(path)
}

// opcodeMapFor picks the decode mapping for a run. A profile mapping
// overrides the one the bundle's extractor recorded.
func opcodeMapFor(prof *profile.Profile, b *bundle.Bundle) (vm.OpcodeMap, error) {
	if len(prof.OpcodeMap) > 0 {
		return prof.VMOpcodeMap(), nil
	}
	return b.VMOpcodeMap()
}

func runDevirt(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("devirt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	bundlePath := fs.String("bundle", "", "input bundle ("+config.BundleFileExt+")")
	profilePath := fs.String("profile", "", "run profile (yaml)")
	outPath := fs.String("out", "", "IR dump output ("+config.DumpFileExt+")")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *bundlePath == "" {
		fmt.Fprintln(stderr, "devirt: -bundle is required")
		return 2
	}

	prof, err := loadProfile(*profilePath)
	if err != nil {
		fmt.Fprintf(stderr, "devirt: %v\n", err)
		return 1
	}
	b, err := bundle.ReadBundleFile(*bundlePath)
	if err != nil {
		fmt.Fprintf(stderr, "devirt: %v\n", err)
		return 1
	}

	opcodeMap, err := opcodeMapFor(prof, b)
	if err != nil {
		fmt.Fprintf(stderr, "devirt: %v\n", err)
		return 1
	}

	universe := metadata.NewUniverse()
	pipe, err := pipeline.Standard(prof, universe)
	if err != nil {
		fmt.Fprintf(stderr, "devirt: %v\n", err)
		return 1
	}

	ctx := pipeline.NewContext(b, opcodeMap, universe)
	ctx = pipe.Run(ctx)

	printDiagnostics(ctx.Diags, stderr)

	runID := ""
	if prof.Report.Path != "" {
		store, err := report.Open(prof.Report.Path)
		if err != nil {
			fmt.Fprintf(stderr, "devirt: %v\n", err)
			return 1
		}
		defer store.Close()
		runID, err = store.RecordRun(prof.Name, ctx)
		if err != nil {
			fmt.Fprintf(stderr, "devirt: %v\n", err)
			return 1
		}
	}

	if *outPath != "" {
		if err := bundle.WriteDumpFile(*outPath, dumpFromContext(ctx, runID)); err != nil {
			fmt.Fprintf(stderr, "devirt: %v\n", err)
			return 1
		}
	}

	ok := 0
	for _, m := range ctx.Methods {
		if !m.Failed {
			ok++
		}
	}
	fmt.Fprintf(stdout, "%s: %d/%d methods devirtualized\n", ctx.Module, ok, len(ctx.Methods))
	if ctx.Diags.HasErrors() {
		return 1
	}
	return 0
}

func runDisasm(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("disasm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	bundlePath := fs.String("bundle", "", "input bundle ("+config.BundleFileExt+")")
	profilePath := fs.String("profile", "", "run profile (yaml)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *bundlePath == "" {
		fmt.Fprintln(stderr, "disasm: -bundle is required")
		return 2
	}

	prof, err := loadProfile(*profilePath)
	if err != nil {
		fmt.Fprintf(stderr, "disasm: %v\n", err)
		return 1
	}
	b, err := bundle.ReadBundleFile(*bundlePath)
	if err != nil {
		fmt.Fprintf(stderr, "disasm: %v\n", err)
		return 1
	}

	opcodeMap, err := opcodeMapFor(prof, b)
	if err != nil {
		fmt.Fprintf(stderr, "disasm: %v\n", err)
		return 1
	}

	universe := metadata.NewUniverse()
	ctx := pipeline.NewContext(b, opcodeMap, universe)
	ctx = pipeline.New(pipeline.DecodeStage{}, pipeline.LiftStage{}).Run(ctx)

	for _, m := range ctx.Methods {
		if m.Failed {
			continue
		}
		fmt.Fprint(stdout, disasm.Listing(m.Decoded, m.Name))
		fmt.Fprint(stdout, disasm.TreeListing(m.Trees, m.Name+" (trees)"))
	}
	printDiagnostics(ctx.Diags, stderr)
	if ctx.Diags.HasErrors() {
		return 1
	}
	return 0
}

func runList(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	reportPath := fs.String("report", config.DefaultReportPath, "report store path")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	store, err := report.Open(*reportPath)
	if err != nil {
		fmt.Fprintf(stderr, "runs: %v\n", err)
		return 1
	}
	defer store.Close()

	runs, err := store.Runs()
	if err != nil {
		fmt.Fprintf(stderr, "runs: %v\n", err)
		return 1
	}
	for _, r := range runs {
		fmt.Fprintf(stdout, "%s  %-24s %-12s %d methods, %d failed\n", r.ID, r.Module, r.Profile, r.Methods, r.Failed)
	}
	return 0
}

func dumpFromContext(ctx *pipeline.Context, runID string) *bundle.Dump {
	d := &bundle.Dump{Version: bundle.Version, RunID: runID, Module: ctx.Module}
	for _, m := range ctx.Methods {
		if m.Failed {
			continue
		}
		dm := bundle.DumpMethod{Name: m.Name, Token: m.Token}
		for _, ins := range m.Output {
			di := bundle.DumpInstruction{Mnemonic: ins.Op.String()}
			if ins.Operand != nil {
				di.Operand = fmt.Sprintf("%v", ins.Operand)
			}
			dm.Instructions = append(dm.Instructions, di)
		}
		d.Methods = append(d.Methods, dm)
	}
	return d
}

func printDiagnostics(bag *diagnostics.Bag, stderr io.Writer) {
	colorize := false
	if f, ok := stderr.(*os.File); ok {
		colorize = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	for _, d := range bag.Items() {
		line := d.String()
		if colorize {
			switch d.Severity {
			case diagnostics.Error:
				line = "\x1b[31m" + line + "\x1b[0m"
			case diagnostics.Warning:
				line = "\x1b[33m" + line + "\x1b[0m"
			}
		}
		fmt.Fprintln(stderr, line)
	}
}
