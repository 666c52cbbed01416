// tapec compiles stack IR into tape programs.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/tapec/compiler"
	"github.com/chazu/tapec/manifest"
	"github.com/chazu/tapec/pkg/artifact"
	"github.com/chazu/tapec/pkg/compact"
	"github.com/chazu/tapec/pkg/diag"
	"github.com/chazu/tapec/pkg/tape"
)

// verbosity is a repeatable -v flag.
type verbosity int

func (v *verbosity) String() string { return strconv.Itoa(int(*v)) }

func (v *verbosity) Set(s string) error {
	if s == "true" {
		*v++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*v = verbosity(n)
	return nil
}

func (v *verbosity) IsBoolFlag() bool { return true }

type options struct {
	output  string
	config  string
	compact bool
	list    bool
	run     bool
	quiet   bool
}

func main() {
	var opts options
	var verbose verbosity
	flag.StringVar(&opts.output, "o", "", "Write a .tape artifact to this path")
	flag.StringVar(&opts.config, "config", "", "Path to tapec.toml (default: search upward from the source)")
	flag.BoolVar(&opts.compact, "compact", false, "Produce the compact form even if tapec.toml disables it")
	flag.BoolVar(&opts.list, "list", false, "Print the compact listing")
	flag.BoolVar(&opts.run, "run", false, "Execute the program on the tape machine")
	flag.BoolVar(&opts.quiet, "q", false, "Do not print the raw code")
	flag.Var(&verbose, "v", "Verbose logging (repeat for more)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tapec [options] <file.tir | file.tape>\n\n")
		fmt.Fprintf(os.Stderr, "Compiles stack IR into a tape program, or loads a compiled .tape artifact.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tapec sum.tir                  # Print the raw code\n")
		fmt.Fprintf(os.Stderr, "  tapec -o sum.tape sum.tir      # Also write an artifact\n")
		fmt.Fprintf(os.Stderr, "  tapec -q -list sum.tir         # Show the compact listing\n")
		fmt.Fprintf(os.Stderr, "  tapec -q -run sum.tape         # Run a compiled artifact\n")
	}
	flag.Parse()

	commonlog.Configure(int(verbose), nil)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, opts options) error {
	m, err := loadManifest(path, opts.config)
	if err != nil {
		return err
	}
	if errs := m.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "%s: %v\n", m.Project.Name, e)
		}
		return fmt.Errorf("invalid configuration")
	}

	var a *artifact.Artifact
	if filepath.Ext(path) == ".tape" {
		a, err = artifact.ReadFile(path)
	} else {
		a, err = compileFile(path, m, opts)
	}
	if err != nil {
		return err
	}

	if !opts.quiet {
		printCode(os.Stdout, a.Code, m.Output.Wrap)
	}
	if opts.list {
		prog := a.Program()
		if prog == nil {
			return fmt.Errorf("%s has no compact form; compile with -compact", path)
		}
		fmt.Print(prog.ListingWithName(a.Name))
	}
	if opts.output != "" {
		if err := artifact.WriteFile(opts.output, a); err != nil {
			return err
		}
	}
	if opts.run {
		return execute(a, m)
	}
	return nil
}

// loadManifest resolves the configuration: an explicit -config file, else
// the nearest tapec.toml above the source, else the defaults.
func loadManifest(source, config string) (*manifest.Manifest, error) {
	if config != "" {
		return manifest.LoadFile(config)
	}
	m, err := manifest.FindAndLoad(filepath.Dir(source))
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.Default()
	}
	return m, nil
}

func compileFile(path string, m *manifest.Manifest, opts options) (*artifact.Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	prog, err := compiler.Parse(name, f)
	if err != nil {
		return nil, err
	}

	res, err := compiler.Compile(prog, m.MemoryLayout(), compiler.Options{
		Compact: m.Output.Compact || opts.compact || opts.list,
		Debug:   m.Output.Debug,
	})
	if err != nil {
		return nil, err
	}
	reportDiagnostics(path, res.Diagnostics)
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%s: compilation failed", path)
	}

	return artifact.New(name, res.Code, res.Compact, res.Debug, res.Layout, res.Diagnostics), nil
}

func reportDiagnostics(path string, diags []*diag.Diagnostic) {
	for _, d := range diags {
		if d.Line > 0 {
			fmt.Fprintf(os.Stderr, "%s:%v\n", path, d)
		} else {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, d)
		}
	}
}

// printCode writes raw code, wrapped at width columns when w is a terminal.
func printCode(w io.Writer, code string, width int) {
	if f, ok := w.(*os.File); !ok || width <= 0 ||
		!(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		fmt.Fprintln(w, code)
		return
	}
	for len(code) > width {
		fmt.Fprintln(w, code[:width])
		code = code[width:]
	}
	fmt.Fprintln(w, code)
}

// execute runs the artifact on a fresh machine wired to stdin and stdout.
// The compact form is preferred when present.
func execute(a *artifact.Artifact, m *manifest.Manifest) error {
	machine := tape.NewMachine(m.Run.TapeSize)
	machine.StepLimit = m.Run.StepLimit
	machine.SetInput(os.Stdin)
	machine.SetOutput(os.Stdout)

	var err error
	if prog := a.Program(); prog != nil {
		err = compact.Run(machine, prog)
	} else {
		err = machine.Run(a.Code)
	}
	if err != nil {
		return fmt.Errorf("run %s: %w (after %d steps)", a.Name, err, machine.Steps)
	}
	return nil
}
