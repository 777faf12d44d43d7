// Slate CLI - runs slate scripts and the interactive REPL
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chazu/slate/compiler"
	"github.com/chazu/slate/diag"
	"github.com/chazu/slate/manifest"
	"github.com/chazu/slate/vm"
	"github.com/chazu/slate/vm/dist"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/sync/errgroup"
)

var log = commonlog.GetLogger("slate.cli")

// options holds the command line after manifest values are merged in.
type options struct {
	verbosity   int
	interactive bool
	dis         bool
	trace       bool
	noCache     bool
	color       string
	file        string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is the whole CLI. It returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("slate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbosity := fs.Int("v", 0, "Log verbosity (0 quiet, 1 info, 2 debug)")
	interactive := fs.Bool("i", false, "Start interactive REPL")
	dis := fs.Bool("dis", false, "Print disassembly before running")
	trace := fs.Bool("trace", false, "Trace executed instructions (needs -v=2)")
	noCache := fs.Bool("no-cache", false, "Bypass the compiled-code cache")
	color := fs.String("color", manifest.ColorAuto, "Color output: auto, always or never")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: slate [options] [file.sl]\n\n")
		fmt.Fprintf(stderr, "Runs a slate script. Without a file, runs the [run] entry of the nearest\n")
		fmt.Fprintf(stderr, "%s, or starts the REPL when there is none.\n\n", manifest.FileName)
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return 2
	}

	m, err := manifest.FindAndLoad(".")
	if errors.Is(err, manifest.ErrNoManifest) {
		m, err = manifest.Default(".")
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	opts := options{
		verbosity:   m.Log.Verbosity,
		interactive: *interactive,
		dis:         *dis,
		trace:       m.Run.Trace,
		noCache:     *noCache || !m.Cache.Enabled,
		color:       m.Output.Color,
		file:        fs.Arg(0),
	}
	// Flags given explicitly win over the manifest.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			opts.verbosity = *verbosity
		case "trace":
			opts.trace = *trace
		case "color":
			opts.color = *color
		}
	})
	if opts.file == "" && !opts.interactive {
		opts.file = m.EntryPath()
	}

	commonlog.Configure(opts.verbosity, nil)
	rep := diag.NewReporter(stderr, opts.color)
	v := vm.New(vm.WithMaxDepth(m.Run.MaxDepth), vm.WithTrace(opts.trace))

	if opts.interactive || opts.file == "" {
		return runREPL(v, stdin, stdout, rep, opts.dis)
	}

	var store *dist.Store
	if !opts.noCache {
		store, err = dist.Open(m.CachePath())
		if err != nil {
			log.Warningf("cache disabled: %v", err)
		} else {
			defer store.Close()
		}
	}
	return runFile(v, store, opts, stdout, rep)
}

// runFile loads, compiles (or fetches from the cache) and executes one
// script.
func runFile(v *vm.VM, store *dist.Store, opts options, stdout io.Writer, rep *diag.Reporter) (status int) {
	src, err := compiler.ReadSourceFile(opts.file)
	if err != nil {
		rep.Report(nil, err)
		return 1
	}

	code, cached, err := loadCode(v, store, src)
	if err != nil {
		rep.Report(src, err)
		return 1
	}
	defer code.Drop()

	if opts.dis {
		fmt.Fprintln(stdout, v.Disassemble(code.Code()))
	}

	// The cache write runs while the script executes.
	var g errgroup.Group
	if store != nil && !cached {
		key := dist.SourceKey(src.Name, src.Text)
		shared := code.CloneAcrossThread()
		g.Go(func() error {
			defer shared.Drop()
			return store.Save(key, shared.Code())
		})
	}
	defer func() {
		if err := g.Wait(); err != nil {
			log.Warningf("cache write failed: %v", err)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			d, ok := r.(*vm.Defect)
			if !ok {
				panic(r)
			}
			rep.Internal(d)
			status = 1
		}
	}()

	result, err := v.Execute(code.Code())
	if err != nil {
		rep.Report(src, err)
		return 1
	}
	defer result.Drop()
	return printResult(v, result, stdout, rep, src)
}

// loadCode returns the compiled module for src as a code value, consulting
// the cache first when store is non-nil. cached reports a cache hit.
func loadCode(v *vm.VM, store *dist.Store, src *compiler.SourceFile) (code vm.Value, cached bool, err error) {
	if store != nil {
		key := dist.SourceKey(src.Name, src.Text)
		code, err = store.Load(v, key)
		if err == nil {
			log.Infof("cache hit for %s", src.Name)
			return code, true, nil
		}
		if !errors.Is(err, dist.ErrNotCached) {
			log.Warningf("cache read failed: %v", err)
		}
		log.Infof("cache miss for %s", src.Name)
	}

	c, err := compiler.Compile(v, src)
	if err != nil {
		return vm.Value{}, false, err
	}
	return v.CodeFrom(c), false, nil
}

// printResult writes the repr of a script's result unless it is none.
func printResult(v *vm.VM, result vm.Value, stdout io.Writer, rep *diag.Reporter, src *compiler.SourceFile) int {
	if result.IsNil() || result.Kind() == vm.KindNone {
		return 0
	}
	s, err := v.Repr(result)
	if err != nil {
		rep.Report(src, err)
		return 1
	}
	fmt.Fprintln(stdout, s)
	return 0
}
