// golox CLI - compiles and runs Lox scripts, or starts a REPL.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"golox/cache"
	"golox/manifest"
	"golox/pkg/bytecode"
)

// Exit codes follow the sysexits convention: 64 usage, 65 bad input
// (compile error), 70 internal software error (runtime error).
const (
	exitOK      = 0
	exitUsage   = 64
	exitCompile = 65
	exitRuntime = 70
)

var log = commonlog.GetLogger("golox")

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	disasm := flag.Bool("disasm", false, "Print disassembly instead of executing")
	trace := flag.Bool("trace", false, "Trace each instruction during execution")
	noCache := flag.Bool("no-cache", false, "Skip the compiled program cache")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: golox [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles and runs a Lox script, or starts a REPL when no script is given.\n")
		fmt.Fprintf(os.Stderr, "A golox.toml in the script's directory (or any parent) provides defaults.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  golox script.lox        # Run a script\n")
		fmt.Fprintf(os.Stderr, "  golox -i                # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  golox -disasm fib.lox   # Show compiled bytecode\n")
		fmt.Fprintf(os.Stderr, "  golox -trace fib.lox    # Run with per-instruction tracing\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitUsage)
	}
	if m == nil {
		m = manifest.Default()
	} else {
		log.Debugf("loaded manifest from %s", m.Dir)
	}

	script := flag.Arg(0)
	if script == "" && !*interactive {
		script = m.EntryPath()
	}

	cfg := runConfig{
		manifest: m,
		disasm:   *disasm,
		trace:    *trace || m.VM.Trace,
		useCache: !*noCache && m.Cache.Enabled,
	}

	switch {
	case *interactive || script == "":
		os.Exit(repl(cfg))
	default:
		os.Exit(runFile(cfg, script))
	}
}

type runConfig struct {
	manifest *manifest.Manifest
	disasm   bool
	trace    bool
	useCache bool
}

func (cfg runConfig) vmOptions() []bytecode.Option {
	var opts []bytecode.Option
	if cfg.manifest.VM.StackSize > 0 {
		opts = append(opts, bytecode.WithStackSize(cfg.manifest.VM.StackSize))
	}
	if cfg.manifest.VM.FrameDepth > 0 {
		opts = append(opts, bytecode.WithFrameDepth(cfg.manifest.VM.FrameDepth))
	}
	if cfg.trace {
		opts = append(opts, bytecode.WithTrace(os.Stderr))
	}
	return opts
}

func runFile(cfg runConfig, path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	source := string(data)

	interner := bytecode.NewInterner()
	fn, code := compileOrLoad(cfg, source, interner)
	if fn == nil {
		return code
	}

	if cfg.disasm {
		fmt.Print(bytecode.DisassembleProgram(fn))
		return exitOK
	}

	vm := bytecode.NewVM(interner, cfg.vmOptions()...)
	if err := vm.Interpret(fn); err != nil {
		reportRuntimeError(err)
		return exitRuntime
	}
	return exitOK
}

// compileOrLoad returns the compiled program for source, going through
// the cache when enabled. On compile failure it prints diagnostics and
// returns a nil function with the exit code.
func compileOrLoad(cfg runConfig, source string, interner *bytecode.Interner) (*bytecode.FunctionObject, int) {
	var store *cache.Store
	if cfg.useCache {
		s, err := cache.Open(cfg.manifest.CachePath())
		if err != nil {
			log.Warningf("cache unavailable: %s", err.Error())
		} else {
			store = s
			defer store.Close()
		}
	}

	if store != nil {
		if data, err := store.Get(source); err == nil {
			fn, err := bytecode.UnmarshalProgram(data, interner)
			if err == nil {
				log.Debugf("loaded program from cache")
				return fn, exitOK
			}
			log.Warningf("discarding bad cache entry: %s", err.Error())
		} else if !errors.Is(err, cache.ErrMiss) {
			log.Warningf("cache read failed: %s", err.Error())
		}
	}

	fn, errs := bytecode.Compile(source, interner)
	if errs != nil {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		return nil, exitCompile
	}

	if store != nil {
		if data, err := bytecode.MarshalProgram(fn); err != nil {
			log.Warningf("cannot serialize program: %s", err.Error())
		} else if err := store.Put(source, data); err != nil {
			log.Warningf("cache write failed: %s", err.Error())
		}
	}
	return fn, exitOK
}

func reportRuntimeError(err error) {
	var re *bytecode.RuntimeError
	if errors.As(err, &re) {
		fmt.Fprintf(os.Stderr, "runtime error: %s\n", re.Message)
		for _, frame := range re.Trace {
			fmt.Fprintln(os.Stderr, frame)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// repl reads statements line by line into one persistent VM, so globals
// and functions defined earlier stay visible.
func repl(cfg runConfig) int {
	interner := bytecode.NewInterner()
	vm := bytecode.NewVM(interner, cfg.vmOptions()...)

	fmt.Println("golox REPL (ctrl-D to exit)")
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			fmt.Println()
			return exitOK
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		fn, errs := bytecode.Compile(line, interner)
		if errs != nil {
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, e.Error())
			}
			continue
		}
		if cfg.disasm {
			fmt.Print(bytecode.DisassembleProgram(fn))
		}
		if err := vm.Interpret(fn); err != nil {
			reportRuntimeError(err)
		}
	}
}
