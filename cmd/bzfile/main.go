package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/bzfile/filehost"
	"github.com/wippyai/bzfile/hostmod"
	"github.com/wippyai/bzfile/resource"
	"github.com/wippyai/bzfile/runtime"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to core wasm module importing bzfile")
		funcName    = flag.String("func", "", "Function to call (optional)")
		configFile  = flag.String("config", "", "Path to a TOML config file")
		root        = flag.String("root", "", "Directory guest paths must stay under")
		debug       = flag.Bool("debug", false, "Validate handles before every file operation")
		list        = flag.Bool("list", false, "List exported functions and exit")
		interactive = flag.Bool("i", false, "Interactive console over the file host")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *debug {
		cfg.Host.Debug = true
	}
	if *root != "" {
		cfg.Host.Root = *root
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	filehost.SetLogger(logger)
	hostmod.SetLogger(logger)
	runtime.SetLogger(logger)

	if *interactive {
		if err := runInteractive(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: bzfile -wasm <file.wasm> [-func name] [-config bzfile.toml]")
		fmt.Fprintln(os.Stderr, "       bzfile -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       bzfile -i  (interactive console)")
		os.Exit(1)
	}

	if err := run(cfg, *wasmFile, *funcName, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = level > zapcore.DebugLevel
	return zc.Build()
}

func run(cfg cliConfig, wasmFile, funcName string, listOnly bool) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	rt, err := runtime.New(ctx, cfg.runtimeConfig())
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close(ctx)

	module, err := rt.LoadWASM(ctx, data)
	if err != nil {
		return fmt.Errorf("load module: %w", err)
	}
	defer module.Close(ctx)

	exports := module.Exports()
	fmt.Printf("Module: %s\n", wasmFile)
	fmt.Printf("Imports bzfile: %v\n", module.ImportsFileHost())
	fmt.Printf("\nExported functions:\n")
	for _, name := range exports {
		fmt.Printf("  %s\n", name)
	}

	if listOnly {
		return nil
	}

	if funcName == "" {
		for _, name := range []string{"_start", "run", "main"} {
			for _, f := range exports {
				if f == name {
					funcName = name
					break
				}
			}
			if funcName != "" {
				break
			}
		}
		if funcName == "" && len(exports) == 1 {
			funcName = exports[0]
		}
		if funcName == "" {
			fmt.Printf("\nNo function specified and no common entry point found.\n")
			fmt.Printf("Use -func to specify a function to call.\n")
			return nil
		}
	}

	instance, err := module.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}

	fmt.Printf("\nCalling %s()...\n", funcName)
	results, callErr := instance.Call(ctx, funcName)

	live, open := rt.Host().Len(), openStreams(rt.Host())
	if err := instance.Close(ctx); err != nil {
		return fmt.Errorf("close instance: %w", err)
	}
	if live > 0 {
		fmt.Printf("Finalized %d handle(s) not dropped by the guest, %d of them still open\n", live, open)
	}

	var exit *sys.ExitError
	if errors.As(callErr, &exit) && exit.ExitCode() == 0 {
		callErr = nil
	}
	if callErr != nil {
		return fmt.Errorf("call %s: %w", funcName, callErr)
	}
	fmt.Printf("Result: %v\n", results)
	return nil
}

// openStreams counts handles whose stream the guest never closed.
func openStreams(h *filehost.Host) int {
	n := 0
	h.Table().Each(func(_ resource.Handle, _ uint32, v any) bool {
		if f, ok := v.(*filehost.File); ok && f.Stream().IsOpen() {
			n++
		}
		return true
	})
	return n
}
