package runtime

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/wippyai/bzfile/errors"
	"github.com/wippyai/bzfile/filehost"
	"github.com/wippyai/bzfile/hostmod"
)

// Config holds configuration for runtime creation.
type Config struct {
	// Host configures the file host shared by instances of this runtime.
	Host *filehost.Config

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// DisableWASI skips linking wasi_snapshot_preview1.
	DisableWASI bool
}

// Runtime runs core wasm guests with the bzfile host module linked.
// One guest instance owns the host's handles at a time.
type Runtime struct {
	wz   wazero.Runtime
	host *filehost.Host
	live *Instance
	mu   sync.Mutex
}

// New creates a runtime. A nil config uses defaults.
func New(ctx context.Context, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	host, err := filehost.New(cfg.Host)
	if err != nil {
		return nil, err
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	wz := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if !cfg.DisableWASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, wz); err != nil {
			_ = wz.Close(ctx)
			return nil, errors.Instantiation("instantiate wasi_snapshot_preview1", err)
		}
	}
	if _, err := hostmod.Instantiate(ctx, wz, host); err != nil {
		_ = wz.Close(ctx)
		return nil, err
	}

	return &Runtime{wz: wz, host: host}, nil
}

// Host returns the file host backing the bzfile module.
func (r *Runtime) Host() *filehost.Host {
	return r.host
}

// Close finalizes all remaining handles and releases the runtime.
func (r *Runtime) Close(ctx context.Context) error {
	hostErr := r.host.Close()
	if err := r.wz.Close(ctx); err != nil {
		return errors.Wrap(errors.PhaseRuntime, errors.KindInstantiation, err, "close runtime")
	}
	return hostErr
}

// LoadWASM compiles a core WebAssembly module.
func (r *Runtime) LoadWASM(ctx context.Context, wasm []byte) (*Module, error) {
	if isComponent(wasm) {
		return nil, errors.InvalidArgument(errors.PhaseRuntime, "component binaries are not supported; provide a core module")
	}
	compiled, err := r.wz.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidArgument, err, "compile module")
	}
	return &Module{runtime: r, compiled: compiled}, nil
}

// isComponent reports whether data carries a component model preamble.
func isComponent(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	if data[0] != 0x00 || data[1] != 0x61 || data[2] != 0x73 || data[3] != 0x6D {
		return false
	}
	return binary.LittleEndian.Uint32(data[4:8]) > 1
}
