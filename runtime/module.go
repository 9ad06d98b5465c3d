package runtime

import (
	"context"
	"os"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/bzfile/errors"
	"github.com/wippyai/bzfile/hostmod"
)

// Module is a compiled guest module.
type Module struct {
	runtime  *Runtime
	compiled wazero.CompiledModule
}

// Exports returns the exported function names in sorted order.
func (m *Module) Exports() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ImportsFileHost reports whether the module imports anything from the
// bzfile host module.
func (m *Module) ImportsFileHost() bool {
	for _, def := range m.compiled.ImportedFunctions() {
		if mod, _, ok := def.Import(); ok && mod == hostmod.ModuleName {
			return true
		}
	}
	return false
}

// Instantiate creates the guest instance. Only one instance per runtime may
// be live, since it owns the host's handles.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	r := m.runtime
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.live != nil {
		return nil, errors.New(errors.PhaseRuntime, errors.KindPrecondition).
			Detail("an instance is already running; close it first").
			Build()
	}

	modConfig := wazero.NewModuleConfig().
		WithName("").
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithStartFunctions("_initialize")

	mod, err := r.wz.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, errors.Instantiation("instantiate guest", err)
	}

	inst := &Instance{runtime: r, module: mod}
	r.live = inst
	Logger().Debug("guest instantiated", zap.Strings("exports", m.Exports()))
	return inst, nil
}

// Close releases the compiled module.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

var _ api.Closer = (*Module)(nil)
