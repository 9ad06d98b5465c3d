package hostmod

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/bzfile/errors"
	"github.com/wippyai/bzfile/filehost"
)

// ModuleName is the import module guests link against.
const ModuleName = "bzfile"

// Instantiate registers the host functions of h in r under ModuleName.
func Instantiate(ctx context.Context, r wazero.Runtime, h *filehost.Host) (api.Module, error) {
	builder, err := NewBuilder(r, h)
	if err != nil {
		return nil, err
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Instantiation("instantiate host module "+ModuleName, err)
	}
	return mod, nil
}

// NewBuilder returns a host module builder with every function of h
// exported. Callers may add functions before instantiating it.
func NewBuilder(r wazero.Runtime, h *filehost.Host) (wazero.HostModuleBuilder, error) {
	fns, err := bind(h.Register())
	if err != nil {
		return nil, err
	}

	builder := r.NewHostModuleBuilder(ModuleName)
	for _, fn := range fns {
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(fn.goFunc(), fn.params, fn.results).
			WithName(fn.name).
			Export(fn.name)
	}
	return builder, nil
}

// goFunc adapts a lowered function to wazero. A host error traps the
// calling guest.
func (f function) goFunc() api.GoModuleFunc {
	name := f.name
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		var mem api.Memory
		if mod != nil {
			mem = mod.Memory()
		}
		if err := f.call(ctx, NewMemory(mem), newAllocator(ctx, mod), stack); err != nil {
			Logger().Debug("host call failed", zap.String("func", name), zap.Error(err))
			panic(err)
		}
	}
}
