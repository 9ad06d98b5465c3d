package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/bzfile/errors"
)

// Instance is a running guest. It is NOT safe for concurrent use.
type Instance struct {
	runtime *Runtime
	module  api.Module
	closed  bool
}

// Call invokes an exported function with raw core wasm values.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if i.closed {
		return nil, errors.New(errors.PhaseRuntime, errors.KindClosed).Op(name).Detail("instance closed").Build()
	}
	fn := i.module.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "function", name)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindIO, err, "call "+name)
	}
	return results, nil
}

// Close closes the guest and finalizes every handle it still holds.
// Calling Close again does nothing.
func (i *Instance) Close(ctx context.Context) error {
	if i.closed {
		return nil
	}
	i.closed = true

	r := i.runtime
	r.mu.Lock()
	if r.live == i {
		r.live = nil
	}
	r.mu.Unlock()

	n := r.host.Collect()
	Logger().Debug("guest closed", zap.Int("finalized", n))
	return i.module.Close(ctx)
}
