package hostmod

import (
	"context"
	"sort"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/bzfile"
	"github.com/wippyai/bzfile/errors"
	"github.com/wippyai/bzfile/resource"
)

// call runs one host function against flattened core wasm values.
// Results are written back into stack.
type call func(ctx context.Context, mem bzfile.Memory, alloc bzfile.Allocator, stack []uint64) error

type function struct {
	call    call
	name    string
	params  []api.ValueType
	results []api.ValueType
}

func i32s(n int) []api.ValueType {
	out := make([]api.ValueType, n)
	for i := range out {
		out[i] = api.ValueTypeI32
	}
	return out
}

// bind lowers every registered function, sorted by name.
func bind(fns map[string]any) ([]function, error) {
	names := make([]string, 0, len(fns))
	for name := range fns {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]function, 0, len(names))
	for _, name := range names {
		fn, err := lower(name, fns[name])
		if err != nil {
			return nil, err
		}
		out = append(out, fn)
	}
	return out, nil
}

// lower flattens a Go host function into core wasm values. Strings are
// (ptr, len) pairs, handles are i32, and string or option<string> results
// go through a trailing return pointer.
func lower(name string, fn any) (function, error) {
	f := function{name: name}

	switch h := fn.(type) {
	case func(context.Context, string, string, string) (resource.Handle, error):
		f.params, f.results = i32s(6), i32s(1)
		f.call = func(ctx context.Context, mem bzfile.Memory, _ bzfile.Allocator, stack []uint64) error {
			var args [3]string
			for i := range args {
				s, err := readString(mem, stack[2*i], stack[2*i+1])
				if err != nil {
					return err
				}
				args[i] = s
			}
			handle, err := h(ctx, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			stack[0] = uint64(handle)
			return nil
		}

	case func(context.Context, resource.Handle, string) (resource.Handle, error):
		f.params, f.results = i32s(3), i32s(1)
		f.call = func(ctx context.Context, mem bzfile.Memory, _ bzfile.Allocator, stack []uint64) error {
			text, err := readString(mem, stack[1], stack[2])
			if err != nil {
				return err
			}
			handle, err := h(ctx, resource.Handle(stack[0]), text)
			if err != nil {
				return err
			}
			stack[0] = uint64(handle)
			return nil
		}

	case func(context.Context, resource.Handle, int32) (*string, error):
		f.params = i32s(3)
		f.call = func(ctx context.Context, mem bzfile.Memory, alloc bzfile.Allocator, stack []uint64) error {
			s, err := h(ctx, resource.Handle(stack[0]), int32(uint32(stack[1])))
			if err != nil {
				return err
			}
			return writeOptionString(mem, alloc, uint32(stack[2]), s)
		}

	case func(context.Context, resource.Handle) (*string, error):
		f.params = i32s(2)
		f.call = func(ctx context.Context, mem bzfile.Memory, alloc bzfile.Allocator, stack []uint64) error {
			s, err := h(ctx, resource.Handle(stack[0]))
			if err != nil {
				return err
			}
			return writeOptionString(mem, alloc, uint32(stack[1]), s)
		}

	case func(context.Context, resource.Handle) (string, error):
		f.params = i32s(2)
		f.call = func(ctx context.Context, mem bzfile.Memory, alloc bzfile.Allocator, stack []uint64) error {
			s, err := h(ctx, resource.Handle(stack[0]))
			if err != nil {
				return err
			}
			return writeString(mem, alloc, uint32(stack[1]), s)
		}

	case func(context.Context, resource.Handle) (resource.Handle, error):
		f.params, f.results = i32s(1), i32s(1)
		f.call = func(ctx context.Context, _ bzfile.Memory, _ bzfile.Allocator, stack []uint64) error {
			handle, err := h(ctx, resource.Handle(stack[0]))
			if err != nil {
				return err
			}
			stack[0] = uint64(handle)
			return nil
		}

	case func(context.Context, resource.Handle) error:
		f.params = i32s(1)
		f.call = func(ctx context.Context, _ bzfile.Memory, _ bzfile.Allocator, stack []uint64) error {
			return h(ctx, resource.Handle(stack[0]))
		}

	case func(context.Context, resource.Handle):
		f.params = i32s(1)
		f.call = func(ctx context.Context, _ bzfile.Memory, _ bzfile.Allocator, stack []uint64) error {
			h(ctx, resource.Handle(stack[0]))
			return nil
		}

	case func(context.Context) (string, error):
		f.params = i32s(1)
		f.call = func(ctx context.Context, mem bzfile.Memory, alloc bzfile.Allocator, stack []uint64) error {
			s, err := h(ctx)
			if err != nil {
				return err
			}
			return writeString(mem, alloc, uint32(stack[0]), s)
		}

	case func(context.Context, string) error:
		f.params = i32s(2)
		f.call = func(ctx context.Context, mem bzfile.Memory, _ bzfile.Allocator, stack []uint64) error {
			path, err := readString(mem, stack[0], stack[1])
			if err != nil {
				return err
			}
			return h(ctx, path)
		}

	default:
		return f, errors.New(errors.PhaseBind, errors.KindInvalidArgument).
			Op(name).
			Detail("unsupported host function signature %T", fn).
			Build()
	}

	return f, nil
}
