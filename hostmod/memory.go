package hostmod

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/bzfile"
	"github.com/wippyai/bzfile/errors"
)

const (
	cabiRealloc   = "cabi_realloc"
	legacyRealloc = "canonical_abi_realloc"
)

// WazeroMemory adapts a wazero memory to bzfile.Memory.
type WazeroMemory struct {
	mem api.Memory
}

var _ bzfile.Memory = (*WazeroMemory)(nil)

// NewMemory wraps mem. A nil mem fails every access.
func NewMemory(mem api.Memory) *WazeroMemory {
	return &WazeroMemory{mem: mem}
}

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	if m.mem == nil {
		return nil, errors.OutOfBounds("read", offset, length)
	}
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds("read", offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	if m.mem == nil || !m.mem.Write(offset, data) {
		return errors.OutOfBounds("write", offset, uint32(len(data)))
	}
	return nil
}

func (m *WazeroMemory) ReadU32(offset uint32) (uint32, error) {
	if m.mem == nil {
		return 0, errors.OutOfBounds("read", offset, 4)
	}
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds("read", offset, 4)
	}
	return val, nil
}

func (m *WazeroMemory) WriteU8(offset uint32, value uint8) error {
	if m.mem == nil || !m.mem.WriteByte(offset, value) {
		return errors.OutOfBounds("write", offset, 1)
	}
	return nil
}

func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	if m.mem == nil || !m.mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds("write", offset, 4)
	}
	return nil
}

// guestAllocator allocates through the calling module's realloc export.
type guestAllocator struct {
	ctx     context.Context
	realloc api.Function
}

var _ bzfile.Allocator = (*guestAllocator)(nil)

func newAllocator(ctx context.Context, mod api.Module) *guestAllocator {
	a := &guestAllocator{ctx: ctx}
	if mod == nil {
		return a
	}
	a.realloc = mod.ExportedFunction(cabiRealloc)
	if a.realloc == nil {
		a.realloc = mod.ExportedFunction(legacyRealloc)
	}
	return a
}

// Alloc calls realloc(0, 0, align, size).
func (a *guestAllocator) Alloc(size, align uint32) (uint32, error) {
	if a.realloc == nil {
		return 0, errors.AllocationFailed("alloc", size, errNoRealloc)
	}
	res, err := a.realloc.Call(a.ctx, 0, 0, uint64(align), uint64(size))
	if err != nil {
		return 0, errors.AllocationFailed("alloc", size, err)
	}
	if len(res) == 0 {
		return 0, errors.AllocationFailed("alloc", size, errNoRealloc)
	}
	return uint32(res[0]), nil
}
