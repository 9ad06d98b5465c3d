package hostmod

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/bzfile/errors"
	"github.com/wippyai/bzfile/filehost"
	"github.com/wippyai/bzfile/resource"
)

// fakeMemory is a guest memory with a bump allocator.
type fakeMemory struct {
	buf    []byte
	next   uint32
	allocs int
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{buf: make([]byte, 4096), next: 1024}
}

func (m *fakeMemory) Read(offset, length uint32) ([]byte, error) {
	if uint64(offset)+uint64(length) > uint64(len(m.buf)) {
		return nil, errors.OutOfBounds("read", offset, length)
	}
	return m.buf[offset : offset+length], nil
}

func (m *fakeMemory) Write(offset uint32, data []byte) error {
	if uint64(offset)+uint64(len(data)) > uint64(len(m.buf)) {
		return errors.OutOfBounds("write", offset, uint32(len(data)))
	}
	copy(m.buf[offset:], data)
	return nil
}

func (m *fakeMemory) ReadU32(offset uint32) (uint32, error) {
	b, err := m.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *fakeMemory) WriteU8(offset uint32, v uint8) error {
	return m.Write(offset, []byte{v})
}

func (m *fakeMemory) WriteU32(offset uint32, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return m.Write(offset, b[:])
}

func (m *fakeMemory) Alloc(size, align uint32) (uint32, error) {
	m.allocs++
	if align > 1 {
		m.next = (m.next + align - 1) &^ (align - 1)
	}
	ptr := m.next
	m.next += size
	if int(m.next) > len(m.buf) {
		return 0, errors.AllocationFailed("alloc", size, nil)
	}
	return ptr, nil
}

// put stores s at a fixed scratch offset and returns it as (ptr, len).
func (m *fakeMemory) put(offset uint32, s string) (uint64, uint64) {
	copy(m.buf[offset:], s)
	return uint64(offset), uint64(len(s))
}

func (m *fakeMemory) stringAt(t *testing.T, retptr uint32) string {
	t.Helper()
	ptr, err := m.ReadU32(retptr)
	require.NoError(t, err)
	length, err := m.ReadU32(retptr + 4)
	require.NoError(t, err)
	b, err := m.Read(ptr, length)
	require.NoError(t, err)
	return string(b)
}

func (m *fakeMemory) optionAt(t *testing.T, retptr uint32) *string {
	t.Helper()
	if m.buf[retptr] == 0 {
		return nil
	}
	s := m.stringAt(t, retptr+4)
	return &s
}

const retptr = 512

type fixture struct {
	host *filehost.Host
	mem  *fakeMemory
	fns  map[string]function
}

func newFixture(t *testing.T, debug bool) *fixture {
	t.Helper()
	h, err := filehost.New(&filehost.Config{
		Filesystem:       memfs.New(),
		WorkingDirectory: "/game/bin/win64",
		Debug:            debug,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	list, err := bind(h.Register())
	require.NoError(t, err)
	fns := make(map[string]function, len(list))
	for _, fn := range list {
		fns[fn.name] = fn
	}
	return &fixture{host: h, mem: newFakeMemory(), fns: fns}
}

func (f *fixture) call(t *testing.T, name string, stack ...uint64) ([]uint64, error) {
	t.Helper()
	fn, ok := f.fns[name]
	require.True(t, ok, "function %s not bound", name)
	require.Len(t, stack, len(fn.params), "%s arity", name)
	buf := make([]uint64, max(len(fn.params), len(fn.results)))
	copy(buf, stack)
	err := fn.call(context.Background(), f.mem, f.mem, buf)
	return buf[:len(fn.results)], err
}

func (f *fixture) open(t *testing.T, path, mode, sub string) uint64 {
	t.Helper()
	pp, pl := f.mem.put(0, path)
	mp, ml := f.mem.put(128, mode)
	sp, sl := f.mem.put(160, sub)
	res, err := f.call(t, "open", pp, pl, mp, ml, sp, sl)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.NotZero(t, res[0])
	return res[0]
}

func TestBind_Signatures(t *testing.T) {
	f := newFixture(t, false)

	tests := []struct {
		name    string
		params  int
		results int
	}{
		{"open", 6, 1},
		{"[method]file.write", 3, 1},
		{"[method]file.write-line", 3, 1},
		{"[method]file.read", 3, 0},
		{"[method]file.read-line", 2, 0},
		{"[method]file.dump", 2, 0},
		{"[method]file.flush", 1, 1},
		{"[method]file.close", 1, 0},
		{"[resource-drop]file", 1, 0},
		{"get-working-directory", 1, 0},
		{"get-workshop-directory", 1, 0},
		{"make-directory", 2, 0},
	}
	require.Len(t, f.fns, len(tests))
	for _, tt := range tests {
		fn, ok := f.fns[tt.name]
		require.True(t, ok, tt.name)
		assert.Len(t, fn.params, tt.params, tt.name)
		assert.Len(t, fn.results, tt.results, tt.name)
	}
}

func TestLower_UnsupportedSignature(t *testing.T) {
	_, err := lower("bad", func(int) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "bad")
}

func TestCalls_WriteThenRead(t *testing.T) {
	f := newFixture(t, false)

	w := f.open(t, "save.txt", "w", "trunc")
	tp, tl := f.mem.put(256, "hello")
	res, err := f.call(t, "[method]file.write-line", w, tp, tl)
	require.NoError(t, err)
	assert.Equal(t, w, res[0], "write-line returns self")

	res, err = f.call(t, "[method]file.flush", w)
	require.NoError(t, err)
	assert.Equal(t, w, res[0])

	_, err = f.call(t, "[method]file.close", w)
	require.NoError(t, err)
	_, err = f.call(t, "[resource-drop]file", w)
	require.NoError(t, err)
	assert.Zero(t, f.host.Len())

	r := f.open(t, "save.txt", "", "")

	_, err = f.call(t, "[method]file.read", r, 3, retptr)
	require.NoError(t, err)
	s := f.mem.optionAt(t, retptr)
	require.NotNil(t, s)
	assert.Equal(t, "hel", *s)

	_, err = f.call(t, "[method]file.read-line", r, retptr)
	require.NoError(t, err)
	s = f.mem.optionAt(t, retptr)
	require.NotNil(t, s)
	assert.Equal(t, "lo", *s)

	_, err = f.call(t, "[method]file.read-line", r, retptr)
	require.NoError(t, err)
	assert.Nil(t, f.mem.optionAt(t, retptr), "end of file lowers to none")

	_, err = f.call(t, "[method]file.dump", r, retptr)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", f.mem.stringAt(t, retptr))
}

func TestCalls_NegativeCountReadsOneByte(t *testing.T) {
	f := newFixture(t, false)

	w := f.open(t, "in.txt", "w", "trunc")
	tp, tl := f.mem.put(256, "xy")
	_, err := f.call(t, "[method]file.write", w, tp, tl)
	require.NoError(t, err)
	_, err = f.call(t, "[method]file.close", w)
	require.NoError(t, err)

	r := f.open(t, "in.txt", "r", "")
	minusOne := uint64(uint32(0xFFFFFFFF))
	_, err = f.call(t, "[method]file.read", r, minusOne, retptr)
	require.NoError(t, err)
	s := f.mem.optionAt(t, retptr)
	require.NotNil(t, s)
	assert.Equal(t, "x", *s)
}

func TestCalls_EmptyStringResultIsAllocated(t *testing.T) {
	f := newFixture(t, false)

	w := f.open(t, "empty.txt", "w", "trunc")
	_, err := f.call(t, "[method]file.close", w)
	require.NoError(t, err)

	r := f.open(t, "empty.txt", "r", "")
	before := f.mem.allocs
	_, err = f.call(t, "[method]file.dump", r, retptr)
	require.NoError(t, err)
	assert.Equal(t, before+1, f.mem.allocs)
	assert.Equal(t, "", f.mem.stringAt(t, retptr))
}

func TestCalls_ErrorsTrap(t *testing.T) {
	f := newFixture(t, true)

	pp, pl := f.mem.put(0, "missing.txt")
	mp, ml := f.mem.put(128, "r")
	_, err := f.call(t, "open", pp, pl, mp, ml, 0, 0)
	assert.ErrorIs(t, err, errors.ErrIO)

	mp, ml = f.mem.put(128, "x")
	_, err = f.call(t, "open", pp, pl, mp, ml, 0, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = f.call(t, "[method]file.dump", 77, retptr)
	assert.ErrorIs(t, err, errors.ErrPrecondition)

	w := f.open(t, "out.txt", "w", "")
	_, err = f.call(t, "[method]file.close", w)
	require.NoError(t, err)
	_, err = f.call(t, "[method]file.close", w)
	require.NoError(t, err, "close is repeatable")
	_, err = f.call(t, "[method]file.flush", w)
	assert.ErrorIs(t, err, errors.ErrPrecondition)

	_, err = f.call(t, "[method]file.write", w, 8000, 10)
	require.Error(t, err, "out of bounds string")
}

func TestCalls_ResultOutOfBounds(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.call(t, "get-working-directory", 5000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out_of_bounds")
}

func TestCalls_Paths(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.call(t, "get-working-directory", retptr)
	require.NoError(t, err)
	assert.Equal(t, "/game/bin/win64", f.mem.stringAt(t, retptr))

	_, err = f.call(t, "get-workshop-directory", retptr)
	require.NoError(t, err)
	assert.Equal(t, "/game/workshop/content/301650", f.mem.stringAt(t, retptr))

	pp, pl := f.mem.put(0, "mods/a/b")
	_, err = f.call(t, "make-directory", pp, pl)
	require.NoError(t, err)
	w := f.open(t, "mods/a/b/list.txt", "w", "")
	assert.NotZero(t, w)
}

func TestInstantiate_Wazero(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	h, err := filehost.New(&filehost.Config{Filesystem: memfs.New(), WorkingDirectory: "/", Debug: true})
	require.NoError(t, err)
	defer h.Close()

	mod, err := Instantiate(ctx, r, h)
	require.NoError(t, err)
	assert.Equal(t, ModuleName, mod.Name())

	defs := mod.ExportedFunctionDefinitions()
	require.Len(t, defs, 12)
	open := defs["open"]
	require.NotNil(t, open)
	assert.Equal(t, i32s(6), open.ParamTypes())
	assert.Equal(t, []api.ValueType{api.ValueTypeI32}, open.ResultTypes())

	handle, err := h.Open(ctx, "out.txt", "w", "")
	require.NoError(t, err)

	res, err := mod.ExportedFunction("[method]file.flush").Call(ctx, uint64(handle))
	require.NoError(t, err)
	assert.Equal(t, uint64(handle), res[0])

	_, err = mod.ExportedFunction("[method]file.close").Call(ctx, uint64(handle))
	require.NoError(t, err)

	_, err = mod.ExportedFunction("[method]file.flush").Call(ctx, uint64(handle))
	require.Error(t, err, "host errors surface from the call")

	_, err = mod.ExportedFunction("[resource-drop]file").Call(ctx, uint64(handle))
	require.NoError(t, err)
	assert.Zero(t, h.Len())

	_, ok := h.Lookup(resource.Handle(handle))
	assert.False(t, ok)
}
