package filehost

import (
	"context"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/bzfile/errors"
	"github.com/wippyai/bzfile/resource"
	"github.com/wippyai/bzfile/stream"
)

// Namespace is the WIT interface implemented by Host.
const Namespace = "bz:file/file@0.1.0"

// FileTypeID is the resource type id of file handles in the table.
const FileTypeID uint32 = 1

const dirPerm = 0o755

// Host owns the file handles of one guest instance.
type Host struct {
	fs    billy.Filesystem
	paths PathProvider
	table *resource.Table
	files *resource.Typed[*File]
	caps  *CapabilitySet
	cfg   Config
}

// New creates a host. A nil config uses DefaultConfig.
func New(cfg *Config) (*Host, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c, err := cfg.withDefaults()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidArgument, err, "resolve working directory")
	}

	table := resource.NewTable()
	return &Host{
		fs:    c.Filesystem,
		paths: c.Paths,
		table: table,
		files: resource.NewTyped[*File](table, FileTypeID),
		caps:  Capabilities(),
		cfg:   c,
	}, nil
}

// Namespace returns the WIT interface name.
func (h *Host) Namespace() string {
	return Namespace
}

// Config returns the resolved configuration.
func (h *Host) Config() Config {
	return h.cfg
}

// Table returns the handle table.
func (h *Host) Table() *resource.Table {
	return h.table
}

// Subscribe registers an observer for file lifecycle events.
func (h *Host) Subscribe(o resource.Observer) (unsubscribe func()) {
	return h.table.Subscribe(o)
}

// Len returns the number of live file handles, open or closed.
func (h *Host) Len() int {
	return h.files.Len()
}

// Open opens path and returns a new file handle. mode is "r" or "w" (empty
// means "r"); subMode is "app" or "trunc" (empty means "app") and only
// applies to write streams.
func (h *Host) Open(ctx context.Context, path, mode, subMode string) (resource.Handle, error) {
	opts, err := stream.ParseOptions(mode, subMode)
	if err != nil {
		return 0, err
	}
	path, err = h.resolve(errors.PhaseOpen, "open", path)
	if err != nil {
		return 0, err
	}
	s, err := stream.Open(h.fs, path, opts)
	if err != nil {
		return 0, err
	}

	f := &File{
		stream:  s,
		caps:    h.caps,
		table:   h.table,
		rawDump: h.cfg.RawDump,
	}
	handle, err := h.files.Insert(f)
	if err != nil {
		_ = s.Close()
		return 0, errors.Wrap(errors.PhaseLifecycle, errors.KindClosed, err, "host closed")
	}
	f.handle = handle

	Logger().Debug("file opened",
		zap.Uint32("handle", uint32(handle)),
		zap.String("path", path),
		zap.Stringer("mode", opts))
	return handle, nil
}

// file resolves self for op. In debug mode the stream must also be open,
// except for close which is always allowed.
func (h *Host) file(op string, self resource.Handle) (*File, error) {
	f, ok := h.files.Get(self)
	if !ok {
		return nil, errors.BadHandle(op, uint32(self))
	}
	if h.cfg.Debug && op != CapClose && !f.stream.IsOpen() {
		return nil, errors.NotOpen(op, uint32(self))
	}
	return f, nil
}

func (h *Host) dispatch(ctx context.Context, op string, self resource.Handle, args ...any) (any, error) {
	f, err := h.file(op, self)
	if err != nil {
		return nil, err
	}
	return f.Invoke(ctx, op, args...)
}

// Lookup returns the file behind a live handle.
func (h *Host) Lookup(self resource.Handle) (*File, bool) {
	return h.files.Get(self)
}

// Invoke dispatches a capability by name on self.
func (h *Host) Invoke(ctx context.Context, self resource.Handle, name string, args ...any) (any, error) {
	return h.dispatch(ctx, name, self, args...)
}

func (h *Host) chain(ctx context.Context, op string, self resource.Handle, args ...any) (resource.Handle, error) {
	if _, err := h.dispatch(ctx, op, self, args...); err != nil {
		return 0, err
	}
	return self, nil
}

func (h *Host) option(ctx context.Context, op string, self resource.Handle, args ...any) (*string, error) {
	v, err := h.dispatch(ctx, op, self, args...)
	if err != nil {
		return nil, err
	}
	s, _ := v.(*string)
	return s, nil
}

// MethodFileWrite writes text verbatim and returns self.
func (h *Host) MethodFileWrite(ctx context.Context, self resource.Handle, text string) (resource.Handle, error) {
	return h.chain(ctx, CapWrite, self, text)
}

// MethodFileWriteLine writes text and a newline and returns self.
func (h *Host) MethodFileWriteLine(ctx context.Context, self resource.Handle, text string) (resource.Handle, error) {
	return h.chain(ctx, CapWriteLine, self, text)
}

// MethodFileRead reads up to count bytes. A count of one or less reads a
// single byte. The result is nil at end of file.
func (h *Host) MethodFileRead(ctx context.Context, self resource.Handle, count int32) (*string, error) {
	return h.option(ctx, CapRead, self, count)
}

// MethodFileReadLine reads one line without its terminator. The result is
// nil at end of file.
func (h *Host) MethodFileReadLine(ctx context.Context, self resource.Handle) (*string, error) {
	return h.option(ctx, CapReadLine, self)
}

// MethodFileDump returns the whole file content from the beginning.
func (h *Host) MethodFileDump(ctx context.Context, self resource.Handle) (string, error) {
	v, err := h.dispatch(ctx, CapDump, self)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// MethodFileFlush flushes buffered writes and returns self.
func (h *Host) MethodFileFlush(ctx context.Context, self resource.Handle) (resource.Handle, error) {
	return h.chain(ctx, CapFlush, self)
}

// MethodFileClose closes the stream. The handle stays valid until dropped;
// closing it again does nothing.
func (h *Host) MethodFileClose(ctx context.Context, self resource.Handle) error {
	_, err := h.dispatch(ctx, CapClose, self)
	return err
}

// ResourceDropFile releases the handle slot and its stream. Unknown handles
// are ignored.
func (h *Host) ResourceDropFile(ctx context.Context, self resource.Handle) {
	if _, ok := h.files.Remove(self); !ok {
		Logger().Debug("drop of unknown file handle", zap.Uint32("handle", uint32(self)))
	}
}

// Collect finalizes every live handle and returns how many were released.
func (h *Host) Collect() int {
	return h.table.Collect()
}

// Close finalizes every live handle and rejects further opens.
func (h *Host) Close() error {
	return h.table.Close()
}

// GetWorkingDirectory returns the host working directory: the configured
// WorkingDirectory when one is set, the process directory otherwise.
func (h *Host) GetWorkingDirectory(ctx context.Context) (string, error) {
	dir, err := h.paths.WorkingDirectory()
	if err != nil {
		return "", errors.IO(errors.PhasePath, "get-working-directory", "", err)
	}
	return dir, nil
}

// GetWorkshopDirectory returns the workshop content directory.
func (h *Host) GetWorkshopDirectory(ctx context.Context) (string, error) {
	dir, err := h.paths.WorkshopDirectory()
	if err != nil {
		return "", errors.IO(errors.PhasePath, "get-workshop-directory", "", err)
	}
	return dir, nil
}

// MakeDirectory creates path and any missing parents.
func (h *Host) MakeDirectory(ctx context.Context, path string) error {
	path, err := h.resolve(errors.PhasePath, "make-directory", path)
	if err != nil {
		return err
	}
	if err := h.fs.MkdirAll(path, dirPerm); err != nil {
		return errors.IO(errors.PhasePath, "make-directory", path, err)
	}
	return nil
}

// resolve maps a guest path onto the filesystem. Without a Root the path is
// used as given.
func (h *Host) resolve(phase errors.Phase, op, path string) (string, error) {
	if h.cfg.Root == "" {
		return path, nil
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(h.cfg.WorkingDirectory, abs)
	}
	rel, ok := relativeTo(h.cfg.Root, filepath.Clean(abs))
	if !ok {
		return "", errors.New(phase, errors.KindInvalidArgument).
			Op(op).
			File(path).
			Detail("path is outside %s", h.cfg.Root).
			Build()
	}
	return rel, nil
}

// Register returns the namespace functions keyed by their WIT names.
func (h *Host) Register() map[string]any {
	return map[string]any{
		"open":                    h.Open,
		"[method]file.write":      h.MethodFileWrite,
		"[method]file.write-line": h.MethodFileWriteLine,
		"[method]file.read":       h.MethodFileRead,
		"[method]file.read-line":  h.MethodFileReadLine,
		"[method]file.dump":       h.MethodFileDump,
		"[method]file.flush":      h.MethodFileFlush,
		"[method]file.close":      h.MethodFileClose,
		"[resource-drop]file":     h.ResourceDropFile,
		"get-working-directory":   h.GetWorkingDirectory,
		"get-workshop-directory":  h.GetWorkshopDirectory,
		"make-directory":          h.MakeDirectory,
	}
}

// Signatures describes every namespace function in WIT terms.
func (h *Host) Signatures() []Signature {
	self := Param{Name: "self", Type: fileType}
	out := []Signature{{
		Name: "open",
		Params: []Param{
			{Name: "path", Type: wit.String{}},
			{Name: "mode", Type: wit.String{}},
			{Name: "sub-mode", Type: wit.String{}},
		},
		Result: fileType,
	}}
	for _, name := range h.caps.Names() {
		c, _ := h.caps.Lookup(name)
		sig := Signature{
			Name:   "[method]file." + c.Name,
			Params: append([]Param{self}, c.Params...),
			Result: c.Result,
		}
		if c.Finalizer {
			sig.Name = "[resource-drop]file"
		}
		out = append(out, sig)
	}
	return append(out,
		Signature{Name: "get-working-directory", Result: wit.String{}},
		Signature{Name: "get-workshop-directory", Result: wit.String{}},
		Signature{Name: "make-directory", Params: []Param{{Name: "path", Type: wit.String{}}}},
	)
}
