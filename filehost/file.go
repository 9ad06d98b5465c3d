package filehost

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/bzfile/errors"
	"github.com/wippyai/bzfile/resource"
	"github.com/wippyai/bzfile/stream"
)

// File is the resource value behind a file handle. It pairs one stream with
// the shared capability set.
type File struct {
	stream  *stream.Stream
	caps    *CapabilitySet
	table   *resource.Table
	handle  resource.Handle
	rawDump bool
}

// Handle returns the handle the file was registered under.
func (f *File) Handle() resource.Handle { return f.handle }

// Stream returns the underlying stream.
func (f *File) Stream() *stream.Stream { return f.stream }

// Capabilities returns the capability set shared by all files.
func (f *File) Capabilities() *CapabilitySet { return f.caps }

// Invoke runs the capability registered under name with args.
func (f *File) Invoke(ctx context.Context, name string, args ...any) (any, error) {
	c, ok := f.caps.Lookup(name)
	if !ok || c.Finalizer {
		return nil, errors.NotFound(errors.PhaseDispatch, "capability", name)
	}
	if err := c.checkArgs(args); err != nil {
		return nil, err
	}
	return c.Call(ctx, f, args)
}

// close is the explicit close. The slot stays allocated.
func (f *File) close() error {
	wasOpen := f.stream.IsOpen()
	err := f.stream.Close()
	if wasOpen {
		Logger().Debug("file closed",
			zap.Uint32("handle", uint32(f.handle)),
			zap.String("path", f.stream.Path()),
			zap.Error(err))
		f.table.Notify(resource.Event{
			Type:   resource.EventClosed,
			Handle: f.handle,
			TypeID: FileTypeID,
			Value:  f,
		})
	}
	return err
}

// Finalize runs the finalizer capability when the slot is freed. The stream
// is released here unless it was closed explicitly before.
func (f *File) Finalize() {
	_, err := f.caps.Finalizer().Call(context.Background(), f, nil)
	if err != nil {
		Logger().Warn("finalize file",
			zap.Uint32("handle", uint32(f.handle)),
			zap.String("path", f.stream.Path()),
			zap.Error(err))
		return
	}
	Logger().Debug("file finalized",
		zap.Uint32("handle", uint32(f.handle)),
		zap.String("path", f.stream.Path()))
}
