package stream

import (
	"os"

	"github.com/wippyai/bzfile/errors"
)

// Mode selects the direction of a stream.
type Mode uint8

const (
	ModeRead Mode = iota
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeWrite:
		return "w"
	default:
		return "?"
	}
}

// WriteMode selects what happens to existing content of a write stream.
type WriteMode uint8

const (
	WriteAppend WriteMode = iota
	WriteTruncate
)

func (m WriteMode) String() string {
	switch m {
	case WriteAppend:
		return "app"
	case WriteTruncate:
		return "trunc"
	default:
		return "?"
	}
}

// ParseMode maps the mode strings accepted from guests. Empty means "r".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "r":
		return ModeRead, nil
	case "w":
		return ModeWrite, nil
	default:
		return 0, errors.InvalidArgument(errors.PhaseOpen, "invalid open mode %q", s)
	}
}

// ParseWriteMode maps the write sub-mode strings. Empty means "app".
func ParseWriteMode(s string) (WriteMode, error) {
	switch s {
	case "", "app":
		return WriteAppend, nil
	case "trunc":
		return WriteTruncate, nil
	default:
		return 0, errors.InvalidArgument(errors.PhaseOpen, "invalid open option %q", s)
	}
}

// Options is the parsed open configuration of a stream.
type Options struct {
	Mode      Mode
	WriteMode WriteMode
}

// ParseOptions parses a mode and sub-mode pair. The sub-mode is only
// validated for write streams; read streams ignore it.
func ParseOptions(mode, writeMode string) (Options, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return Options{}, err
	}
	opts := Options{Mode: m}
	if m == ModeWrite {
		wm, err := ParseWriteMode(writeMode)
		if err != nil {
			return Options{}, err
		}
		opts.WriteMode = wm
	}
	return opts, nil
}

// flags returns the os.OpenFile flags for the options.
func (o Options) flags() int {
	if o.Mode == ModeRead {
		return os.O_RDONLY
	}
	if o.WriteMode == WriteTruncate {
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	return os.O_WRONLY | os.O_CREATE | os.O_APPEND
}

func (o Options) String() string {
	if o.Mode == ModeRead {
		return o.Mode.String()
	}
	return o.Mode.String() + "/" + o.WriteMode.String()
}
