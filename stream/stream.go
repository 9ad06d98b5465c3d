package stream

import (
	"bufio"
	stderrors "errors"
	"io"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/wippyai/bzfile/errors"
)

// DefaultBufferSize is the buffer size of the reader or writer of a stream.
const DefaultBufferSize = 4096

const filePerm = 0o644

// State is the lifecycle state of a stream.
type State uint8

const (
	StateUnopened State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	errNotReadable = stderrors.New("stream not open for reading")
	errNotWritable = stderrors.New("stream not open for writing")
)

// Stream is a buffered byte stream over one file.
// A read stream owns a reader, a write stream owns a writer; the file is
// released at most once.
type Stream struct {
	file  billy.File
	r     *bufio.Reader
	w     *bufio.Writer
	path  string
	opts  Options
	state State
}

// Open opens path on fs with the given options.
func Open(fs billy.Filesystem, path string, opts Options) (*Stream, error) {
	f, err := fs.OpenFile(path, opts.flags(), filePerm)
	if err != nil {
		return nil, errors.IO(errors.PhaseOpen, "open", path, err)
	}

	s := &Stream{
		file:  f,
		path:  path,
		opts:  opts,
		state: StateOpen,
	}
	if opts.Mode == ModeRead {
		s.r = bufio.NewReaderSize(f, DefaultBufferSize)
	} else {
		s.w = bufio.NewWriterSize(f, DefaultBufferSize)
	}
	return s, nil
}

// Path returns the path the stream was opened with.
func (s *Stream) Path() string { return s.path }

// Options returns the options the stream was opened with.
func (s *Stream) Options() Options { return s.opts }

// State returns the lifecycle state.
func (s *Stream) State() State { return s.state }

// IsOpen reports whether the stream accepts operations.
func (s *Stream) IsOpen() bool { return s.state == StateOpen }

func (s *Stream) reader(op string) (*bufio.Reader, error) {
	if s.state != StateOpen {
		return nil, errors.Closed(op, s.path)
	}
	if s.r == nil {
		return nil, errors.IO(errors.PhaseDispatch, op, s.path, errNotReadable)
	}
	return s.r, nil
}

func (s *Stream) writer(op string) (*bufio.Writer, error) {
	if s.state != StateOpen {
		return nil, errors.Closed(op, s.path)
	}
	if s.w == nil {
		return nil, errors.IO(errors.PhaseDispatch, op, s.path, errNotWritable)
	}
	return s.w, nil
}

// Write appends text at the current position.
func (s *Stream) Write(text string) error {
	w, err := s.writer("write")
	if err != nil {
		return err
	}
	if _, err := w.WriteString(text); err != nil {
		return errors.IO(errors.PhaseDispatch, "write", s.path, err)
	}
	return nil
}

// WriteLine appends text followed by a newline.
func (s *Stream) WriteLine(text string) error {
	w, err := s.writer("write-line")
	if err != nil {
		return err
	}
	if _, err := w.WriteString(text); err != nil {
		return errors.IO(errors.PhaseDispatch, "write-line", s.path, err)
	}
	if err := w.WriteByte('\n'); err != nil {
		return errors.IO(errors.PhaseDispatch, "write-line", s.path, err)
	}
	return nil
}

// AtEOF reports whether no byte is left to read. It does not consume input.
func (s *Stream) AtEOF() (bool, error) {
	r, err := s.reader("eof")
	if err != nil {
		return false, err
	}
	return s.peekEOF(r, "eof")
}

func (s *Stream) peekEOF(r *bufio.Reader, op string) (bool, error) {
	_, err := r.Peek(1)
	if err == nil {
		return false, nil
	}
	if stderrors.Is(err, io.EOF) {
		return true, nil
	}
	return false, errors.IO(errors.PhaseDispatch, op, s.path, err)
}

// Read reads up to count bytes. ok is false when the stream was already at
// end of file. A count of one or less reads exactly one byte. Fewer than
// count bytes are returned at end of file. The result grows with the data
// read, not with count.
func (s *Stream) Read(count int) (data []byte, ok bool, err error) {
	r, err := s.reader("read")
	if err != nil {
		return nil, false, err
	}
	// A successful peek leaves at least one byte buffered, so the reads
	// below always make progress.
	eof, err := s.peekEOF(r, "read")
	if err != nil || eof {
		return nil, false, err
	}

	if count <= 1 {
		b, err := r.ReadByte()
		if err != nil {
			return nil, false, errors.IO(errors.PhaseDispatch, "read", s.path, err)
		}
		return []byte{b}, true, nil
	}

	data, err = io.ReadAll(io.LimitReader(r, int64(count)))
	if err != nil {
		return nil, false, errors.IO(errors.PhaseDispatch, "read", s.path, err)
	}
	return data, true, nil
}

// ReadLine reads one line without its terminator. A "\r" before the "\n" is
// dropped as well. ok is false when the stream was already at end of file;
// a final line without terminator is still returned.
func (s *Stream) ReadLine() (line string, ok bool, err error) {
	r, err := s.reader("read-line")
	if err != nil {
		return "", false, err
	}
	eof, err := s.peekEOF(r, "read-line")
	if err != nil || eof {
		return "", false, err
	}
	line, err = s.readLine(r)
	if err != nil {
		return "", false, errors.IO(errors.PhaseDispatch, "read-line", s.path, err)
	}
	return line, true, nil
}

func (s *Stream) readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !stderrors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// Dump rewinds the stream and returns its whole content. Lines are
// reassembled with "\n" after every line, so "\r\n" endings and a missing
// final newline are normalized. With raw set the bytes are returned as
// stored. The stream is at end of file afterwards.
func (s *Stream) Dump(raw bool) (string, error) {
	r, err := s.reader("dump")
	if err != nil {
		return "", err
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return "", errors.IO(errors.PhaseDispatch, "dump", s.path, err)
	}
	r.Reset(s.file)

	if raw {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", errors.IO(errors.PhaseDispatch, "dump", s.path, err)
		}
		return string(data), nil
	}

	var b strings.Builder
	for {
		eof, err := s.peekEOF(r, "dump")
		if err != nil {
			return "", err
		}
		if eof {
			return b.String(), nil
		}
		line, err := s.readLine(r)
		if err != nil {
			return "", errors.IO(errors.PhaseDispatch, "dump", s.path, err)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

// Flush forces buffered writes to the file. It is a no-op on read streams.
func (s *Stream) Flush() error {
	if s.state != StateOpen {
		return errors.Closed("flush", s.path)
	}
	if s.w == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		return errors.IO(errors.PhaseDispatch, "flush", s.path, err)
	}
	return nil
}

// Close flushes pending writes and releases the file. Closing a stream that
// is not open does nothing, so the file is released at most once.
func (s *Stream) Close() error {
	if s.state != StateOpen {
		return nil
	}
	s.state = StateClosed

	var firstErr error
	if s.w != nil {
		if err := s.w.Flush(); err != nil {
			firstErr = errors.IO(errors.PhaseLifecycle, "close", s.path, err)
		}
	}
	if err := s.file.Close(); err != nil && firstErr == nil {
		firstErr = errors.IO(errors.PhaseLifecycle, "close", s.path, err)
	}
	s.r = nil
	s.w = nil
	return firstErr
}
