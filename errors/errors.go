package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseOpen      Phase = "open"      // mode parsing and stream construction
	PhaseDispatch  Phase = "dispatch"  // handle operations
	PhaseLifecycle Phase = "lifecycle" // close, drop and collection
	PhaseBind      Phase = "bind"      // host module and guest memory
	PhaseConfig    Phase = "config"    // configuration loading
	PhaseRuntime   Phase = "runtime"   // runtime operations
	PhasePath      Phase = "path"      // directory utilities
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidArgument Kind = "invalid_argument"
	KindPrecondition    Kind = "precondition_violation"
	KindIO              Kind = "io_error"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindAllocation      Kind = "allocation"
	KindNotFound        Kind = "not_found"
	KindInstantiation   Kind = "instantiation"
	KindClosed          Kind = "closed"
)

// Kind sentinels for errors.Is checks that ignore the phase.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrPrecondition    = &Error{Kind: KindPrecondition}
	ErrIO              = &Error{Kind: KindIO}
	ErrClosed          = &Error{Kind: KindClosed}
)

// Error is the structured error type used throughout bzfile
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	File   string
	Detail string
	Handle uint32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	if e.Handle != 0 {
		fmt.Fprintf(&b, " (handle %d)", e.Handle)
	}
	if e.File != "" {
		b.WriteString(" on ")
		b.WriteString(e.File)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// File sets the file path
func (b *Builder) File(path string) *Builder {
	b.err.File = path
	return b
}

// Handle sets the resource handle
func (b *Builder) Handle(h uint32) *Builder {
	b.err.Handle = h
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidArgument creates an invalid argument error
func InvalidArgument(phase Phase, format string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArgument,
		Detail: fmt.Sprintf(format, args...),
	}
}

// NotOpen creates the precondition error for an operation on a handle that is not open
func NotOpen(op string, handle uint32) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindPrecondition,
		Op:     op,
		Handle: handle,
		Detail: "not open",
	}
}

// BadHandle creates the precondition error for a handle that does not name a live file
func BadHandle(op string, handle uint32) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindPrecondition,
		Op:     op,
		Handle: handle,
		Detail: "not a file handle",
	}
}

// IO wraps a stream failure
func IO(phase Phase, op, file string, cause error) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindIO,
		Op:    op,
		File:  file,
		Cause: cause,
	}
}

// Closed creates the error returned by a stream that was already closed
func Closed(op, file string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindClosed,
		Op:     op,
		File:   file,
		Detail: "stream closed",
	}
}

// OutOfBounds creates a guest memory bounds error
func OutOfBounds(op string, offset, length uint32) *Error {
	return &Error{
		Phase:  PhaseBind,
		Kind:   KindOutOfBounds,
		Op:     op,
		Detail: fmt.Sprintf("memory range [%d, %d) out of bounds", offset, uint64(offset)+uint64(length)),
		Value:  offset,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(op string, size uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseBind,
		Kind:   KindAllocation,
		Op:     op,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Instantiation creates an instantiation error
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
