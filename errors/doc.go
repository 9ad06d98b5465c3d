// Package errors provides structured error types for bzfile.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the operation name, the file path and the handle involved,
// plus a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDispatch, errors.KindIO).
//		Op("read").
//		Handle(3).
//		Detail("zero bytes read").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidArgument(errors.PhaseOpen, "invalid open mode %q", mode)
//	err := errors.NotOpen("read-line", handle)
//
// All errors implement the standard error interface and support errors.Is/As.
// The Kind sentinels (ErrInvalidArgument, ErrPrecondition, ErrIO) match any
// error of that kind regardless of phase:
//
//	if errors.Is(err, errors.ErrInvalidArgument) { ... }
package errors
