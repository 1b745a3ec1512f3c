// Package lockerrors defines the error taxonomy surfaced across globallock's
// public API: the journal and blob-lease implementations and the acquisition
// protocol report failures through a single Code. The identity codec
// (lockid) returns plain errors, which globallock maps to InvalidArgument.
//
// Import graph: lockerrors <- journal/bloblease implementations, keylock <- globallock
package lockerrors

import (
	"context"
	"errors"
	"fmt"
)

// Code classifies a Error.
type Code int

const (
	// InvalidArgument indicates a null/empty/whitespace resource, scope, or
	// lease id, or a lease id that decodes to a malformed record id.
	InvalidArgument Code = iota + 1

	// OutOfRange indicates a non-positive TTL or extension period.
	OutOfRange

	// Cancelled indicates the caller's token, the process-shutdown token, or
	// a composed token fired. Storage-layer cancellations are re-mapped here.
	Cancelled

	// FatalStorage indicates any other backend error, propagated unchanged.
	// It is never retried by the coordinator.
	FatalStorage
)

// String returns a human-readable name for the code.
func (c Code) String() string {
	switch c {
	case InvalidArgument:
		return "InvalidArgument"
	case OutOfRange:
		return "OutOfRange"
	case Cancelled:
		return "Cancelled"
	case FatalStorage:
		return "FatalStorage"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Error is globallock's single error type. Callers type-assert or use
// errors.As to inspect Code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewInvalidArgument builds an InvalidArgument error.
func NewInvalidArgument(message string) *Error {
	return &Error{Code: InvalidArgument, Message: message}
}

// NewOutOfRange builds an OutOfRange error.
func NewOutOfRange(message string) *Error {
	return &Error{Code: OutOfRange, Message: message}
}

// NewCancelled wraps cause (typically context.Canceled or
// context.DeadlineExceeded) as a Cancelled error.
func NewCancelled(cause error) *Error {
	return &Error{Code: Cancelled, Message: "operation cancelled", Cause: cause}
}

// NewFatalStorage wraps an unexpected backend error.
func NewFatalStorage(message string, cause error) *Error {
	return &Error{Code: FatalStorage, Message: message, Cause: cause}
}

// IsCode reports whether err is, or wraps, an *Error carrying code, so
// callers can write errors.Is(err, lockerrors.InvalidArgument) style checks.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// FromContext maps ctx's error (if any) to a Cancelled *Error. Returns nil
// if ctx carries no error.
func FromContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return NewCancelled(err)
	}
	return nil
}
