package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an attribute or display form does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTransport is returned when the backend could not be reached or failed.
	ErrTransport = errors.New("transport failure")
	// ErrUnsupported is returned when the active element source cannot serve a request.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrInvariantViolation is returned synchronously on caller misuse.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrClosed is returned by commands issued after the handler was closed.
	ErrClosed = errors.New("handler closed")
)

// InvariantError describes a violated precondition.
//
// errors.Is(err, ErrInvariantViolation) holds for every InvariantError.
type InvariantError struct {
	Condition string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvariantViolation, e.Condition)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

// Invariant returns an InvariantError for the given condition
func Invariant(format string, args ...any) error {
	return &InvariantError{Condition: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing metadata object.
type NotFoundError struct {
	Ref ObjRef
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotFound, e.Ref)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// TransportError wraps a backend failure so that errors.Is(err, ErrTransport) holds.
type TransportError struct {
	Op    string
	cause error
}

// NewTransportError wraps cause as a transport failure of op
func NewTransportError(op string, cause error) *TransportError {
	return &TransportError{Op: op, cause: cause}
}

func (e *TransportError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.Op, ErrTransport)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrTransport, e.cause)
}

// Is matches ErrTransport
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.cause }
