// Package effect runs asynchronous operations that race against cancellation.
//
// Run resolves an operation to exactly one of success, error or canceled.
// Tracker records which operations are in flight so a cancel command can find
// the ones it matches and the owner can tell a live completion from a stale one.
package effect

import (
	"context"
	"errors"
	"fmt"
)

// Status is the terminal state of an operation
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "canceled"
	}
}

// Outcome is the single terminal result of an operation
type Outcome[T any] struct {
	Status Status
	Value  T
	Err    error
}

// Run executes op and waits for whichever comes first: its result or ctx cancellation.
//
// If op settles first its value or error wins. If ctx is done first the outcome is
// canceled and whatever op eventually returns is discarded. op receives ctx so it
// can stop early; an error it returns because ctx was canceled is reported as canceled.
func Run[T any](ctx context.Context, op func(context.Context) (T, error)) Outcome[T] {
	if ctx.Err() != nil {
		return Outcome[T]{Status: StatusCanceled}
	}

	done := make(chan Outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Outcome[T]{Status: StatusError, Err: &PanicError{Value: r}}
			}
		}()
		v, err := op(ctx)
		if err != nil {
			done <- Outcome[T]{Status: StatusError, Err: err}
			return
		}
		done <- Outcome[T]{Status: StatusSuccess, Value: v}
	}()

	select {
	case o := <-done:
		return settle(ctx, o)
	case <-ctx.Done():
		// op may have settled at the same instant; it settled first if its result is ready
		select {
		case o := <-done:
			return settle(ctx, o)
		default:
			return Outcome[T]{Status: StatusCanceled}
		}
	}
}

func settle[T any](ctx context.Context, o Outcome[T]) Outcome[T] {
	if o.Status == StatusError && ctx.Err() != nil && errors.Is(o.Err, context.Canceled) {
		return Outcome[T]{Status: StatusCanceled}
	}
	return o
}

// Go runs op in its own goroutine and hands the outcome to deliver exactly once
func Go[T any](ctx context.Context, op func(context.Context) (T, error), deliver func(Outcome[T])) {
	go func() {
		deliver(Run(ctx, op))
	}()
}

// PanicError is reported when an operation panics
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("operation panicked: %v", e.Value)
}
