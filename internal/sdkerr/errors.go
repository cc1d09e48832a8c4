// Package sdkerr defines the uniform error taxonomy the SDK wraps every
// failure into before it reaches the caller.
package sdkerr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind string

const (
	Config         Kind = "CONFIG"
	Validation     Kind = "VALIDATION"
	NotFound       Kind = "NOT_FOUND"
	AlreadyExists  Kind = "ALREADY_EXISTS"
	Transport      Kind = "TRANSPORT"
	Chain          Kind = "CHAIN"
	ChainRetryable Kind = "CHAIN_RETRYABLE"
	Crypto         Kind = "CRYPTO"
	Erasure        Kind = "ERASURE"
	Cancelled      Kind = "CANCELLED"
)

// Error is the concrete error type returned across SDK boundaries.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-classified error with no wrapped cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds a Kind-classified error wrapping an underlying cause.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Msg: err.Error(), Err: err}
}

// Wrapf is Wrap with a formatted message prefixed to the wrapped cause.
func Wrapf(kind Kind, op string, err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, or "" if err is not a tagged *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
