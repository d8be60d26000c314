// Package errors provides typed error handling for kickpass.
//
// This package defines the closed set of error kinds the core surfaces,
// plus a captured-errno variant for syscall failures. All errors support
// the standard errors.Is() and errors.As() functions for inspection.
package errors

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind represents the category of an error returned by the core.
type Kind int

const (
	// NYI indicates the operation is not yet implemented.
	NYI Kind = iota
	// EInput indicates malformed caller input.
	EInput
	// EInternal indicates an internal invariant was violated.
	EInternal
	// InvalidStorage indicates a cipher file could not be parsed.
	InvalidStorage
	// NoHome indicates $HOME could not be resolved.
	NoHome
	// EDecrypt indicates AEAD authentication failed. Wrong passphrase
	// and tampered ciphertext are indistinguishable by design.
	EDecrypt
	// EEncrypt indicates the AEAD seal operation failed.
	EEncrypt
	// InvalidMsg indicates a malformed agent protocol frame.
	InvalidMsg
	// NoPrompt indicates the context has no password-prompt callback.
	NoPrompt
	// Exit indicates a benign early exit (e.g. --version/--help).
	Exit
	// Errno indicates a syscall failure; the errno is captured in Error.Errno.
	Errno
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case NYI:
		return "not yet implemented"
	case EInput:
		return "invalid input"
	case EInternal:
		return "internal error"
	case InvalidStorage:
		return "invalid storage"
	case NoHome:
		return "no home directory"
	case EDecrypt:
		return "decryption failed"
	case EEncrypt:
		return "encryption failed"
	case InvalidMsg:
		return "invalid message"
	case NoPrompt:
		return "no password prompt installed"
	case Exit:
		return "exit"
	case Errno:
		return "os error"
	default:
		return "unknown error"
	}
}

// Error is the error type returned by every public core operation.
type Error struct {
	// Op is the operation that failed (e.g. "open", "save", "search").
	Op string
	// Safe is the safe name, if applicable.
	Safe string
	// Kind is the error classification.
	Kind Kind
	// Detail provides additional human-readable context.
	Detail string
	// Err is the underlying error, if any.
	Err error
	// Errno is the captured OS error for Kind == Errno.
	Errno syscall.Errno
}

// Error returns the error message.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	var msg string
	if e.Safe != "" {
		msg = fmt.Sprintf("safe %s: ", e.Safe)
	}
	if e.Op != "" {
		msg += fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Kind == Errno && e.Errno != 0 {
		msg += fmt.Sprintf(": %v", e.Errno)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error matches the target.
// It matches if the target is an *Error with the same Kind, or if the
// underlying error matches.
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a new *Error with the given kind.
func New(kind Kind, op, detail string) *Error {
	return &Error{Op: op, Kind: kind, Detail: detail}
}

// Wrap wraps an error with operation context.
func Wrap(err error, kind Kind, op string) *Error {
	return &Error{Op: op, Err: err, Kind: kind}
}

// WrapWithSafe wraps an error with operation and safe-name context.
func WrapWithSafe(err error, kind Kind, op, safe string) *Error {
	return &Error{Op: op, Safe: safe, Err: err, Kind: kind}
}

// WrapWithDetail wraps an error with additional detail.
func WrapWithDetail(err error, kind Kind, op, detail string) *Error {
	return &Error{Op: op, Err: err, Kind: kind, Detail: detail}
}

// FromErrno wraps a syscall error as Kind == Errno, capturing the errno
// value so callers (and the agent protocol, which serializes it) can
// recover the original OS error.
func FromErrno(err error, op string) *Error {
	e := &Error{Op: op, Kind: Errno, Err: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		e.Errno = errno
	}
	return e
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// GetKind returns the error kind if the error is an *Error.
func GetKind(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
