// Package errors provides the error types shared by the file manager.
//
// Failures carry the operation that produced them and, where relevant, the
// object name involved. Callers classify failures with errors.Is against the
// sentinel values below or through the IsX helpers.
package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Error represents a failed file manager operation with context about what
// was being done.
type Error struct {
	// Op is the operation that failed (e.g., "rename", "upload", "list")
	Op string

	// Key is the object name or prefix (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithKey adds object name context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with object name context.
func NewObjectError(op, key string, err error) *Error {
	return &Error{
		Op:  op,
		Key: key,
		Err: err,
	}
}

// Sentinel errors for the failure classes callers act on.
var (
	// ErrInvalidInput indicates a missing or malformed argument
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates the destination exists and overwrite was not requested
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates a missing object, prefix or local file
	ErrNotFound = errors.New("not found")

	// ErrIO indicates a failure while data was moving
	ErrIO = errors.New("i/o failure")

	// ErrCanceled indicates the operation was canceled by its owner
	ErrCanceled = errors.New("operation canceled")
)

// NewConflictError reports that dest is already taken.
func NewConflictError(op, dest string) *Error {
	return &Error{
		Op:  op,
		Key: dest,
		Err: fmt.Errorf("%w: an object with the same name already exists: %s", ErrConflict, dest),
	}
}

// IsNotFound checks if an error indicates that an object or prefix was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error indicates a destination conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsCanceled reports whether err stems from an explicit cancellation,
// either ErrCanceled or a canceled context.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// Ignorable is a failure that has been deliberately classified as not worth
// propagating. It is always logged by Ignore.
type Ignorable struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *Ignorable) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("ignored %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("ignored %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Ignorable) Unwrap() error {
	return e.Err
}

// Ignore classifies err as ignorable, logs it at warn level and returns the
// classified value. A nil err yields nil and logs nothing.
func Ignore(logger *slog.Logger, op, key string, err error) *Ignorable {
	if err == nil {
		return nil
	}
	ig := &Ignorable{Op: op, Key: key, Err: err}
	if logger != nil {
		logger.Warn("ignoring error",
			slog.String("op", op),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return ig
}

// IsIgnorable reports whether err was classified by Ignore.
func IsIgnorable(err error) bool {
	var ig *Ignorable
	return errors.As(err, &ig)
}
