package errors

import "errors"

// ErrorCode is a stable, string-based classification of an error, suitable
// for display and for mapping to process exit codes.
type ErrorCode string

const (
	// CodeNotFound indicates a requested object or prefix does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeConflict indicates the destination already exists.
	CodeConflict ErrorCode = "CONFLICT"

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeIO indicates a failure while data was being transferred.
	CodeIO ErrorCode = "IO_ERROR"

	// CodeCanceled indicates the operation was canceled.
	CodeCanceled ErrorCode = "CANCELED"

	// CodeUnknown indicates an unclassified error.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// CodeOf returns the code that classifies err. A nil error has no code.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case IsCanceled(err):
		return CodeCanceled
	case errors.Is(err, ErrIO):
		return CodeIO
	default:
		return CodeUnknown
	}
}
