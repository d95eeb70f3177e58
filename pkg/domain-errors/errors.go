// Package domainerrors carries user-facing error codes across service and
// transport layers. Services return these; handlers translate them into pages.
package domainerrors

import "errors"

// Code classifies a domain error. Handlers pick a status and page per code.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_error"
	CodeInvalidInput Code = "invalid_input"
	CodeConflict     Code = "conflict"
	CodeNotFound     Code = "not_found"
	CodeBadGateway   Code = "bad_gateway"
	CodeInternal     Code = "internal_error"
)

// Error is a coded error with a message safe to show to the end user.
// The wrapped cause is for logs only.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and user-facing message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// As extracts the outermost domain error from the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// Message returns the user-facing message, or fallback when err is not a
// domain error.
func Message(err error, fallback string) string {
	if de, ok := As(err); ok && de.Message != "" {
		return de.Message
	}
	return fallback
}
