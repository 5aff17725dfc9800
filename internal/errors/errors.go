// Package errors provides standardized domain errors with codes for the nixground API.
//
// Usage:
//
//	// In services - return typed errors
//	if kindExists {
//	    return errors.AlreadyExists("tag kind already exists")
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrNotFound) {
//	    ...
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeValidation:
//	        ...
//	    case errors.CodeInvariant:
//	        ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound       Code = "NOT_FOUND"
	CodeAlreadyExists  Code = "ALREADY_EXISTS"
	CodeValidation     Code = "VALIDATION"
	CodeConflict       Code = "CONFLICT"
	CodeInvariant      Code = "INVARIANT"
	CodeSessionState   Code = "SESSION_STATE"
	CodeSourceFetch    Code = "SOURCE_FETCH"
	CodeSourceRejected Code = "SOURCE_REJECTED"
	CodeInternal       Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict, CodeInvariant:
		return http.StatusConflict
	case CodeValidation, CodeSourceRejected:
		return http.StatusBadRequest
	case CodeSourceFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound       = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists  = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation     = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict       = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInvariant      = &Error{Code: CodeInvariant, Message: "invariant violation"}
	ErrSessionState   = &Error{Code: CodeSessionState, Message: "invalid session state"}
	ErrSourceFetch    = &Error{Code: CodeSourceFetch, Message: "source fetch failed"}
	ErrSourceRejected = &Error{Code: CodeSourceRejected, Message: "source rejected"}
	ErrInternal       = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// AlreadyExistsf creates an already exists error with formatted message.
func AlreadyExistsf(format string, args ...any) *Error {
	return &Error{Code: CodeAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Conflictf creates a conflict error with formatted message.
func Conflictf(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Invariant creates an invariant violation error.
func Invariant(msg string) *Error {
	return &Error{Code: CodeInvariant, Message: msg}
}

// Invariantf creates an invariant violation error with formatted message.
func Invariantf(format string, args ...any) *Error {
	return &Error{Code: CodeInvariant, Message: fmt.Sprintf(format, args...)}
}

// SessionState creates an invalid session state error.
func SessionState(msg string) *Error {
	return &Error{Code: CodeSessionState, Message: msg}
}

// SessionStatef creates an invalid session state error with formatted message.
func SessionStatef(format string, args ...any) *Error {
	return &Error{Code: CodeSessionState, Message: fmt.Sprintf(format, args...)}
}

// SourceFetch creates a source fetch error for upstream or network faults.
func SourceFetch(msg string) *Error {
	return &Error{Code: CodeSourceFetch, Message: msg}
}

// SourceFetchf creates a source fetch error with formatted message.
func SourceFetchf(format string, args ...any) *Error {
	return &Error{Code: CodeSourceFetch, Message: fmt.Sprintf(format, args...)}
}

// SourceRejected creates a source fetch error attributable to the caller,
// such as a 4xx response from the remote.
func SourceRejected(msg string) *Error {
	return &Error{Code: CodeSourceRejected, Message: msg}
}

// SourceRejectedf creates a caller-fault source fetch error with formatted message.
func SourceRejectedf(format string, args ...any) *Error {
	return &Error{Code: CodeSourceRejected, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
