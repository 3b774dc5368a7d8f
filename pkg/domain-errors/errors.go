// Package dErrors provides coded domain errors. Services create or wrap
// errors with a Code; transports map codes onto their own status space.
// Infrastructure facts (record missing, key already taken) travel as
// sentinel errors from pkg/platform/sentinel and are translated into coded
// errors at the service boundary.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks field length/bound/format violations.
	CodeValidation Code = "validation"
	// CodeInvalidInput marks malformed identifiers at trust boundaries.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks requests that cannot be decoded or are
	// structurally incomplete.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized marks missing or unverifiable caller identity.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks callers that are not the required authority.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks references to records that do not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict marks duplicate-key creations and invalid state
	// transitions (already registered, already attested, already purchased,
	// inactive module).
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks internal states that should be
	// unreachable when invariants hold.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeArithmetic marks overflow in fee or reputation computation.
	// Always fatal for the request; nothing is committed.
	CodeArithmetic Code = "arithmetic"
	// CodeUnavailable marks collaborator failures (transfer primitive,
	// event sink) that abort the request.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks unexpected failures.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. Message is safe to return to callers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
		if err == nil {
			return false
		}
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability:
// dErrors.Is(err, dErrors.CodeConflict).
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code carried by err, or CodeInternal when
// err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost caller-safe message, or a generic one.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
