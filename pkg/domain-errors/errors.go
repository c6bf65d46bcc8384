// Package domainerrors defines the coded error type that services return and
// transports translate into responses.
//
// Stores report infrastructure facts through pkg/platform/sentinel; services
// map those facts (and validation failures) onto a Code here. Handlers only
// ever inspect the Code.
package domainerrors

import (
	"errors"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeBadRequest      Code = "bad_request"
	CodeValidation      Code = "validation_error"
	CodeNotFound        Code = "not_found"
	CodeConflict        Code = "conflict"
	CodeTooManyRequests Code = "too_many_requests"
	CodeTimeout         Code = "timeout"
	CodeUnavailable     Code = "unavailable"
	CodeInternal        Code = "internal_error"
)

// Error carries a Code, a message safe to surface to clients (except for
// CodeInternal), and an optional cause kept for logs and errors.As.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Cause: err}
}

// CodeOf returns the code of the outermost *Error in the chain, or
// CodeInternal when the chain carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost *Error in the chain has the code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	var de *Error
	return errors.As(err, &de) && de.Code == code
}
