package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is against these to classify a failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrBusinessRule = errors.New("business rule violated")
	ErrInvalidDate  = fmt.Errorf("invalid booking dates: %w", ErrBusinessRule)
	ErrForbidden    = errors.New("access not allowed")
	ErrConflict     = errors.New("conflict")
)

// Error is a classified failure with a client-facing message.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Kind returns the sentinel this error is classified under.
func (e *Error) Kind() error { return e.kind }

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

func BusinessRule(format string, args ...interface{}) error {
	return newError(ErrBusinessRule, format, args...)
}

func InvalidDate(format string, args ...interface{}) error {
	return newError(ErrInvalidDate, format, args...)
}

func Forbidden(format string, args ...interface{}) error {
	return newError(ErrForbidden, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}
