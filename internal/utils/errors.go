package utils

import (
	"errors"
	"fmt"
)

// AppError records a failed operation against an upstream dependency, with a
// human-facing message and the underlying cause.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// OpOf returns the operation recorded in the chain's first AppError, or an
// empty string when the chain carries none. Handlers use it to tell
// dependency failures from internal ones.
func OpOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Op
	}
	return ""
}
