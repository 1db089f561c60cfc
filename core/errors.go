package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ConflictError indicates a unique-key collision (duplicate email, subject
// code, ...). Rendered as HTTP 409.
type ConflictError struct {
	Message string
}

func NewConflictError(msg string) error { return &ConflictError{Message: msg} }

func (err ConflictError) Error() string { return err.Message }

type shutdown struct {
	message string
}

// NewShutdownError returns an error that signals the server to shut down
// gracefully once the current request is answered.
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
