package core

import "github.com/pkg/errors"

// ErrStorage is the cause of every failure of the underlying store (open, read or write rejected).
var ErrStorage = errors.New("storage unavailable")

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

type storageError struct {
	err error
	msg string
}

// NewStorageError wraps a store failure so that callers can tell it apart with IsStorage.
func NewStorageError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&storageError{err: err, msg: msg})
}

func (e *storageError) Error() string { return e.msg + ": " + e.err.Error() }

// Cause returns ErrStorage so that errors.Cause can be compared against it.
func (e *storageError) Cause() error { return ErrStorage }

// Unwrap exposes the original driver error.
func (e *storageError) Unwrap() error { return e.err }

func IsStorage(err error) bool {
	return errors.Cause(err) == ErrStorage
}

type shutdown struct {
	message string
}

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
