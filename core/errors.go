package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
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
		return "validation failed"
	}
	return err.Err.Error()
}

// PermissionError is returned when the store refuses an operation to the caller.
type PermissionError struct {
	Op string
}

func NewPermissionError(op string) error {
	return &PermissionError{Op: op}
}

func (err PermissionError) Error() string {
	if err.Op == "" {
		return "permission denied"
	}
	return "permission denied: " + err.Op
}

// IsPermissionDenied reports whether err (or any error it wraps) is a PermissionError.
func IsPermissionDenied(err error) bool {
	var pErr *PermissionError
	return errors.As(err, &pErr)
}

// NotFoundError is returned when a lookup by identifier yields nothing.
type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string {
	return err.Resource + " not found"
}

func IsNotFound(err error) bool {
	var nfErr *NotFoundError
	return errors.As(err, &nfErr)
}

// MalformedInputError is returned when a payload cannot be parsed at all.
type MalformedInputError struct {
	Err error
}

func NewMalformedInputError(err error) error {
	return &MalformedInputError{Err: err}
}

func (err MalformedInputError) Error() string {
	return "invalid JSON: please check the syntax"
}

// Detail returns the parser message, if any.
func (err MalformedInputError) Detail() string {
	if err.Err == nil {
		return ""
	}
	return fmt.Sprintf("%v", err.Err)
}

func (err MalformedInputError) Unwrap() error { return err.Err }

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
