package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
	Tag   string // validation tag, when the error comes from a known rule
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
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
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

// NotFoundError is implemented by domain "not found" sentinels so the API layer can map them to 404.
type NotFoundError interface {
	error
	NotFound() bool
}

type notFound struct {
	message string
}

func NewNotFoundError(msg string) error {
	return &notFound{message: msg}
}

func (nf notFound) Error() string  { return nf.message }
func (nf notFound) NotFound() bool { return true }

func IsNotFound(err error) bool {
	nf, ok := errors.Cause(err).(NotFoundError)
	return ok && nf.NotFound()
}

type forbidden struct {
	message string
}

// NewForbiddenError marks an action the authenticated user is not allowed to perform.
func NewForbiddenError(msg string) error {
	return &forbidden{message: msg}
}

func (f forbidden) Error() string { return f.message }

func IsForbidden(err error) bool {
	_, ok := errors.Cause(err).(*forbidden)
	return ok
}
