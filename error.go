package texttemplate

import (
	"github.com/yetanotherchris/text-template/internal/errors"
)

// Error represents an error that occurred during template processing.
type Error = errors.Error

// ErrorKind describes the type of error that occurred during template processing.
type ErrorKind = errors.ErrorKind

const (
	ErrSyntax           = errors.ErrSyntax
	ErrUnknownFunction  = errors.ErrUnknownFunction
	ErrInvalidOperation = errors.ErrInvalidOperation
	ErrNotCallable      = errors.ErrNotCallable
	ErrFormat           = errors.ErrFormat
	ErrUndeclaredVar    = errors.ErrUndeclaredVar
	ErrRecursionLimit   = errors.ErrRecursionLimit
	ErrBadArgument      = errors.ErrBadArgument
	ErrMissingKey       = errors.ErrMissingKey
	ErrOutOfFuel        = errors.ErrOutOfFuel
	ErrTemplateNotFound = errors.ErrTemplateNotFound
)

// NewError creates a new error with the given kind and message.
func NewError(kind ErrorKind, msg string) *Error {
	return errors.NewError(kind, msg)
}

func errorf(kind ErrorKind, format string, args ...any) *Error {
	return errors.Errorf(kind, format, args...)
}
