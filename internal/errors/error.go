// Package errors defines the error type reported by template parsing and
// execution, and renders it together with an excerpt of the offending
// source.
package errors

import (
	"fmt"

	"github.com/yetanotherchris/text-template/syntax"
)

// ErrorKind describes the type of error.
type ErrorKind int

const (
	ErrSyntax ErrorKind = iota
	ErrUnknownFunction
	ErrInvalidOperation
	ErrNotCallable
	ErrFormat
	ErrUndeclaredVar
	ErrRecursionLimit
	ErrBadArgument
	ErrMissingKey
	ErrOutOfFuel
	ErrTemplateNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case ErrSyntax:
		return "syntax error"
	case ErrUnknownFunction:
		return "unknown function"
	case ErrInvalidOperation:
		return "invalid operation"
	case ErrNotCallable:
		return "not callable"
	case ErrFormat:
		return "format error"
	case ErrUndeclaredVar:
		return "undeclared variable"
	case ErrRecursionLimit:
		return "recursion limit exceeded"
	case ErrBadArgument:
		return "bad argument"
	case ErrMissingKey:
		return "missing key"
	case ErrOutOfFuel:
		return "out of fuel"
	case ErrTemplateNotFound:
		return "template not found"
	default:
		return "error"
	}
}

// Error represents an error that occurred during template processing.
type Error struct {
	Kind      ErrorKind
	Message   string
	Span      *syntax.Span
	Name      string // template name
	Source    string // template source, for error display
	DebugInfo *DebugInfo
	cause     error
}

// NewError creates a new error.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Errorf creates a new error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Name != "" && e.Span != nil:
		return fmt.Sprintf("%s: %s (at %s:%s)", e.Kind, e.Message, e.Name, e.Span)
	case e.Span != nil:
		return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, e.Span)
	case e.Name != "":
		return fmt.Sprintf("%s: %s (in %s)", e.Kind, e.Message, e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Format implements fmt.Formatter. The %+v verb appends the source excerpt
// and the variables in scope when they were captured.
func (e *Error) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('+') {
		formatErrorWithDebug(f, e, true)
		return
	}
	_, _ = fmt.Fprint(f, e.Error())
}

// WithSpan adds span information to an error. An existing span is kept.
func (e *Error) WithSpan(span syntax.Span) *Error {
	if e.Span == nil && !span.IsZero() {
		e.Span = &span
	}
	return e
}

// WithName adds the template name to an error. An existing name is kept.
func (e *Error) WithName(name string) *Error {
	if e.Name == "" {
		e.Name = name
	}
	return e
}

// WithSource adds source to an error.
func (e *Error) WithSource(source string) *Error {
	if e.Source == "" {
		e.Source = source
	}
	return e
}

// WithCause records the error that caused e.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}
