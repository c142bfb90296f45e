package errors

import (
	"errors"
	"fmt"
)

// Re-exported standard library helpers so callers never need to import
// both packages.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// ErrorCode identifies an error class. Packages declare their own codes
// in their errors.go.
type ErrorCode string

// Error is a coded error with optional wrapped cause and context data.
type Error interface {
	error
	Code() ErrorCode
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

type appError struct {
	code ErrorCode
	err  error
	data any
}

func (e *appError) Error() string {
	switch {
	case e.data != nil && e.err != nil:
		return fmt.Sprintf("%s: %v: %v", e.code, e.data, e.err)
	case e.data != nil:
		return fmt.Sprintf("%s: %v", e.code, e.data)
	case e.err != nil:
		return fmt.Sprintf("%s: %v", e.code, e.err)
	default:
		return string(e.code)
	}
}

func (e *appError) Code() ErrorCode {
	return e.code
}

func (e *appError) WithData(data any) Error {
	return &appError{code: e.code, err: e.err, data: data}
}

func (e *appError) GetData() any {
	return e.data
}

func (e *appError) Unwrap() error {
	return e.err
}

// New creates an error carrying only a code.
func New(code ErrorCode) Error {
	return &appError{code: code}
}

// Wrap attaches a code to an underlying error.
func Wrap(code ErrorCode, err error) Error {
	return &appError{code: code, err: err}
}

// WithData creates a coded error carrying context data.
func WithData(code ErrorCode, data any) Error {
	return &appError{code: code, data: data}
}

// CodeOf returns the code of err if it is (or wraps) a coded error,
// empty otherwise.
func CodeOf(err error) ErrorCode {
	var coded Error
	if As(err, &coded) {
		return coded.Code()
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
