// Package errors defines the coded error type shared by every multinet layer.
//
// Each failure carries a [Code]. The HTTP API maps codes to status
// codes, the CLI prints [UserMessage], and validation failures (see
// package validation) surface as VALIDATION_FAILED through [Coder].
//
//	if errs.Is(err, errs.ErrCodeNotFound) {
//		// 404
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure.
type Code string

const (
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidName     Code = "INVALID_NAME"
	ErrCodeInvalidMetadata Code = "INVALID_METADATA"
	ErrCodeDecode          Code = "DECODE_ERROR"
	ErrCodeValidation      Code = "VALIDATION_FAILED"
	ErrCodeTooLarge        Code = "PAYLOAD_TOO_LARGE"

	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeAlreadyExists Code = "ALREADY_EXISTS"

	ErrCodeGraphCreation Code = "GRAPH_CREATION"
	ErrCodeStorage       Code = "STORAGE_ERROR"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error pairs a code with a message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	s := string(e.Code) + ": " + e.Message
	if e.Cause == nil {
		return s
	}
	return s + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is match any *Error carrying the same code, so a bare
// &Error{Code: ErrCodeNotFound} works as a target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Cause == nil && t.Code == e.Code
}

// New returns an *Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is New with a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// Coder is implemented by error types that carry a code without being an *Error.
type Coder interface {
	Code() Code
}

// GetCode returns the outermost code found in err's chain, or "".
func GetCode(err error) Code {
	for ; err != nil; err = errors.Unwrap(err) {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case Coder:
			return e.Code()
		}
	}
	return ""
}

// Is reports whether err's chain carries code.
func Is(err error, code Code) bool {
	return code != "" && GetCode(err) == code
}

// UserMessage strips the code prefix from *Error values.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
