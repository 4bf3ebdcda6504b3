// Package errors provides structured error handling for trapflow.
// It implements coded errors with context and stack traces.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Code identifies an error class for programmatic handling.
type Code string

const (
	// Catalogue errors (1xx)
	CodeCatalogUnavailable Code = "E101"
	CodeCatalogQuery       Code = "E102"

	// Input errors (2xx)
	CodeInputDirUnreadable Code = "E201"
	CodeNoInputFiles       Code = "E202"
	CodeFileRead           Code = "E203"

	// Output errors (3xx)
	CodeOutputDirUnwritable Code = "E301"
	CodeWriteFailed         Code = "E302"

	// System errors (4xx)
	CodeContextCanceled Code = "E401"
	CodeCheckpoint      Code = "E402"
	CodeTelemetryInit   Code = "E403"

	// Unknown
	CodeUnknown Code = "E999"
)

// TrapflowError is the base error type for all trapflow errors.
type TrapflowError struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace []Frame
}

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *TrapflowError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		sb.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *TrapflowError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target error by code.
func (e *TrapflowError) Is(target error) bool {
	if t, ok := target.(*TrapflowError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *TrapflowError) WithContext(key string, value interface{}) *TrapflowError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new TrapflowError.
func New(code Code, message string) *TrapflowError {
	return &TrapflowError{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Newf creates a new TrapflowError with a formatted message.
func Newf(code Code, format string, args ...interface{}) *TrapflowError {
	return &TrapflowError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code Code, message string) *TrapflowError {
	return &TrapflowError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// GetCode extracts the Code from an error chain, or CodeUnknown.
func GetCode(err error) Code {
	var te *TrapflowError
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeUnknown
}

// IsCode reports whether any error in the chain carries the given code.
func IsCode(err error, code Code) bool {
	var te *TrapflowError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// ContextCanceled creates a cancellation error for an operation.
func ContextCanceled(operation string) *TrapflowError {
	return &TrapflowError{
		Code:       CodeContextCanceled,
		Message:    fmt.Sprintf("operation canceled: %s", operation),
		StackTrace: captureStack(2),
	}
}

// captureStack records up to 8 frames above the error constructor.
func captureStack(skip int) []Frame {
	const depth = 8
	pcs := make([]uintptr, depth)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	out := make([]Frame, 0, n)
	for {
		f, more := frames.Next()
		out = append(out, Frame{
			Function: f.Function,
			File:     f.File,
			Line:     f.Line,
		})
		if !more {
			break
		}
	}
	return out
}
