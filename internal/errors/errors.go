// Package errors provides API-facing errors for the gradient descent
// visualizer server. An Error carries the HTTP status and JSON-RPC code it
// should be reported with, plus the stack where it was created.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
	CodeNotFound       = -32004
)

// Error represents an error with context and stack trace.
type Error struct {
	// The underlying error that was returned
	Err error
	// A human-readable message describing the error
	Message string
	// The operation that was being performed when the error occurred
	Operation string
	// Status is the HTTP status code reported to clients.
	Status int
	// Code is the JSON-RPC error code reported to clients.
	Code int
	// The stack trace
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder

	if e.Message != "" {
		builder.WriteString(e.Message)
	}

	if e.Operation != "" {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString("operation=")
		builder.WriteString(e.Operation)
	}

	if e.Err != nil {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString(e.Err.Error())
	}

	return builder.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithOperation adds an operation to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// StackTrace returns the stack trace as a slice of strings.
func (e *Error) StackTrace() []string {
	return e.Stack
}

func newError(status, code int, err error, msg string) *Error {
	return &Error{
		Err:     err,
		Message: msg,
		Status:  status,
		Code:    code,
		Stack:   getStackTrace(),
	}
}

// BadRequest reports invalid client input.
func BadRequest(format string, args ...interface{}) *Error {
	return newError(http.StatusBadRequest, CodeInvalidParams, nil, fmt.Sprintf(format, args...))
}

// NotFound reports a missing resource.
func NotFound(format string, args ...interface{}) *Error {
	return newError(http.StatusNotFound, CodeNotFound, nil, fmt.Sprintf(format, args...))
}

// TooManyRequests reports an exhausted capacity limit.
func TooManyRequests(format string, args ...interface{}) *Error {
	return newError(http.StatusTooManyRequests, CodeServerError, nil, fmt.Sprintf(format, args...))
}

// Wrap wraps err with status, code and message. If err is nil, Wrap
// returns nil.
func Wrap(err error, status, code int, msg string) *Error {
	if err == nil {
		return nil
	}
	return newError(status, code, err, msg)
}

// From returns err as an *Error, wrapping anything else as an internal
// server error.
func From(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return newError(http.StatusInternalServerError, CodeServerError, err, "")
}

// getStackTrace returns the current stack trace as a slice of strings.
func getStackTrace() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // Skip runtime.Callers, getStackTrace, and newError
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}

	return stack
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
