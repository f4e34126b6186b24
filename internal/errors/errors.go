// Package errors maps evaluation failures onto HTTP responses and guards
// handlers against panics.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/copyleftdev/bbdob/internal/objective"
)

// ErrNotFound reports an unknown objective or route resource.
var ErrNotFound = stderrors.New("not found")

// Error is a failure with the HTTP status and machine readable code it is
// reported with.
type Error struct {
	// Status is the HTTP status code.
	Status int
	// Code is a short, stable identifier such as "invalid_argument".
	Code string
	// Message is safe to return to clients.
	Message string
	// Err is the underlying error.
	Err error
	// Stack is captured for server side failures only.
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder

	builder.WriteString(e.Code)
	if e.Message != "" {
		builder.WriteString(": ")
		builder.WriteString(e.Message)
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	return builder.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// StackTrace returns the stack trace as a slice of strings.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// New creates an error reported with status.
func New(status int, code, msg string) *Error {
	e := &Error{Status: status, Code: code, Message: msg}
	if status >= http.StatusInternalServerError {
		e.Stack = getStackTrace()
	}
	return e
}

// Errorf creates a new error with a formatted message.
func Errorf(status int, code, format string, args ...interface{}) *Error {
	return New(status, code, fmt.Sprintf(format, args...))
}

// Classify converts err into an *Error. Contract violations are the
// client's fault; unknown failures are internal and keep their stack.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	switch {
	case objective.IsContractViolation(err):
		return &Error{Status: http.StatusBadRequest, Code: "invalid_argument", Message: err.Error(), Err: err}
	case stderrors.Is(err, ErrNotFound):
		return &Error{Status: http.StatusNotFound, Code: "not_found", Message: err.Error(), Err: err}
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return &Error{Status: http.StatusServiceUnavailable, Code: "cancelled", Message: err.Error(), Err: err}
	default:
		return &Error{
			Status:  http.StatusInternalServerError,
			Code:    "internal",
			Message: http.StatusText(http.StatusInternalServerError),
			Err:     err,
			Stack:   getStackTrace(),
		}
	}
}

// WriteJSON writes err as {"error": {"code": ..., "message": ...}} and
// returns the classified error.
func WriteJSON(w http.ResponseWriter, err error) *Error {
	e := Classify(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    e.Code,
			"message": e.Message,
		},
	})
	return e
}

// getStackTrace returns the current stack trace as a slice of strings.
func getStackTrace() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // Skip runtime.Callers, getStackTrace, and the constructor
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
