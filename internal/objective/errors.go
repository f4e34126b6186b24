package objective

import (
	"errors"
	"fmt"
)

// Sentinel causes of contract violations. Every *Error returned by this
// package and by concrete objectives wraps exactly one of them.
var (
	// ErrInvalidParameter reports an out-of-range construction parameter.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidInput reports a nil or malformed candidate tensor.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRank reports a candidate tensor of the wrong rank.
	ErrRank = errors.New("unexpected rank")
	// ErrDimension reports a candidate whose length differs from the objective's.
	ErrDimension = errors.New("dimension mismatch")
	// ErrCardinality reports a one-hot axis or index outside the allowed categories.
	ErrCardinality = errors.New("cardinality mismatch")
)

// Error is a contract violation with the operation and component that
// detected it.
type Error struct {
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the objective where the error occurred.
	Component string
	// Err is the sentinel cause.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%v: %s", e.Err, e.Message)
	}
	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, msg)
	}
	return msg
}

// Unwrap returns the sentinel cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// Violation creates a contract violation with a formatted message.
func Violation(cause error, format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

// IsContractViolation reports whether err is, or wraps, a contract violation.
func IsContractViolation(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	for _, s := range []error{ErrInvalidParameter, ErrInvalidInput, ErrRank, ErrDimension, ErrCardinality} {
		if errors.Is(e, s) {
			return true
		}
	}
	return false
}
