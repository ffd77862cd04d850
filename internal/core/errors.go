package core

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a torn-down bridge or runtime.
	ErrClosed = errors.New("jsbridge: closed")

	// ErrUnsupported is returned when an engine cannot perform a primitive.
	ErrUnsupported = errors.New("jsbridge: unsupported")
)

// ContractViolation is the panic payload raised when the binding setup is
// broken: a native object without its handle, a nil context passed to the
// registration API, a handle released twice. These are never converted into
// script exceptions.
type ContractViolation struct {
	Op  string
	Msg string
}

func (v *ContractViolation) Error() string {
	return fmt.Sprintf("jsbridge: contract violation in %s: %s", v.Op, v.Msg)
}

// violate panics with a ContractViolation.
func violate(op, format string, args ...any) {
	panic(&ContractViolation{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// Exception is a script-level exception raised by a Dispatcher. When Value
// is set it is thrown as-is; otherwise the trampoline builds an Error object
// from Message.
type Exception struct {
	Message string
	Value   Value
}

// NewException wraps an engine value so it can be rethrown unchanged.
func NewException(v Value) *Exception {
	return &Exception{Value: v}
}

// Errorf builds a script exception with a formatted message.
func Errorf(format string, args ...any) *Exception {
	return &Exception{Message: fmt.Sprintf(format, args...)}
}

func (e *Exception) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "script exception"
}
