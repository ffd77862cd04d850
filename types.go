package jsbridge

import (
	"github.com/cryguy/jsbridge/internal/core"
	"github.com/cryguy/jsbridge/internal/hostbind"
)

type (
	// Value is an engine value. Host functions may accept and return it to
	// pass script values through untouched.
	Value = core.Value

	// CallRecord describes one script call into a Callback.
	CallRecord = core.CallRecord

	// Callback is a host function with direct access to its call record.
	Callback = hostbind.Callback

	// Finalizer is implemented by registered values that want to know when
	// script can no longer reach them.
	Finalizer = hostbind.Finalizer

	// Exception is a script exception raised from Go. Return one from a
	// host function to control what script sees.
	Exception = core.Exception

	// ContractViolation is the panic payload for a broken binding setup.
	ContractViolation = core.ContractViolation
)

// ErrClosed is returned by every operation on a closed Context.
var ErrClosed = core.ErrClosed

// Errorf builds a script exception with a formatted message.
func Errorf(format string, args ...any) *Exception {
	return core.Errorf(format, args...)
}
