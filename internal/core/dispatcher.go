package core

// Dispatcher is the host side of the bridge. The trampolines recover the
// handle of the native object involved and delegate to it. All methods run
// synchronously on the goroutine driving the engine.
type Dispatcher interface {
	// CallAsFunction invokes the host entity behind h. A non-nil error is
	// thrown into script; a *Exception with Value set is thrown unchanged.
	CallAsFunction(h *Handle, call *CallRecord) (Value, error)

	// GetProperty reads name. found=false lets the engine fall back to its
	// default property lookup.
	GetProperty(h *Handle, ctx Context, obj Object, name string) (v Value, found bool, err error)

	// SetProperty writes name. handled=false lets the engine store the
	// property itself.
	SetProperty(h *Handle, ctx Context, obj Object, name string, v Value) (handled bool, err error)

	// ConvertToString produces a class-specific string; ok=false falls back
	// to the class name tag.
	ConvertToString(h *Handle, ctx Context, obj Object) (s string, ok bool)

	// Finalize releases host resources behind h. It must not fail.
	Finalize(h *Handle)
}
