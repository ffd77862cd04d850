package core

// JSRuntime abstracts the JavaScript engine (V8 or QuickJS) behind the
// minimal surface the script-side bridge shim needs: evaluating source and
// exposing Go functions to script.
type JSRuntime interface {
	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error

	// EvalString evaluates JavaScript and returns the result as a Go string.
	EvalString(js string) (string, error)

	// EvalInt evaluates JavaScript and returns the result as a Go int.
	EvalInt(js string) (int, error)

	// RegisterFunc registers a Go function as a global JavaScript function.
	// The function's Go types are marshaled to/from JS types. On error
	// return, the JS wrapper throws a TypeError.
	RegisterFunc(name string, fn any) error

	// RunMicrotasks pumps the microtask queue (Promise callbacks,
	// FinalizationRegistry cleanup jobs, etc.).
	// V8: PerformMicrotaskCheckpoint, QuickJS: ExecutePendingJob loop.
	RunMicrotasks()

	// Interrupt aborts the script that is currently running. It is safe to
	// call from another goroutine.
	Interrupt()

	// Close releases the engine.
	Close() error
}

// Collector is implemented by runtimes that can force a garbage collection
// cycle. QuickJS exposes JS_RunGC; v8go has no equivalent.
type Collector interface {
	GarbageCollect()
}
