package core

// Backend creates JSRuntime instances for one engine. The root facade picks
// the QuickJS or V8 backend based on build tags.
type Backend interface {
	// Name identifies the engine ("quickjs", "v8").
	Name() string

	// NewRuntime creates a fresh runtime with its own global scope.
	NewRuntime(cfg RuntimeConfig) (JSRuntime, error)
}
