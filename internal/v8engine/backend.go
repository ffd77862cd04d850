//go:build v8

package v8engine

import "github.com/cryguy/jsbridge/internal/core"

// Backend creates V8 runtimes.
type Backend struct{}

var _ core.Backend = Backend{}

// Name implements core.Backend.
func (Backend) Name() string { return "v8" }

// NewRuntime implements core.Backend.
func (Backend) NewRuntime(cfg core.RuntimeConfig) (core.JSRuntime, error) {
	return newRuntime(cfg), nil
}
