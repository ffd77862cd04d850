//go:build !v8

package quickjs

import "github.com/cryguy/jsbridge/internal/core"

// Backend creates QuickJS runtimes.
type Backend struct{}

var _ core.Backend = Backend{}

// Name implements core.Backend.
func (Backend) Name() string { return "quickjs" }

// NewRuntime implements core.Backend.
func (Backend) NewRuntime(cfg core.RuntimeConfig) (core.JSRuntime, error) {
	return newRuntime(cfg)
}
