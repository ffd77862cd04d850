//go:build !v8

package jsbridge

import (
	"github.com/cryguy/jsbridge/internal/core"
	"github.com/cryguy/jsbridge/internal/quickjs"
)

func newBackend() core.Backend {
	return quickjs.Backend{}
}
