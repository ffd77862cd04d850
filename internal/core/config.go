package core

import (
	"log"
	"time"
)

// RuntimeConfig holds the knobs a backend needs to create a JSRuntime.
type RuntimeConfig struct {
	MemoryLimitMB int           // per-runtime memory limit, 0 for unlimited
	EvalTimeout   time.Duration // interrupt evaluation after this long, 0 to disable
	Logger        *log.Logger   // nil discards bridge diagnostics
}
