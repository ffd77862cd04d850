package jsbridge

import (
	"io"
	"log"
	"os"
	"time"
)

// Config holds runtime configuration for a bridge Context.
type Config struct {
	MemoryLimitMB int           // per-runtime memory limit, 0 for unlimited
	EvalTimeout   time.Duration // interrupt evaluation after this long, 0 to disable
	Logger        *log.Logger   // bridge diagnostics; nil discards them
}

// DefaultConfig returns the configuration the CLI runs with.
func DefaultConfig() Config {
	return Config{
		MemoryLimitMB: 128,
		EvalTimeout:   30 * time.Second,
		Logger:        log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (c Config) logger() *log.Logger {
	if c.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return c.Logger
}
