// Package jsbridge exposes Go functions and objects to an embedded
// JavaScript engine. Each Context owns one engine runtime; QuickJS is the
// default and V8 is selected with the v8 build tag.
package jsbridge

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cryguy/jsbridge/internal/core"
	"github.com/cryguy/jsbridge/internal/hostbind"
	"github.com/cryguy/jsbridge/internal/jsshim"
)

// ErrTimeout is returned when an evaluation exceeds Config.EvalTimeout.
// The Context is closed afterwards.
var ErrTimeout = errors.New("jsbridge: evaluation timed out")

// Context is a script runtime with a bridge installed. Its methods must not
// be called from inside a host function bound to the same Context.
type Context struct {
	cfg     Config
	logger  *log.Logger
	backend string

	rt     core.JSRuntime
	engine *jsshim.Engine
	bridge *core.Bridge
	host   *hostbind.Dispatcher

	mu     sync.Mutex
	closed bool
}

// NewContext creates a runtime on the build's engine backend and installs
// the bridge into it.
func NewContext(cfg Config) (*Context, error) {
	logger := cfg.logger()
	be := newBackend()
	rt, err := be.NewRuntime(core.RuntimeConfig{
		MemoryLimitMB: cfg.MemoryLimitMB,
		EvalTimeout:   cfg.EvalTimeout,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s runtime: %w", be.Name(), err)
	}
	engine, err := jsshim.New(rt, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	bridge, host := hostbind.NewBridge(engine, core.WithLogger(logger))
	return &Context{
		cfg:     cfg,
		logger:  logger,
		backend: be.Name(),
		rt:      rt,
		engine:  engine,
		bridge:  bridge,
		host:    host,
	}, nil
}

// Backend names the engine behind c ("quickjs" or "v8").
func (c *Context) Backend() string { return c.backend }

// Eval evaluates src and discards its completion value.
func (c *Context) Eval(src string) error {
	return c.run(func() error { return c.rt.Eval(src) })
}

// EvalString evaluates src and converts its completion value to a string
// the way script's String() does.
func (c *Context) EvalString(src string) (string, error) {
	var out string
	err := c.run(func() error {
		var err error
		out, err = c.rt.EvalString(fmt.Sprintf("String((0, eval)(%s))", quote(src)))
		return err
	})
	return out, err
}

// run executes fn under the evaluation watchdog, then drains the job queue.
func (c *Context) run(fn func() error) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	if c.cfg.EvalTimeout > 0 {
		var timedOut atomic.Bool
		watchdog := time.AfterFunc(c.cfg.EvalTimeout, func() {
			timedOut.Store(true)
			c.rt.Interrupt()
		})
		defer func() {
			watchdog.Stop()
			if !timedOut.Load() {
				return
			}
			if r := recover(); r != nil {
				if _, ok := r.(*core.ContractViolation); ok {
					panic(r)
				}
			}
			err = fmt.Errorf("%w (limit: %v)", ErrTimeout, c.cfg.EvalTimeout)
			c.closeLocked()
		}()
	}

	if err := fn(); err != nil {
		return err
	}
	c.rt.RunMicrotasks()
	return nil
}

// RegisterCallback binds cb to the global name.
func (c *Context) RegisterCallback(name string, cb Callback) error {
	return c.register(name, func(ctx core.Context) (core.Object, error) {
		return c.host.NewCallback(ctx, name, cb)
	})
}

// RegisterFunc binds the Go function fn to the global name. Script must
// call it with exactly as many arguments as fn declares; fn may return
// nothing, a value, an error, or a value and an error.
func (c *Context) RegisterFunc(name string, fn any) error {
	return c.register(name, func(ctx core.Context) (core.Object, error) {
		return c.host.NewFunction(ctx, name, fn)
	})
}

// RegisterObject binds ptr, a pointer to a struct, to the global name.
// Exported fields read and write through to the struct; exported methods
// are callable.
func (c *Context) RegisterObject(name string, ptr any) error {
	return c.register(name, func(ctx core.Context) (core.Object, error) {
		return c.host.NewObject(ctx, ptr)
	})
}

// Register binds v to the global name, choosing the binding from v's type.
// Primitive values are copied into script.
func (c *Context) Register(name string, v any) error {
	switch x := v.(type) {
	case Callback:
		return c.RegisterCallback(name, x)
	case func(*CallRecord) (Value, error):
		return c.RegisterCallback(name, x)
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.Func:
		return c.RegisterFunc(name, v)
	case rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Struct:
		return c.RegisterObject(name, v)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	val, err := c.host.ToValue(c.engine.Context(), rv)
	if err != nil {
		return fmt.Errorf("registering %s: %w", name, err)
	}
	if err := c.engine.Install(name, val); err != nil {
		return fmt.Errorf("registering %s: %w", name, err)
	}
	return nil
}

func (c *Context) register(name string, mk func(core.Context) (core.Object, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	obj, err := mk(c.engine.Context())
	if err != nil {
		return fmt.Errorf("registering %s: %w", name, err)
	}
	v := c.engine.ObjectValue(obj)
	defer c.engine.Release(v)
	if err := c.engine.Install(name, v); err != nil {
		return fmt.Errorf("registering %s: %w", name, err)
	}
	return nil
}

// GarbageCollect asks the engine to collect garbage and runs any pending
// finalizers. V8 does not run finalizers before Close.
func (c *Context) GarbageCollect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.engine.Collect()
}

// LiveHandles reports how many native objects script can still reach.
func (c *Context) LiveHandles() int {
	return c.bridge.Handles().Len()
}

// Close finalizes every remaining native object and releases the runtime.
// Calling Close more than once is harmless.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Context) closeLocked() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.bridge.Close()
	return c.rt.Close()
}
