//go:build !v8

// Package quickjs is the default engine backend, built on the pure-Go
// QuickJS port from modernc.org.
package quickjs

import (
	"fmt"

	"github.com/cryguy/jsbridge/internal/core"
	"modernc.org/libc"
	lib "modernc.org/libquickjs"
	"modernc.org/quickjs"
)

// qjsRuntime implements core.JSRuntime for the QuickJS engine.
type qjsRuntime struct {
	vm *quickjs.VM

	// cached from VM internals for direct C API access; zero when the
	// wrapper's layout could not be read.
	cRuntime uintptr
	tls      *libc.TLS
}

var (
	_ core.JSRuntime = (*qjsRuntime)(nil)
	_ core.Collector = (*qjsRuntime)(nil)
)

func newRuntime(cfg core.RuntimeConfig) (*qjsRuntime, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating QuickJS VM: %w", err)
	}
	if cfg.MemoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(cfg.MemoryLimitMB) * 1024 * 1024)
	}
	r := &qjsRuntime{vm: vm}
	if rt, tls, ok := extractRuntime(vm); ok {
		r.cRuntime, r.tls = rt, tls
	} else if cfg.Logger != nil {
		cfg.Logger.Printf("jsbridge: quickjs internals unavailable, job queue and GC disabled")
	}
	return r, nil
}

// Eval evaluates JavaScript and discards the result.
func (r *qjsRuntime) Eval(js string) error {
	v, err := r.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *qjsRuntime) EvalString(js string) (string, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

// EvalInt evaluates JavaScript and returns the result as a Go int.
func (r *qjsRuntime) EvalInt(js string) (int, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return 0, err
	}
	switch v := result.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("expected int, got %T", result)
	}
}

// RegisterFunc registers a Go function as a global JavaScript function.
// Multi-value Go returns (T, error) are unwrapped: on success the wrapper
// returns T, on error it throws a TypeError. The QuickJS Go wrapper
// returns multi-value results as JS arrays.
func (r *qjsRuntime) RegisterFunc(name string, fn any) error {
	rawName := "__raw_" + name
	if err := r.vm.RegisterFunc(rawName, fn, false); err != nil {
		return err
	}
	wrapJS := fmt.Sprintf(`(function() {
		var raw = globalThis[%q];
		globalThis[%q] = function() {
			var r = raw.apply(this, arguments);
			if (Array.isArray(r)) {
				if (r[1] !== null && r[1] !== undefined) throw new TypeError("calling %s: " + r[1]);
				return r[0];
			}
			return r;
		};
		delete globalThis[%q];
	})()`, rawName, name, name, rawName)
	return r.Eval(wrapJS)
}

// RunMicrotasks pumps the QuickJS job queue: promise reactions and
// FinalizationRegistry cleanups.
func (r *qjsRuntime) RunMicrotasks() {
	if r.tls == nil {
		return
	}
	for lib.XJS_ExecutePendingJob(r.tls, r.cRuntime, 0) > 0 {
	}
}

// GarbageCollect runs a full QuickJS collection cycle.
func (r *qjsRuntime) GarbageCollect() {
	if r.tls == nil {
		return
	}
	lib.XJS_RunGC(r.tls, r.cRuntime)
}

// Interrupt aborts the running script. Safe to call from any goroutine.
func (r *qjsRuntime) Interrupt() {
	r.vm.Interrupt()
}

// Close releases the VM.
func (r *qjsRuntime) Close() error {
	r.vm.Close()
	return nil
}
