// Package jsshim implements core.Engine on top of any core.JSRuntime. Native
// objects are script Proxies and functions whose traps call back into Go
// through a handful of registered entry points.
package jsshim

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"

	"github.com/cryguy/jsbridge/internal/core"
)

// Context is the shim's single calling context.
type Context struct {
	e *Engine
}

type class struct {
	id   int
	desc *core.ClassDescriptor
}

// Engine adapts a JSRuntime to core.Engine.
type Engine struct {
	rt      core.JSRuntime
	logger  *log.Logger
	ctx     *Context
	classes map[int]*class

	// depth counts the host calls on the stack.
	depth int
}

var _ core.Engine = (*Engine)(nil)

// New installs the shim into rt. rt must be fresh: the prelude refuses to
// install twice.
func New(rt core.JSRuntime, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	e := &Engine{
		rt:      rt,
		logger:  logger,
		classes: make(map[int]*class),
	}
	e.ctx = &Context{e: e}

	entries := []struct {
		name string
		fn   func(string) string
	}{
		{"__jsbridge_call", e.onCall},
		{"__jsbridge_get", e.onGet},
		{"__jsbridge_set", e.onSet},
		{"__jsbridge_str", e.onString},
		{"__jsbridge_finalize", e.onFinalize},
	}
	for _, ent := range entries {
		if err := rt.RegisterFunc(ent.name, ent.fn); err != nil {
			return nil, fmt.Errorf("registering %s: %w", ent.name, err)
		}
	}
	if err := rt.Eval(prelude); err != nil {
		return nil, fmt.Errorf("installing bridge prelude: %w", err)
	}
	return e, nil
}

// Context returns the engine's calling context.
func (e *Engine) Context() *Context { return e.ctx }

// Runtime returns the runtime the shim is installed in.
func (e *Engine) Runtime() core.JSRuntime { return e.rt }

// Install binds v to the global name.
func (e *Engine) Install(name string, v core.Value) error {
	w, err := encode(v)
	if err != nil {
		return err
	}
	b, _ := json.Marshal(w)
	return e.rt.Eval(fmt.Sprintf("__jsbridge.install(%s, %s)", jsString(name), b))
}

// Release drops the reference behind v. References taken outside a host
// call are only dropped this way; references owned by a call's frame are
// left to the frame.
func (e *Engine) Release(v core.Value) {
	if r, ok := v.(*Ref); ok {
		if err := e.rt.Eval(fmt.Sprintf("__jsbridge.release(%d)", r.id)); err != nil {
			e.logger.Printf("jsbridge: release ref %d: %v", r.id, err)
		}
	}
}

// Refs reports how many script references are currently held for Go.
func (e *Engine) Refs() int {
	n, err := e.rt.EvalInt("__jsbridge.refs()")
	if err != nil {
		return 0
	}
	return n
}

// Collect runs a collection cycle when the runtime supports it, then pumps
// the job queue so pending finalizers run.
func (e *Engine) Collect() {
	if c, ok := e.rt.(core.Collector); ok {
		c.GarbageCollect()
	}
	e.rt.RunMicrotasks()
}

// DefineClass implements core.Engine.
func (e *Engine) DefineClass(desc *core.ClassDescriptor) (core.Class, error) {
	c := &class{id: len(e.classes) + 1, desc: desc}
	js := fmt.Sprintf("__jsbridge.defineClass(%d, %t)", c.id, desc.CallAsFunction != nil)
	if err := e.rt.Eval(js); err != nil {
		return nil, fmt.Errorf("defining class %s: %w", desc.Name, err)
	}
	e.classes[c.id] = c
	return c, nil
}

// MakeObject implements core.Engine.
func (e *Engine) MakeObject(ctx core.Context, cls core.Class, name string, tok core.Token) (core.Object, error) {
	if ctx != e.ctx {
		return nil, fmt.Errorf("jsshim: foreign context %T", ctx)
	}
	c, ok := cls.(*class)
	if !ok {
		return nil, fmt.Errorf("jsshim: foreign class %T", cls)
	}
	out, err := e.rt.EvalString(fmt.Sprintf("__jsbridge.make(%d, %s, %q)", c.id, jsString(name), strconv.FormatUint(uint64(tok), 10)))
	if err != nil {
		return nil, fmt.Errorf("making %s object: %w", c.desc.Name, err)
	}
	v, err := e.settle(out)
	if err != nil {
		return nil, err
	}
	r, ok := v.(*Ref)
	if !ok {
		return nil, fmt.Errorf("jsshim: make returned %T", v)
	}
	return r, nil
}

// Private implements core.Engine.
func (e *Engine) Private(obj core.Object) (core.Token, bool) {
	r, ok := obj.(*Ref)
	if !ok || r.token == 0 {
		return 0, false
	}
	return r.token, true
}

// ObjectValue implements core.Engine.
func (e *Engine) ObjectValue(obj core.Object) core.Value { return obj }

// descriptor resolves the class a native reference was created from.
func (e *Engine) descriptor(r *Ref) (*core.ClassDescriptor, error) {
	c, ok := e.classes[r.class]
	if !ok {
		return nil, fmt.Errorf("jsshim: reference %d has no native class", r.id)
	}
	return c.desc, nil
}

// settle decodes a guarded reply. Outside a host call a thrown object has
// no frame to die with, so its reference is released and the exception
// keeps only its message.
func (e *Engine) settle(out string) (core.Value, error) {
	v, err := decodeReply(out)
	var exc *core.Exception
	if err == nil || e.depth > 0 || !errors.As(err, &exc) {
		return v, err
	}
	r, ok := exc.Value.(*Ref)
	if !ok {
		return v, err
	}
	msg, derr := e.rt.EvalString(fmt.Sprintf("__jsbridge.detach(%d)", r.id))
	if derr != nil {
		return nil, derr
	}
	return nil, &core.Exception{Message: msg}
}
