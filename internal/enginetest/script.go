package enginetest

import (
	"fmt"
	"sort"

	"github.com/cryguy/jsbridge/internal/core"
)

// checkLive enforces the engine's half of the lifetime contract: no
// trampoline runs for an object after it was finalized.
func (rt *Runtime) checkLive(op string, o *Object) {
	if o.finalized > 0 {
		panic(fmt.Sprintf("enginetest: %s on finalized object %d", op, o.ID))
	}
}

// Call invokes fn the way script would. It returns the call's value and
// exception; exactly one of them is non-nil.
func (rt *Runtime) Call(fn *Object, this *Object, args ...core.Value) (core.Value, core.Value) {
	if fn.class == nil || fn.class.Desc.CallAsFunction == nil {
		return nil, rt.MakeError(rt.ctx, "TypeError: not a function")
	}
	rt.checkLive("call", fn)
	var thisObj core.Object
	if this != nil {
		thisObj = this
	}
	var exc core.Value
	ret := fn.class.Desc.CallAsFunction(rt.ctx, fn, thisObj, args, &exc)
	if (ret == nil) == (exc == nil) {
		panic(fmt.Sprintf("enginetest: call returned value %v with exception %v", ret, exc))
	}
	return ret, exc
}

// Get reads obj[name]. A native get that declines falls back to the
// object's own properties, then to undefined.
func (rt *Runtime) Get(obj *Object, name string) (core.Value, core.Value) {
	if obj.class != nil && obj.class.Desc.GetProperty != nil {
		rt.checkLive("getProperty", obj)
		var exc core.Value
		v := obj.class.Desc.GetProperty(rt.ctx, obj, name, &exc)
		if exc != nil {
			return nil, exc
		}
		if v != nil {
			return v, nil
		}
	}
	if v, ok := obj.Props[name]; ok {
		return v, nil
	}
	return Undefined{}, nil
}

// Set assigns obj[name] = v. A native set that declines stores the value
// as an ordinary own property.
func (rt *Runtime) Set(obj *Object, name string, v core.Value) core.Value {
	if obj.class != nil && obj.class.Desc.SetProperty != nil {
		rt.checkLive("setProperty", obj)
		var exc core.Value
		handled := obj.class.Desc.SetProperty(rt.ctx, obj, name, v, &exc)
		if exc != nil {
			return exc
		}
		if handled {
			return nil
		}
	}
	rt.retain(v)
	if old, ok := obj.Props[name]; ok {
		rt.unref(old)
	}
	obj.Props[name] = v
	return nil
}

// SetGlobal installs v under name, keeping objects reachable.
func (rt *Runtime) SetGlobal(name string, v core.Value) {
	rt.retain(v)
	if old, ok := rt.globals[name]; ok {
		rt.unref(old)
	}
	rt.globals[name] = v
}

// Global returns the global named name.
func (rt *Runtime) Global(name string) (core.Value, bool) {
	v, ok := rt.globals[name]
	return v, ok
}

// DeleteGlobal drops the global reference under name.
func (rt *Runtime) DeleteGlobal(name string) {
	if old, ok := rt.globals[name]; ok {
		rt.unref(old)
		delete(rt.globals, name)
	}
}

// Retain adds a script-visible reference to v.
func (rt *Runtime) Retain(v core.Value) { rt.retain(v) }

// Unref drops a script-visible reference to v.
func (rt *Runtime) Unref(v core.Value) { rt.unref(v) }

func (rt *Runtime) retain(v core.Value) {
	if o, ok := v.(*Object); ok {
		o.refs++
	}
}

func (rt *Runtime) unref(v core.Value) {
	if o, ok := v.(*Object); ok && o.refs > 0 {
		o.refs--
	}
}

// Collect finalizes every object without references, in creation order,
// and returns how many native objects were finalized. Properties of a
// collected object release their references, so chains collect in one
// pass.
func (rt *Runtime) Collect() int {
	n := 0
	for {
		var dead []*Object
		for _, o := range rt.objects {
			if o.refs == 0 {
				dead = append(dead, o)
			}
		}
		if len(dead) == 0 {
			return n
		}
		sort.Slice(dead, func(i, j int) bool { return dead[i].ID < dead[j].ID })
		for _, o := range dead {
			delete(rt.objects, o.ID)
			for _, v := range o.Props {
				rt.unref(v)
			}
			if o.class != nil && o.class.Desc.Finalize != nil {
				o.class.Desc.Finalize(o)
				rt.Finalized = append(rt.Finalized, o.private)
				n++
			}
			o.finalized++
		}
	}
}

// Live reports whether obj has not been collected.
func (rt *Runtime) Live(obj *Object) bool {
	_, ok := rt.objects[obj.ID]
	return ok
}
