package enginetest

import (
	"sort"

	"github.com/cryguy/jsbridge/internal/core"
)

func (rt *Runtime) object(obj core.Object) (*Object, error) {
	o, ok := obj.(*Object)
	if !ok || o == nil {
		return nil, core.NewException(rt.MakeError(rt.ctx, "TypeError: value is not an object"))
	}
	return o, nil
}

// CallFunction implements core.Objects for script and native functions.
func (rt *Runtime) CallFunction(_ core.Context, fn, this core.Object, args []core.Value) (core.Value, error) {
	o, err := rt.object(fn)
	if err != nil {
		return nil, err
	}
	thisObj, _ := this.(*Object)

	var ret, exc core.Value
	if o.script != nil {
		ret, exc = o.script(thisObj, args)
		if ret == nil && exc == nil {
			ret = Undefined{}
		}
	} else {
		ret, exc = rt.Call(o, thisObj, args...)
	}
	if exc != nil {
		return nil, core.NewException(exc)
	}
	return ret, nil
}

// GetProperty implements core.Objects.
func (rt *Runtime) GetProperty(_ core.Context, obj core.Object, name string) (core.Value, error) {
	o, err := rt.object(obj)
	if err != nil {
		return nil, err
	}
	v, exc := rt.Get(o, name)
	if exc != nil {
		return nil, core.NewException(exc)
	}
	return v, nil
}

// SetProperty implements core.Objects.
func (rt *Runtime) SetProperty(_ core.Context, obj core.Object, name string, v core.Value) error {
	o, err := rt.object(obj)
	if err != nil {
		return err
	}
	if exc := rt.Set(o, name, v); exc != nil {
		return core.NewException(exc)
	}
	return nil
}

// HasProperty implements core.Objects. Native objects answer through their
// get trampoline.
func (rt *Runtime) HasProperty(_ core.Context, obj core.Object, name string) (bool, error) {
	o, err := rt.object(obj)
	if err != nil {
		return false, err
	}
	if _, ok := o.Props[name]; ok {
		return true, nil
	}
	if o.class != nil && o.class.Desc.GetProperty != nil {
		rt.checkLive("getProperty", o)
		var exc core.Value
		v := o.class.Desc.GetProperty(rt.ctx, o, name, &exc)
		if exc != nil {
			return false, core.NewException(exc)
		}
		return v != nil, nil
	}
	return false, nil
}

// DeleteProperty implements core.Objects.
func (rt *Runtime) DeleteProperty(_ core.Context, obj core.Object, name string) (bool, error) {
	o, err := rt.object(obj)
	if err != nil {
		return false, err
	}
	if old, ok := o.Props[name]; ok {
		rt.unref(old)
		delete(o.Props, name)
	}
	return true, nil
}

// PropertyNames implements core.Objects, in sorted order.
func (rt *Runtime) PropertyNames(_ core.Context, obj core.Object) ([]string, error) {
	o, err := rt.object(obj)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(o.Props))
	for name := range o.Props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Protect implements core.Objects as a script-visible reference.
func (rt *Runtime) Protect(_ core.Context, v core.Value) { rt.retain(v) }

// Unprotect implements core.Objects.
func (rt *Runtime) Unprotect(_ core.Context, v core.Value) { rt.unref(v) }
