// Package hostbind implements core.Dispatcher with reflection: Go funcs
// become native functions, pointers to structs become native objects whose
// exported fields and methods are reachable from script.
package hostbind

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/cryguy/jsbridge/internal/core"
)

// Callback is a host function with direct access to the call record.
type Callback func(call *core.CallRecord) (core.Value, error)

// Finalizer is implemented by bound values that want to know when script
// can no longer reach them.
type Finalizer interface {
	Finalize()
}

var (
	callbackType = reflect.TypeOf(Callback(nil))
	valueType    = reflect.TypeOf((*core.Value)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
)

// Dispatcher is the reflection-backed host dispatcher.
type Dispatcher struct {
	bridge *core.Bridge
	engine core.Engine
}

var _ core.Dispatcher = (*Dispatcher)(nil)

// NewBridge creates a bridge over engine whose host side is a reflection
// Dispatcher.
func NewBridge(engine core.Engine, opts ...core.Option) (*core.Bridge, *Dispatcher) {
	d := &Dispatcher{engine: engine}
	d.bridge = core.New(engine, d, opts...)
	return d.bridge, d
}

// Bridge returns the bridge d dispatches for.
func (d *Dispatcher) Bridge() *core.Bridge { return d.bridge }

// NewCallback binds cb as a script function named name.
func (d *Dispatcher) NewCallback(ctx core.Context, name string, cb Callback) (core.Object, error) {
	if cb == nil {
		return nil, errors.New("nil callback")
	}
	return d.bridge.MakeCallback(ctx, name, core.NewHandle(callbackType, reflect.ValueOf(cb)))
}

// NewFunction binds fn as a script function named name. fn's results must
// be (), (T), (error) or (T, error).
func (d *Dispatcher) NewFunction(ctx core.Context, name string, fn any) (core.Object, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("bad native function: expected func, got %T", fn)
	}
	t := v.Type()
	switch {
	case t.NumOut() > 2:
		return nil, errors.New("bad native function: too many output parameters")
	case t.NumOut() == 2 && t.Out(1) != errorType:
		return nil, errors.New("bad native function: second result must be error")
	}
	return d.bridge.MakeFunction(ctx, name, core.NewHandle(t, v))
}

// NewObject binds ptr, which must be a non-nil pointer to a struct, as a
// native object.
func (d *Dispatcher) NewObject(ctx core.Context, ptr any) (core.Object, error) {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("native object must be a non-nil pointer to struct, got %T", ptr)
	}
	return d.bridge.MakeObject(ctx, core.NewHandle(v.Type(), v))
}

// CallAsFunction implements core.Dispatcher.
func (d *Dispatcher) CallAsFunction(h *core.Handle, call *core.CallRecord) (core.Value, error) {
	val := h.Addr.(reflect.Value)
	switch {
	case h.HasMethod:
		return d.invoke(call, val.Method(h.Method))
	case h.Type == callbackType:
		return val.Interface().(Callback)(call)
	default:
		return d.invoke(call, val)
	}
}

func (d *Dispatcher) invoke(call *core.CallRecord, fn reflect.Value) (core.Value, error) {
	t := fn.Type()
	if t.NumIn() != len(call.Args) {
		return nil, core.Errorf("Incorrect number of function arguments")
	}
	in := make([]reflect.Value, len(call.Args))
	for i, arg := range call.Args {
		v, err := d.fromValue(call.Context, arg, t.In(i))
		if err != nil {
			return nil, err
		}
		in[i] = v
	}

	out := fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if t.Out(0) == errorType {
			return nil, errorResult(out[0])
		}
		return d.ToValue(call.Context, out[0])
	default:
		if err := errorResult(out[1]); err != nil {
			return nil, err
		}
		return d.ToValue(call.Context, out[0])
	}
}

func errorResult(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// structOf dereferences the bound value of h down to its struct.
func structOf(h *core.Handle) (reflect.Value, reflect.Value, bool) {
	val := h.Addr.(reflect.Value)
	elem := val
	if elem.Kind() == reflect.Pointer {
		if elem.IsNil() {
			return val, reflect.Value{}, false
		}
		elem = elem.Elem()
	}
	return val, elem, elem.Kind() == reflect.Struct
}

// field finds the exported field name on elem.
func field(elem reflect.Value, name string) (reflect.Value, bool) {
	sf, ok := elem.Type().FieldByName(name)
	if !ok || !sf.IsExported() {
		return reflect.Value{}, false
	}
	f, err := elem.FieldByIndexErr(sf.Index)
	if err != nil {
		return reflect.Value{}, false
	}
	return f, true
}

// GetProperty implements core.Dispatcher: exported fields first, then
// methods, which come back as bound method objects.
func (d *Dispatcher) GetProperty(h *core.Handle, ctx core.Context, _ core.Object, name string) (core.Value, bool, error) {
	val, elem, ok := structOf(h)
	if !ok {
		return nil, false, nil
	}
	if f, ok := field(elem, name); ok {
		v, err := d.ToValue(ctx, f)
		return v, true, err
	}

	typ := val.Type()
	for i := 0; i < typ.NumMethod(); i++ {
		if typ.Method(i).Name != name {
			continue
		}
		obj, err := d.bridge.MakeMethod(ctx, core.NewMethodHandle(typ, val, i))
		if err != nil {
			return nil, false, err
		}
		return d.engine.ObjectValue(obj), true, nil
	}
	return nil, false, nil
}

// SetProperty implements core.Dispatcher. Unknown names are declined so the
// engine stores them as ordinary properties.
func (d *Dispatcher) SetProperty(h *core.Handle, ctx core.Context, _ core.Object, name string, v core.Value) (bool, error) {
	_, elem, ok := structOf(h)
	if !ok {
		return true, core.Errorf("Internal Go error.")
	}
	f, ok := field(elem, name)
	if !ok {
		return false, nil
	}
	if !f.CanSet() {
		return true, core.Errorf("property %s is read-only", name)
	}
	gv, err := d.fromValue(ctx, v, f.Type())
	if err != nil {
		return true, err
	}
	f.Set(gv)
	return true, nil
}

// ConvertToString implements core.Dispatcher for fmt.Stringer values.
func (d *Dispatcher) ConvertToString(h *core.Handle, _ core.Context, _ core.Object) (string, bool) {
	val := h.Addr.(reflect.Value)
	if s, ok := val.Interface().(fmt.Stringer); ok {
		return s.String(), true
	}
	return "", false
}

// Finalize implements core.Dispatcher. Bound methods share their receiver
// with the object handle, so only object and function handles notify.
func (d *Dispatcher) Finalize(h *core.Handle) {
	if h.HasMethod || h.Type == callbackType {
		return
	}
	val := h.Addr.(reflect.Value)
	if f, ok := val.Interface().(Finalizer); ok {
		f.Finalize()
	}
}
