package hostbind

import (
	"fmt"
	"math"
	"reflect"

	"github.com/cryguy/jsbridge/internal/core"
)

// Float bounds of the 64-bit integer types. maxInt64 and maxUint64 are the
// first values past the range.
const (
	minInt64  = -(1 << 63)
	maxInt64  = 1 << 63
	maxUint64 = 1 << 64
)

// ToValue converts a Go value into an engine value. core.Value results pass
// through untouched.
func (d *Dispatcher) ToValue(ctx core.Context, rv reflect.Value) (core.Value, error) {
	e := d.engine
	if !rv.IsValid() {
		return e.Undefined(ctx), nil
	}
	if rv.Type() == valueType {
		if rv.IsNil() {
			return e.Undefined(ctx), nil
		}
		return rv.Interface(), nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return e.MakeBoolean(ctx, rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.MakeNumber(ctx, float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return e.MakeNumber(ctx, float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return e.MakeNumber(ctx, rv.Float()), nil
	case reflect.String:
		return e.MakeString(ctx, rv.String()), nil
	case reflect.Interface:
		if rv.IsNil() {
			return e.Null(ctx), nil
		}
		return d.ToValue(ctx, rv.Elem())
	case reflect.Func:
		if rv.IsNil() {
			return e.Null(ctx), nil
		}
		obj, err := d.NewFunction(ctx, "", rv.Interface())
		if err != nil {
			return nil, err
		}
		return e.ObjectValue(obj), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return e.Null(ctx), nil
		}
		if rv.Elem().Kind() == reflect.Struct {
			obj, err := d.NewObject(ctx, rv.Interface())
			if err != nil {
				return nil, err
			}
			return e.ObjectValue(obj), nil
		}
	}
	return nil, core.Errorf("Parameter can not be converted from Go native type %s.", rv.Type())
}

// fromValue converts an engine value into a Go value of type t. Empty
// interface parameters receive the engine value itself.
func (d *Dispatcher) fromValue(ctx core.Context, v core.Value, t reflect.Type) (reflect.Value, error) {
	e := d.engine
	out := reflect.New(t).Elem()

	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		if v != nil {
			out.Set(reflect.ValueOf(v))
		}
		return out, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		out.SetBool(e.ToBoolean(ctx, v))
		return out, nil
	case reflect.String:
		s, err := e.ToString(ctx, v)
		if err != nil {
			return out, err
		}
		out.SetString(s)
		return out, nil
	case reflect.Float32, reflect.Float64:
		f, err := e.ToNumber(ctx, v)
		if err != nil {
			return out, err
		}
		out.SetFloat(f)
		return out, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, err := e.ToNumber(ctx, v)
		if err != nil {
			return out, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return out, core.Errorf("Number must be finite.")
		}
		if f < minInt64 || f >= maxInt64 || out.OverflowInt(int64(f)) {
			return out, core.Errorf("Number is out of range for %s.", t)
		}
		out.SetInt(int64(f))
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		f, err := e.ToNumber(ctx, v)
		if err != nil {
			return out, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return out, core.Errorf("Number must be finite.")
		}
		if f < 0 {
			return out, core.Errorf("Number must be greater than or equal to zero.")
		}
		if f >= maxUint64 || out.OverflowUint(uint64(f)) {
			return out, core.Errorf("Number is out of range for %s.", t)
		}
		out.SetUint(uint64(f))
		return out, nil
	case reflect.Pointer:
		if e.TypeOf(ctx, v) != core.TypeObject {
			break
		}
		obj, err := e.ToObject(ctx, v)
		if err != nil {
			return out, err
		}
		h, ok := d.bridge.HandleOf(obj)
		if !ok || h.HasMethod {
			break
		}
		rv, ok := h.Addr.(reflect.Value)
		if !ok {
			break
		}
		if !rv.Type().AssignableTo(t) {
			return out, core.Errorf("Native object is %s, expected %s.", rv.Type(), t)
		}
		out.Set(rv)
		return out, nil
	}
	return out, core.Errorf("Parameter can not be converted to Go native type %s.", t)
}

// FromValue converts v for a host parameter of type t.
func (d *Dispatcher) FromValue(ctx core.Context, v core.Value, t reflect.Type) (any, error) {
	rv, err := d.fromValue(ctx, v, t)
	if err != nil {
		return nil, fmt.Errorf("convert to %s: %w", t, err)
	}
	return rv.Interface(), nil
}
