package jsshim

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/cryguy/jsbridge/internal/core"
)

func (e *Engine) Undefined(core.Context) core.Value             { return Undefined{} }
func (e *Engine) Null(core.Context) core.Value                  { return Null{} }
func (e *Engine) MakeBoolean(_ core.Context, b bool) core.Value { return b }
func (e *Engine) MakeNumber(_ core.Context, f float64) core.Value {
	return f
}
func (e *Engine) MakeString(_ core.Context, s string) core.Value { return s }

// MakeError implements core.Values. The Error object is created when the
// value first crosses into script.
func (e *Engine) MakeError(_ core.Context, msg string) core.Value {
	return &errorValue{msg: msg}
}

// TypeOf implements core.Values.
func (e *Engine) TypeOf(_ core.Context, v core.Value) core.ValueType {
	switch v.(type) {
	case nil, Undefined:
		return core.TypeUndefined
	case Null:
		return core.TypeNull
	case bool:
		return core.TypeBoolean
	case float64:
		return core.TypeNumber
	case string:
		return core.TypeString
	default:
		return core.TypeObject
	}
}

// ToBoolean implements core.Values.
func (e *Engine) ToBoolean(_ core.Context, v core.Value) bool {
	switch x := v.(type) {
	case nil, Undefined, Null:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	default:
		return true
	}
}

// ToNumber implements core.Values. Objects are converted by script so
// valueOf and toString overrides apply.
func (e *Engine) ToNumber(_ core.Context, v core.Value) (float64, error) {
	switch x := v.(type) {
	case nil, Undefined:
		return math.NaN(), nil
	case Null:
		return 0, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case float64:
		return x, nil
	case string:
		return core.ParseNumber(x), nil
	case *errorValue:
		return math.NaN(), nil
	case *Ref:
		out, err := e.scriptConvert("num", x)
		if err != nil {
			return math.NaN(), err
		}
		f, ok := out.(float64)
		if !ok {
			return math.NaN(), fmt.Errorf("jsshim: number conversion returned %T", out)
		}
		return f, nil
	default:
		return math.NaN(), fmt.Errorf("jsshim: unknown value %T", v)
	}
}

// ToString implements core.Values.
func (e *Engine) ToString(_ core.Context, v core.Value) (string, error) {
	switch x := v.(type) {
	case nil, Undefined:
		return "undefined", nil
	case Null:
		return "null", nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return core.FormatNumber(x), nil
	case string:
		return x, nil
	case *errorValue:
		if x.msg == "" {
			return "Error", nil
		}
		return "Error: " + x.msg, nil
	case *Ref:
		out, err := e.scriptConvert("str", x)
		if err != nil {
			return "", err
		}
		s, ok := out.(string)
		if !ok {
			return "", fmt.Errorf("jsshim: string conversion returned %T", out)
		}
		return s, nil
	default:
		return "", fmt.Errorf("jsshim: unknown value %T", v)
	}
}

// ToObject implements core.Values. Primitives are boxed by script. Outside
// a host call the new object's reference is the caller's to Release.
func (e *Engine) ToObject(_ core.Context, v core.Value) (core.Object, error) {
	switch x := v.(type) {
	case *Ref:
		return x, nil
	case nil, Undefined, Null:
		return nil, core.Errorf("TypeError: cannot convert %s to object", e.TypeOf(e.ctx, v))
	case *errorValue:
		out, err := e.rt.EvalString("__jsbridge.error(" + jsString(x.msg) + ")")
		if err != nil {
			return nil, err
		}
		var w wire
		if err := json.Unmarshal([]byte(out), &w); err != nil {
			return nil, fmt.Errorf("jsshim: bad error reference: %w", err)
		}
		v, err := decode(w)
		if err != nil {
			return nil, err
		}
		r, ok := v.(*Ref)
		if !ok {
			return nil, fmt.Errorf("jsshim: error returned %T", v)
		}
		return r, nil
	default:
		w, err := encode(v)
		if err != nil {
			return nil, err
		}
		b, _ := json.Marshal(w)
		out, err := e.rt.EvalString(fmt.Sprintf("__jsbridge.box(%s)", b))
		if err != nil {
			return nil, err
		}
		r, err := e.settle(out)
		if err != nil {
			return nil, err
		}
		obj, ok := r.(*Ref)
		if !ok {
			return nil, fmt.Errorf("jsshim: box returned %T", r)
		}
		return obj, nil
	}
}

// scriptConvert runs one of the prelude's guarded conversions on r.
func (e *Engine) scriptConvert(op string, r *Ref) (core.Value, error) {
	out, err := e.rt.EvalString(fmt.Sprintf("__jsbridge.%s(%d)", op, r.id))
	if err != nil {
		return nil, err
	}
	return e.settle(out)
}
