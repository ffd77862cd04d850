// Package enginetest is an in-memory engine implementing core.Engine. It
// models script-visible references explicitly so tests can drive calls,
// property access and collection deterministically.
package enginetest

import (
	"fmt"
	"math"
	"strconv"

	"github.com/cryguy/jsbridge/internal/core"
)

// Undefined and Null are the engine's singleton values.
type (
	Undefined struct{}
	Null      struct{}
)

// Object is an engine object. Plain objects have no class.
type Object struct {
	ID    int
	Name  string
	Props map[string]core.Value

	class     *Class
	script    ScriptFunc
	private   core.Token
	errMsg    string
	isError   bool
	refs      int
	finalized int
}

// ScriptFunc is the body of a script-defined function. It returns the
// call's value or exception.
type ScriptFunc func(this *Object, args []core.Value) (core.Value, core.Value)

// Native reports whether obj was created from a class descriptor.
func (o *Object) Native() bool { return o.class != nil }

// Finalized reports how many times obj was finalized.
func (o *Object) Finalized() int { return o.finalized }

// Class is an engine class created from a descriptor.
type Class struct {
	Desc *core.ClassDescriptor
}

// Context is the single calling context of a Runtime.
type Context struct {
	rt *Runtime
}

// Runtime is a single-threaded engine instance.
type Runtime struct {
	ctx     *Context
	nextID  int
	objects map[int]*Object
	globals map[string]core.Value

	// Classes counts DefineClass calls.
	Classes int
	// Finalized lists tokens in finalization order.
	Finalized []core.Token
}

var _ core.Engine = (*Runtime)(nil)

// New creates an empty runtime.
func New() *Runtime {
	rt := &Runtime{
		objects: make(map[int]*Object),
		globals: make(map[string]core.Value),
	}
	rt.ctx = &Context{rt: rt}
	return rt
}

// Context returns the runtime's calling context.
func (rt *Runtime) Context() *Context { return rt.ctx }

func (rt *Runtime) newObject() *Object {
	rt.nextID++
	o := &Object{ID: rt.nextID, Props: make(map[string]core.Value)}
	rt.objects[o.ID] = o
	return o
}

// NewPlainObject creates an ordinary script object.
func (rt *Runtime) NewPlainObject() *Object {
	return rt.newObject()
}

// NewScriptFunction creates a script function running fn.
func (rt *Runtime) NewScriptFunction(fn ScriptFunc) *Object {
	o := rt.newObject()
	o.script = fn
	return o
}

// DefineClass implements core.Engine.
func (rt *Runtime) DefineClass(desc *core.ClassDescriptor) (core.Class, error) {
	rt.Classes++
	return &Class{Desc: desc}, nil
}

// MakeObject implements core.Engine.
func (rt *Runtime) MakeObject(ctx core.Context, cls core.Class, name string, tok core.Token) (core.Object, error) {
	if ctx != rt.ctx {
		return nil, fmt.Errorf("enginetest: foreign context")
	}
	c, ok := cls.(*Class)
	if !ok {
		return nil, fmt.Errorf("enginetest: foreign class %T", cls)
	}
	o := rt.newObject()
	o.Name = name
	o.class = c
	o.private = tok
	return o, nil
}

// Private implements core.Engine.
func (rt *Runtime) Private(obj core.Object) (core.Token, bool) {
	o, ok := obj.(*Object)
	if !ok || o.private == 0 {
		return 0, false
	}
	return o.private, true
}

// ObjectValue implements core.Engine.
func (rt *Runtime) ObjectValue(obj core.Object) core.Value { return obj }

func (rt *Runtime) Undefined(core.Context) core.Value             { return Undefined{} }
func (rt *Runtime) Null(core.Context) core.Value                  { return Null{} }
func (rt *Runtime) MakeBoolean(_ core.Context, b bool) core.Value { return b }
func (rt *Runtime) MakeNumber(_ core.Context, f float64) core.Value {
	return f
}
func (rt *Runtime) MakeString(_ core.Context, s string) core.Value { return s }

// MakeError implements core.Values.
func (rt *Runtime) MakeError(_ core.Context, msg string) core.Value {
	o := rt.newObject()
	o.isError = true
	o.errMsg = msg
	o.Props["message"] = msg
	o.Props["name"] = "Error"
	return o
}

// TypeOf implements core.Values.
func (rt *Runtime) TypeOf(_ core.Context, v core.Value) core.ValueType {
	switch v.(type) {
	case Undefined, nil:
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
func (rt *Runtime) ToBoolean(_ core.Context, v core.Value) bool {
	switch x := v.(type) {
	case Undefined, Null, nil:
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

// ToNumber implements core.Values.
func (rt *Runtime) ToNumber(_ core.Context, v core.Value) (float64, error) {
	switch x := v.(type) {
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
	default:
		return math.NaN(), nil
	}
}

// ToString implements core.Values. Native objects go through their class's
// convert-to-string trampoline.
func (rt *Runtime) ToString(ctx core.Context, v core.Value) (string, error) {
	switch x := v.(type) {
	case Undefined, nil:
		return "undefined", nil
	case Null:
		return "null", nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return core.FormatNumber(x), nil
	case string:
		return x, nil
	case *Object:
		if x.isError {
			return "Error: " + x.errMsg, nil
		}
		if x.class == nil {
			return "[object Object]", nil
		}
		rt.checkLive("convertToString", x)
		var exc core.Value
		s := x.class.Desc.ConvertToString(ctx, x, &exc)
		if exc != nil {
			return "", core.NewException(exc)
		}
		return rt.ToString(ctx, s)
	default:
		return "", fmt.Errorf("enginetest: unknown value %T", v)
	}
}

// ToObject implements core.Values.
func (rt *Runtime) ToObject(_ core.Context, v core.Value) (core.Object, error) {
	if o, ok := v.(*Object); ok {
		return o, nil
	}
	return nil, core.NewException(rt.MakeError(rt.ctx, "TypeError: value is not an object"))
}
