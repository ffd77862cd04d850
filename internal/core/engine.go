package core

// Context, Value, Object and Class are opaque engine references. Each engine
// implementation decides their concrete types; the bridge only passes them
// back to the engine that produced them.
type (
	Context any
	Value   any
	Object  any
	Class   any
)

// ValueType classifies an engine value.
type ValueType int

const (
	TypeUndefined ValueType = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeObject
)

func (t ValueType) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}

// Values is the value half of the engine primitive set. Dispatchers use it
// to read arguments and build results.
type Values interface {
	Undefined(ctx Context) Value
	Null(ctx Context) Value
	MakeBoolean(ctx Context, b bool) Value
	MakeNumber(ctx Context, f float64) Value
	MakeString(ctx Context, s string) Value

	// MakeError creates an Error object carrying msg, suitable for throwing.
	MakeError(ctx Context, msg string) Value

	TypeOf(ctx Context, v Value) ValueType
	ToBoolean(ctx Context, v Value) bool
	ToNumber(ctx Context, v Value) (float64, error)
	ToString(ctx Context, v Value) (string, error)
	ToObject(ctx Context, v Value) (Object, error)
}

// Objects is the host-to-script half of the primitive set. It lets host
// code work with script objects it was handed. A value thrown by script
// comes back as an *Exception carrying it.
//
// Object references received as call arguments belong to that call. Protect
// keeps one usable after the call returns, until the matching Unprotect.
type Objects interface {
	CallFunction(ctx Context, fn, this Object, args []Value) (Value, error)
	GetProperty(ctx Context, obj Object, name string) (Value, error)
	SetProperty(ctx Context, obj Object, name string, v Value) error
	HasProperty(ctx Context, obj Object, name string) (bool, error)
	DeleteProperty(ctx Context, obj Object, name string) (bool, error)

	// PropertyNames lists obj's own enumerable string keys.
	PropertyNames(ctx Context, obj Object) ([]string, error)

	// Protect and Unprotect nest. Primitives are unaffected.
	Protect(ctx Context, v Value)
	Unprotect(ctx Context, v Value)
}

// Engine is the full primitive set the bridge consumes from an embedded
// engine. The engine calls back into the ClassDescriptor operation table
// whenever script touches an object created by MakeObject.
type Engine interface {
	Values
	Objects

	// DefineClass creates the engine-side class for desc. It is called at
	// most once per descriptor.
	DefineClass(desc *ClassDescriptor) (Class, error)

	// MakeObject creates an object of class cls whose private slot holds
	// tok. name is used for function classes and may be empty.
	MakeObject(ctx Context, cls Class, name string, tok Token) (Object, error)

	// Private reads the private slot of obj.
	Private(obj Object) (Token, bool)

	// ObjectValue converts an object reference to a value reference.
	ObjectValue(obj Object) Value
}
