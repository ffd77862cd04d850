package core

// ClassKind selects one of the four native class variants.
type ClassKind int

const (
	KindCallback ClassKind = iota
	KindFunction
	KindObject
	KindMethod

	numKinds
)

// Name tags double as the default string conversion of native objects.
var kindNames = [numKinds]string{
	KindCallback: "nativecallback",
	KindFunction: "nativefunction",
	KindObject:   "nativeobject",
	KindMethod:   "nativemethod",
}

func (k ClassKind) String() string {
	if k < 0 || k >= numKinds {
		return "nativeunknown"
	}
	return kindNames[k]
}

// Callable reports whether objects of this kind are script functions.
func (k ClassKind) Callable() bool {
	return k == KindCallback || k == KindFunction || k == KindMethod
}

// Op is a script-visible capability of a class.
type Op int

const (
	OpCall Op = 1 << iota
	OpGetProperty
	OpSetProperty
	OpConvertToString
	OpFinalize
)

// Trampoline signatures, mirroring the engine's class definition callbacks.
type (
	CallAsFunctionFunc  func(ctx Context, fn, this Object, args []Value, exception *Value) Value
	GetPropertyFunc     func(ctx Context, obj Object, name string, exception *Value) Value
	SetPropertyFunc     func(ctx Context, obj Object, name string, value Value, exception *Value) bool
	ConvertToStringFunc func(ctx Context, obj Object, exception *Value) Value
	FinalizeFunc        func(obj Object)
)

// ClassDescriptor is the operation table of a native class. A nil entry
// means the class does not support that operation and the engine applies its
// default behavior. Descriptors are immutable once built and shared by every
// object of the class.
type ClassDescriptor struct {
	Kind ClassKind
	Name string

	CallAsFunction  CallAsFunctionFunc
	GetProperty     GetPropertyFunc
	SetProperty     SetPropertyFunc
	ConvertToString ConvertToStringFunc
	Finalize        FinalizeFunc
}

// Supports reports whether every capability in op is wired.
func (d *ClassDescriptor) Supports(op Op) bool {
	var have Op
	if d.CallAsFunction != nil {
		have |= OpCall
	}
	if d.GetProperty != nil {
		have |= OpGetProperty
	}
	if d.SetProperty != nil {
		have |= OpSetProperty
	}
	if d.ConvertToString != nil {
		have |= OpConvertToString
	}
	if d.Finalize != nil {
		have |= OpFinalize
	}
	return have&op == op
}

// newDescriptor wires the trampolines of b for kind.
func newDescriptor(b *Bridge, kind ClassKind) *ClassDescriptor {
	d := &ClassDescriptor{Kind: kind, Name: kind.String()}
	d.ConvertToString = func(ctx Context, obj Object, exception *Value) Value {
		return b.convertToString(d, ctx, obj, exception)
	}
	d.Finalize = b.finalize
	switch kind {
	case KindCallback, KindFunction, KindMethod:
		d.CallAsFunction = b.callAsFunction
	case KindObject:
		d.GetProperty = b.getProperty
		d.SetProperty = b.setProperty
	}
	return d
}
