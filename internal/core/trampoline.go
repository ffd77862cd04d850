package core

import (
	"errors"
	"fmt"
)

// handle recovers the handle stored in obj's private slot. Every object the
// trampolines see was created by make, so a missing handle is fatal.
func (b *Bridge) handle(op string, obj Object) *Handle {
	tok, ok := b.engine.Private(obj)
	if !ok || tok == 0 {
		violate(op, "native object has no private handle")
	}
	h, ok := b.handles.Lookup(tok)
	if !ok {
		violate(op, "token %d is not live", tok)
	}
	return h
}

func (b *Bridge) callAsFunction(ctx Context, fn, this Object, args []Value, exception *Value) Value {
	if exception == nil {
		violate("callAsFunction", "nil exception slot")
	}
	h := b.handle("callAsFunction", fn)
	rec := &CallRecord{
		Engine:   b.engine,
		Context:  ctx,
		Function: fn,
		This:     this,
		Args:     args,
	}

	// A dispatcher either settles the record itself or reports through its
	// results. Doing both is a broken binding.
	v, err := b.dispatchCall(h, rec)
	switch {
	case rec.Settled():
		if v != nil || err != nil {
			violate("callAsFunction", "call record settled and a result returned")
		}
	case err != nil:
		rec.Throw(b.exceptionValue(ctx, err))
	default:
		rec.Return(v)
	}

	ret, exc := rec.Result()
	if (ret == nil) == (exc == nil) {
		violate("callAsFunction", "call record holds both or neither of value and exception")
	}
	if exc != nil {
		*exception = exc
		return nil
	}
	return ret
}

func (b *Bridge) getProperty(ctx Context, obj Object, name string, exception *Value) Value {
	h := b.handle("getProperty", obj)
	v, found, err := b.dispatchGet(h, ctx, obj, name)
	if err != nil {
		*exception = b.exceptionValue(ctx, err)
		return nil
	}
	if !found {
		return nil
	}
	if v == nil {
		v = b.engine.Undefined(ctx)
	}
	return v
}

func (b *Bridge) setProperty(ctx Context, obj Object, name string, value Value, exception *Value) bool {
	h := b.handle("setProperty", obj)
	handled, err := b.dispatchSet(h, ctx, obj, name, value)
	if err != nil {
		*exception = b.exceptionValue(ctx, err)
		return true
	}
	return handled
}

func (b *Bridge) convertToString(d *ClassDescriptor, ctx Context, obj Object, exception *Value) Value {
	if d.Kind != KindObject {
		return b.engine.MakeString(ctx, d.Name)
	}
	h := b.handle("convertToString", obj)
	if s, ok := b.dispatchString(h, ctx, obj); ok {
		return b.engine.MakeString(ctx, s)
	}
	return b.engine.MakeString(ctx, d.Name)
}

func (b *Bridge) finalize(obj Object) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	tok, ok := b.engine.Private(obj)
	if !ok || tok == 0 {
		violate("finalize", "native object has no private handle")
	}
	b.release(tok)
}

// release notifies the dispatcher and frees tok. Dispatcher panics are
// logged; finalization must not fail observably.
func (b *Bridge) release(tok Token) {
	h, ok := b.handles.Lookup(tok)
	if !ok {
		violate("finalize", "token %d is not live", tok)
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Printf("jsbridge: finalize token %d: %v", tok, r)
			}
		}()
		b.dispatcher.Finalize(h)
	}()
	b.handles.Release(tok)
}

func (b *Bridge) dispatchCall(h *Handle, rec *CallRecord) (v Value, err error) {
	defer recoverDispatch(&err)
	return b.dispatcher.CallAsFunction(h, rec)
}

func (b *Bridge) dispatchGet(h *Handle, ctx Context, obj Object, name string) (v Value, found bool, err error) {
	defer recoverDispatch(&err)
	return b.dispatcher.GetProperty(h, ctx, obj, name)
}

func (b *Bridge) dispatchSet(h *Handle, ctx Context, obj Object, name string, value Value) (handled bool, err error) {
	defer recoverDispatch(&err)
	return b.dispatcher.SetProperty(h, ctx, obj, name, value)
}

func (b *Bridge) dispatchString(h *Handle, ctx Context, obj Object) (s string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if cv, isCV := r.(*ContractViolation); isCV {
				panic(cv)
			}
			b.logger.Printf("jsbridge: convertToString: %v", r)
			s, ok = "", false
		}
	}()
	return b.dispatcher.ConvertToString(h, ctx, obj)
}

// recoverDispatch turns a host panic into a script exception. Contract
// violations keep unwinding.
func recoverDispatch(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if cv, ok := r.(*ContractViolation); ok {
		panic(cv)
	}
	*err = panicError(r)
}

func panicError(r any) error {
	switch p := r.(type) {
	case error:
		return p
	case fmt.Stringer:
		return errors.New(p.String())
	case string:
		return errors.New(p)
	default:
		return errors.New("Unknown panic from within Go.")
	}
}

// exceptionValue converts a dispatcher error into the engine value thrown
// into script.
func (b *Bridge) exceptionValue(ctx Context, err error) Value {
	var exc *Exception
	if errors.As(err, &exc) && exc.Value != nil {
		return exc.Value
	}
	return b.engine.MakeError(ctx, err.Error())
}
