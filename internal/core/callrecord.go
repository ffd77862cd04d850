package core

// CallRecord is built by the call trampoline for one invocation of a native
// function. Exactly one of the return value and the exception is populated
// once the call completes.
//
// A dispatcher may settle the record itself with Return or Throw and then
// return (nil, nil); otherwise the trampoline settles it from the
// dispatcher's results.
type CallRecord struct {
	Engine   Engine
	Context  Context
	Function Object
	This     Object
	Args     []Value

	ret     Value
	exc     Value
	settled bool
}

// Arg returns argument i, or undefined when fewer arguments were passed.
func (c *CallRecord) Arg(i int) Value {
	if i < 0 || i >= len(c.Args) {
		return c.Engine.Undefined(c.Context)
	}
	return c.Args[i]
}

// Return records the call's value. A nil value records undefined.
func (c *CallRecord) Return(v Value) {
	if c.settled {
		violate("call", "call record settled twice")
	}
	if v == nil {
		v = c.Engine.Undefined(c.Context)
	}
	c.ret, c.settled = v, true
}

// Throw records the call's exception.
func (c *CallRecord) Throw(exc Value) {
	if c.settled {
		violate("call", "call record settled twice")
	}
	if exc == nil {
		violate("call", "nil exception value")
	}
	c.exc, c.settled = exc, true
}

// Result returns the recorded value and exception; exactly one is non-nil
// after the call completes.
func (c *CallRecord) Result() (Value, Value) {
	return c.ret, c.exc
}

// Settled reports whether the call has completed.
func (c *CallRecord) Settled() bool {
	return c.settled
}
