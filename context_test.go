//go:build !v8

package jsbridge

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type counter struct {
	X     int
	Name  string
	Limit uint

	finalized int
}

func (c *counter) Inc(by int) int { c.X += by; return c.X }
func (c *counter) Finalize()      { c.finalized++ }

type labeled struct{ N int }

func (l *labeled) String() string { return fmt.Sprintf("labeled<%d>", l.N) }

func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx, err := NewContext(Config{MemoryLimitMB: 64, EvalTimeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

func evalString(t *testing.T, ctx *Context, src string) string {
	t.Helper()
	s, err := ctx.EvalString(src)
	if err != nil {
		t.Fatalf("EvalString(%q): %v", src, err)
	}
	return s
}

func TestBackendName(t *testing.T) {
	ctx := newTestContext(t)
	if ctx.Backend() != "quickjs" {
		t.Errorf("Backend() = %q", ctx.Backend())
	}
}

func TestObjectPropertyAccess(t *testing.T) {
	ctx := newTestContext(t)
	c := &counter{X: 42}
	if err := ctx.RegisterObject("obj", c); err != nil {
		t.Fatalf("RegisterObject: %v", err)
	}

	if got := evalString(t, ctx, "obj.X"); got != "42" {
		t.Errorf("obj.X = %s, want 42", got)
	}
	if got := evalString(t, ctx, "obj.missing"); got != "undefined" {
		t.Errorf("obj.missing = %s, want undefined", got)
	}

	evalString(t, ctx, `obj.Name = "counter"`)
	if c.Name != "counter" {
		t.Errorf("Name = %q after assignment", c.Name)
	}

	// Names the host does not know are stored on the script object.
	if got := evalString(t, ctx, "obj.extra = 5; obj.extra"); got != "5" {
		t.Errorf("obj.extra = %s, want 5", got)
	}

	if got := evalString(t, ctx, "obj.Inc(3)"); got != "45" {
		t.Errorf("obj.Inc(3) = %s, want 45", got)
	}
	if c.X != 45 {
		t.Errorf("X = %d, want 45", c.X)
	}
}

func TestSetPropertyException(t *testing.T) {
	ctx := newTestContext(t)
	c := &counter{}
	if err := ctx.RegisterObject("obj", c); err != nil {
		t.Fatalf("RegisterObject: %v", err)
	}
	got := evalString(t, ctx, `try { obj.Limit = -1; "no error" } catch (e) { e.message }`)
	if got != "Number must be greater than or equal to zero." {
		t.Errorf("negative assignment: %s", got)
	}
}

func TestFunctionCalls(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.RegisterFunc("add", func(a, b float64) float64 { return a + b }); err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}
	if got := evalString(t, ctx, "add(1.5, 2)"); got != "3.5" {
		t.Errorf("add(1.5, 2) = %s", got)
	}

	got := evalString(t, ctx, `try { add(1); "no error" } catch (e) { e instanceof Error ? e.message : "not an Error" }`)
	if got != "Incorrect number of function arguments" {
		t.Errorf("wrong arity: %s", got)
	}
}

func TestHostErrorBecomesException(t *testing.T) {
	ctx := newTestContext(t)
	err := ctx.RegisterFunc("fail", func() (int, error) { return 0, errors.New("disk on fire") })
	if err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}
	got := evalString(t, ctx, `try { fail(); "no error" } catch (e) { e.message }`)
	if got != "disk on fire" {
		t.Errorf("exception message = %s", got)
	}

	err = ctx.RegisterFunc("explode", func() int { panic("kaboom") })
	if err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}
	got = evalString(t, ctx, `try { explode(); "no error" } catch (e) { e.message }`)
	if got != "kaboom" {
		t.Errorf("panic message = %s", got)
	}
}

func TestEchoPreservesIdentity(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.RegisterFunc("echo", func(v Value) Value { return v }); err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}
	got := evalString(t, ctx, `var o = {}; [echo(o) === o, echo("s"), echo(null), echo(undefined), echo(NaN)].join(",")`)
	if got != "true,s,,,NaN" {
		t.Errorf("echo results = %s", got)
	}
}

func TestCallbackThrowsScriptValue(t *testing.T) {
	ctx := newTestContext(t)
	err := ctx.RegisterCallback("rethrow", func(call *CallRecord) (Value, error) {
		return nil, &Exception{Value: call.Arg(0)}
	})
	if err != nil {
		t.Fatalf("RegisterCallback: %v", err)
	}
	got := evalString(t, ctx, `var tag = {kind: "mine"}; try { rethrow(tag) } catch (e) { e === tag }`)
	if got != "true" {
		t.Errorf("rethrown value identity = %s", got)
	}
}

func TestToStringTags(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.RegisterFunc("add", func(a, b int) int { return a + b }); err != nil {
		t.Fatal(err)
	}
	if err := ctx.RegisterCallback("cb", func(*CallRecord) (Value, error) { return nil, nil }); err != nil {
		t.Fatal(err)
	}
	if err := ctx.RegisterObject("obj", &counter{}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.RegisterObject("lab", &labeled{N: 3}); err != nil {
		t.Fatal(err)
	}

	cases := map[string]string{
		"String(add)":     "nativefunction",
		"String(cb)":      "nativecallback",
		"String(obj)":     "nativeobject",
		"String(obj.Inc)": "nativemethod",
		"String(lab)":     "labeled<3>",
		`"" + lab`:        "labeled<3>",
	}
	for src, want := range cases {
		if got := evalString(t, ctx, src); got != want {
			t.Errorf("%s = %q, want %q", src, got, want)
		}
	}
}

func TestRegisterPrimitives(t *testing.T) {
	ctx := newTestContext(t)
	for name, v := range map[string]any{"answer": 42, "greeting": "hi", "flag": true} {
		if err := ctx.Register(name, v); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}
	if got := evalString(t, ctx, "[answer, greeting, flag].join(' ')"); got != "42 hi true" {
		t.Errorf("globals = %s", got)
	}

	if err := ctx.Register("list", []int{1}); err == nil {
		t.Error("Register accepted a slice")
	}
}

func TestReturnedObjectsAreNative(t *testing.T) {
	ctx := newTestContext(t)
	err := ctx.RegisterFunc("make", func(n int) *counter { return &counter{X: n} })
	if err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}
	if err := ctx.RegisterFunc("read", func(c *counter) int { return c.X }); err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}
	if got := evalString(t, ctx, "read(make(7))"); got != "7" {
		t.Errorf("read(make(7)) = %s", got)
	}
}

func TestCloseFinalizesLiveObjects(t *testing.T) {
	ctx, err := NewContext(Config{})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	c := &counter{}
	if err := ctx.RegisterObject("obj", c); err != nil {
		t.Fatalf("RegisterObject: %v", err)
	}
	if n := ctx.LiveHandles(); n != 1 {
		t.Errorf("LiveHandles = %d, want 1", n)
	}
	if err := ctx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.finalized != 1 {
		t.Errorf("Finalize ran %d times, want 1", c.finalized)
	}
	if ctx.LiveHandles() != 0 {
		t.Errorf("LiveHandles = %d after Close", ctx.LiveHandles())
	}
	if err := ctx.Eval("1"); !errors.Is(err, ErrClosed) {
		t.Errorf("Eval after Close = %v, want ErrClosed", err)
	}
	if err := ctx.RegisterFunc("f", func() {}); !errors.Is(err, ErrClosed) {
		t.Errorf("RegisterFunc after Close = %v, want ErrClosed", err)
	}
	if err := ctx.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestEvalTimeout(t *testing.T) {
	ctx, err := NewContext(Config{EvalTimeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Close()

	err = ctx.Eval("for (;;) {}")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Eval = %v, want ErrTimeout", err)
	}
	if !strings.Contains(err.Error(), "100ms") {
		t.Errorf("timeout error %q does not name the limit", err)
	}
	if err := ctx.Eval("1"); !errors.Is(err, ErrClosed) {
		t.Errorf("Eval after timeout = %v, want ErrClosed", err)
	}
}

func TestEvalSyntaxError(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.Eval("function ("); err == nil {
		t.Error("Eval accepted a syntax error")
	}
	if _, err := ctx.EvalString("throw new Error('nope')"); err == nil {
		t.Error("EvalString swallowed an exception")
	}
}

func TestCallbackSettlesRecord(t *testing.T) {
	ctx := newTestContext(t)
	err := ctx.RegisterCallback("settle", func(call *CallRecord) (Value, error) {
		if call.Engine.ToBoolean(call.Context, call.Arg(1)) {
			call.Throw(call.Arg(0))
		} else {
			call.Return(call.Arg(0))
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("RegisterCallback: %v", err)
	}
	got := evalString(t, ctx, `var tag = {}; var caught; try { settle(tag, true) } catch (e) { caught = e }; [settle(7, false), caught === tag].join(",")`)
	if got != "7,true" {
		t.Errorf("settled results = %s", got)
	}
}

func TestEchoKeepsUnpairedSurrogates(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.RegisterFunc("second", func(a, b Value) Value { return b }); err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}
	got := evalString(t, ctx, `[second(1, "\ud800") === "\ud800", second(1, "x\udc00y") === "x\udc00y", second(1, "😀") === "😀", second(1, "a\u0000b").length].join(",")`)
	if got != "true,true,true,3" {
		t.Errorf("echo results = %s", got)
	}
}

func TestCallbacksReachScriptObjects(t *testing.T) {
	ctx := newTestContext(t)
	var kept Value
	bindings := map[string]Callback{
		"apply": func(call *CallRecord) (Value, error) {
			fn, err := call.Engine.ToObject(call.Context, call.Arg(0))
			if err != nil {
				return nil, err
			}
			return call.Engine.CallFunction(call.Context, fn, nil, call.Args[1:])
		},
		"names": func(call *CallRecord) (Value, error) {
			obj, err := call.Engine.ToObject(call.Context, call.Arg(0))
			if err != nil {
				return nil, err
			}
			names, err := call.Engine.PropertyNames(call.Context, obj)
			if err != nil {
				return nil, err
			}
			return call.Engine.MakeString(call.Context, strings.Join(names, "+")), nil
		},
		"bump": func(call *CallRecord) (Value, error) {
			obj, err := call.Engine.ToObject(call.Context, call.Arg(0))
			if err != nil {
				return nil, err
			}
			n, err := call.Engine.GetProperty(call.Context, obj, "n")
			if err != nil {
				return nil, err
			}
			f, err := call.Engine.ToNumber(call.Context, n)
			if err != nil {
				return nil, err
			}
			if _, err := call.Engine.DeleteProperty(call.Context, obj, "old"); err != nil {
				return nil, err
			}
			return nil, call.Engine.SetProperty(call.Context, obj, "n", call.Engine.MakeNumber(call.Context, f+1))
		},
		"keep": func(call *CallRecord) (Value, error) {
			call.Engine.Protect(call.Context, call.Arg(0))
			kept = call.Arg(0)
			return nil, nil
		},
		"recall": func(*CallRecord) (Value, error) { return kept, nil },
		"forget": func(call *CallRecord) (Value, error) {
			call.Engine.Unprotect(call.Context, kept)
			return nil, nil
		},
	}
	for name, cb := range bindings {
		if err := ctx.RegisterCallback(name, cb); err != nil {
			t.Fatalf("RegisterCallback(%s): %v", name, err)
		}
	}

	cases := map[string]string{
		`apply((a, b) => a * b, 6, 7)`:                                                "42",
		`names({b: 1, a: 2})`:                                                         "b+a",
		`var o = {n: 1, old: true}; bump(o); o.n + ":" + ("old" in o)`:                "2:false",
		`try { apply(() => { throw new RangeError("inner") }) } catch (e) { e.name }`: "RangeError",
		`keep({label: "saved"}); recall().label`:                                      "saved",
	}
	for src, want := range cases {
		if got := evalString(t, ctx, src); got != want {
			t.Errorf("%s = %q, want %q", src, got, want)
		}
	}

	base := ctx.engine.Refs()
	if base != 1 {
		t.Errorf("Refs with one protected object = %d, want 1", base)
	}
	evalString(t, ctx, "forget()")
	if n := ctx.engine.Refs(); n != 0 {
		t.Errorf("Refs after Unprotect = %d, want 0", n)
	}
	if _, err := ctx.EvalString("recall()"); err == nil {
		t.Error("recall() of an unprotected object succeeded")
	}
}

func TestInOperatorConsultsHost(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.RegisterObject("obj", &counter{X: 42}); err != nil {
		t.Fatalf("RegisterObject: %v", err)
	}
	got := evalString(t, ctx, `["X" in obj, "missing" in obj, Object.getOwnPropertyDescriptor(obj, "X").value, obj.hasOwnProperty("Name")].join(",")`)
	if got != "true,false,42,true" {
		t.Errorf("membership = %s", got)
	}
}

func TestGarbageCollectFinalizesUnreachable(t *testing.T) {
	ctx := newTestContext(t)
	c := &counter{}
	if err := ctx.RegisterObject("obj", c); err != nil {
		t.Fatalf("RegisterObject: %v", err)
	}
	if got := evalString(t, ctx, "var inc = obj.Inc; inc(1); obj.Inc(2); obj.X"); got != "3" {
		t.Fatalf("obj.X = %s, want 3", got)
	}
	if n := ctx.LiveHandles(); n < 2 {
		t.Errorf("LiveHandles = %d before collection, want the object and its methods", n)
	}

	if err := ctx.Eval("delete globalThis.obj; inc = undefined"); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	ctx.GarbageCollect()
	if n := ctx.LiveHandles(); n != 0 {
		t.Errorf("LiveHandles = %d after collection, want 0", n)
	}
	if c.finalized != 1 {
		t.Errorf("Finalize ran %d times, want 1", c.finalized)
	}

	ctx.GarbageCollect()
	if err := ctx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.finalized != 1 {
		t.Errorf("Finalize ran %d times after Close, want 1", c.finalized)
	}
}

func TestRootReferencesAreReleased(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.RegisterObject("obj", &counter{}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.RegisterFunc("id", func(v Value) Value { return v }); err != nil {
		t.Fatal(err)
	}
	evalString(t, ctx, "id({}); obj.X; String(obj.Inc)")
	e := ctx.engine
	if n := e.Refs(); n != 0 {
		t.Errorf("Refs after top-level calls = %d, want 0", n)
	}

	boxed, err := e.ToObject(e.Context(), "text")
	if err != nil {
		t.Fatalf("ToObject: %v", err)
	}
	fn, err := e.GetProperty(e.Context(), boxed, "toString")
	if err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	if n := e.Refs(); n != 2 {
		t.Errorf("Refs = %d, want 2", n)
	}

	_, err = e.CallFunction(e.Context(), fn, nil, nil)
	var exc *Exception
	if !errors.As(err, &exc) || !strings.HasPrefix(exc.Message, "TypeError") {
		t.Errorf("CallFunction error = %v, want a TypeError", err)
	}
	if n := e.Refs(); n != 2 {
		t.Errorf("Refs after a thrown call = %d, want 2", n)
	}

	e.Release(fn)
	e.Release(boxed)
	if n := e.Refs(); n != 0 {
		t.Errorf("Refs after Release = %d, want 0", n)
	}
}
