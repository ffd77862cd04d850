package hostbind_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cryguy/jsbridge/internal/core"
	"github.com/cryguy/jsbridge/internal/enginetest"
	"github.com/cryguy/jsbridge/internal/hostbind"
)

type point struct {
	X      int
	Y      float64
	Label  string
	Count  uint
	hidden int

	finalized int
}

func (p *point) Sum() float64        { return float64(p.X) + p.Y }
func (p *point) Scale(k int)         { p.X *= k }
func (p *point) String() string      { return fmt.Sprintf("point(%d)", p.X) }
func (p *point) Finalize()           { p.finalized++ }
func (p *point) Fail() error         { return errors.New("failed on purpose") }
func (p *point) Hidden() int         { return p.hidden }
func (p *point) Twice() (int, error) { return p.X * 2, nil }

func setup(t *testing.T) (*enginetest.Runtime, *core.Bridge, *hostbind.Dispatcher) {
	t.Helper()
	rt := enginetest.New()
	b, d := hostbind.NewBridge(rt)
	t.Cleanup(b.Close)
	return rt, b, d
}

func excMessage(t *testing.T, rt *enginetest.Runtime, exc core.Value) string {
	t.Helper()
	if exc == nil {
		t.Fatal("expected an exception")
	}
	s, err := rt.ToString(rt.Context(), exc)
	if err != nil {
		t.Fatalf("ToString: %v", err)
	}
	return s
}

func TestFunctionArguments(t *testing.T) {
	rt, _, d := setup(t)
	obj, err := d.NewFunction(rt.Context(), "add", func(a, b float64) float64 { return a + b })
	if err != nil {
		t.Fatalf("NewFunction: %v", err)
	}
	fn := obj.(*enginetest.Object)

	ret, exc := rt.Call(fn, nil, 1.5, "2")
	if exc != nil {
		t.Fatalf("unexpected exception: %v", excMessage(t, rt, exc))
	}
	if ret != 3.5 {
		t.Errorf("add(1.5, \"2\") = %v, want 3.5", ret)
	}

	_, exc = rt.Call(fn, nil, 1.0)
	if got := excMessage(t, rt, exc); got != "Error: Incorrect number of function arguments" {
		t.Errorf("arity exception = %q", got)
	}
}

func TestFunctionResultShapes(t *testing.T) {
	rt, _, d := setup(t)
	ctx := rt.Context()

	cases := []struct {
		name string
		fn   any
		want core.Value
		exc  string
	}{
		{"void", func() {}, enginetest.Undefined{}, ""},
		{"string", func() string { return "hi" }, "hi", ""},
		{"bool", func() bool { return true }, true, ""},
		{"pair", func() (int, error) { return 7, nil }, 7.0, ""},
		{"pairError", func() (int, error) { return 0, errors.New("nope") }, nil, "Error: nope"},
		{"errorOnly", func() error { return errors.New("bad") }, nil, "Error: bad"},
		{"errorNil", func() error { return nil }, enginetest.Undefined{}, ""},
		{"nilPointer", func() *point { return nil }, enginetest.Null{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obj, err := d.NewFunction(ctx, tc.name, tc.fn)
			if err != nil {
				t.Fatalf("NewFunction: %v", err)
			}
			ret, exc := rt.Call(obj.(*enginetest.Object), nil)
			if tc.exc != "" {
				if got := excMessage(t, rt, exc); got != tc.exc {
					t.Errorf("exception = %q, want %q", got, tc.exc)
				}
				return
			}
			if exc != nil {
				t.Fatalf("unexpected exception: %s", excMessage(t, rt, exc))
			}
			if ret != tc.want {
				t.Errorf("result = %#v, want %#v", ret, tc.want)
			}
		})
	}
}

func TestNewFunctionRejectsBadShapes(t *testing.T) {
	rt, _, d := setup(t)
	ctx := rt.Context()
	bad := []any{
		42,
		(func())(nil),
		func() (int, int) { return 0, 0 },
		func() (int, int, error) { return 0, 0, nil },
	}
	for _, fn := range bad {
		if _, err := d.NewFunction(ctx, "bad", fn); err == nil {
			t.Errorf("NewFunction(%T) succeeded", fn)
		}
	}
	if _, err := d.NewObject(ctx, point{}); err == nil {
		t.Error("NewObject accepted a struct value")
	}
	if _, err := d.NewCallback(ctx, "nil", nil); err == nil {
		t.Error("NewCallback accepted nil")
	}
}

func TestCallbackSeesCallRecord(t *testing.T) {
	rt, _, d := setup(t)
	var got int
	obj, err := d.NewCallback(rt.Context(), "count", func(call *core.CallRecord) (core.Value, error) {
		got = len(call.Args)
		return call.Arg(1), nil
	})
	if err != nil {
		t.Fatalf("NewCallback: %v", err)
	}
	ret, exc := rt.Call(obj.(*enginetest.Object), nil, "a", "b", "c")
	if exc != nil {
		t.Fatalf("unexpected exception: %s", excMessage(t, rt, exc))
	}
	if got != 3 || ret != "b" {
		t.Errorf("callback saw %d args and returned %v", got, ret)
	}
}

func TestObjectFields(t *testing.T) {
	rt, _, d := setup(t)
	p := &point{X: 42, Label: "origin"}
	obj, err := d.NewObject(rt.Context(), p)
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	o := obj.(*enginetest.Object)

	if v, exc := rt.Get(o, "X"); exc != nil || v != 42.0 {
		t.Errorf("X = %v (exc %v), want 42", v, exc)
	}
	if v, _ := rt.Get(o, "hidden"); v != (enginetest.Undefined{}) {
		t.Errorf("unexported field leaked: %v", v)
	}

	if exc := rt.Set(o, "Label", "moved"); exc != nil {
		t.Fatalf("set Label: %s", excMessage(t, rt, exc))
	}
	if p.Label != "moved" {
		t.Errorf("Label = %q, want moved", p.Label)
	}

	if exc := rt.Set(o, "extra", 1.0); exc != nil {
		t.Fatalf("set extra: %s", excMessage(t, rt, exc))
	}
	if o.Props["extra"] != 1.0 {
		t.Error("unknown property was not stored on the script object")
	}

	exc := rt.Set(o, "Count", -1.0)
	if got := excMessage(t, rt, exc); got != "Error: Number must be greater than or equal to zero." {
		t.Errorf("negative uint exception = %q", got)
	}
	if p.Count != 0 {
		t.Errorf("Count changed to %d", p.Count)
	}
}

func TestObjectMethods(t *testing.T) {
	rt, _, d := setup(t)
	p := &point{X: 2, Y: 0.5}
	obj, err := d.NewObject(rt.Context(), p)
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	o := obj.(*enginetest.Object)

	scale, exc := rt.Get(o, "Scale")
	if exc != nil {
		t.Fatalf("get Scale: %s", excMessage(t, rt, exc))
	}
	if _, exc := rt.Call(scale.(*enginetest.Object), o, 3.0); exc != nil {
		t.Fatalf("Scale: %s", excMessage(t, rt, exc))
	}
	if p.X != 6 {
		t.Errorf("X = %d after Scale(3), want 6", p.X)
	}

	sum, _ := rt.Get(o, "Sum")
	if ret, _ := rt.Call(sum.(*enginetest.Object), o); ret != 6.5 {
		t.Errorf("Sum() = %v, want 6.5", ret)
	}

	fail, _ := rt.Get(o, "Fail")
	_, exc = rt.Call(fail.(*enginetest.Object), o)
	if got := excMessage(t, rt, exc); got != "Error: failed on purpose" {
		t.Errorf("Fail() exception = %q", got)
	}

	s, err := rt.ToString(rt.Context(), o)
	if err != nil || s != "point(6)" {
		t.Errorf("ToString = %q, %v", s, err)
	}
	s, _ = rt.ToString(rt.Context(), scale)
	if s != core.KindMethod.String() {
		t.Errorf("method ToString = %q, want %q", s, core.KindMethod.String())
	}
}

func TestObjectArguments(t *testing.T) {
	rt, _, d := setup(t)
	ctx := rt.Context()
	p := &point{X: 5}
	pobj, _ := d.NewObject(ctx, p)

	fn, err := d.NewFunction(ctx, "getX", func(q *point) int { return q.X })
	if err != nil {
		t.Fatalf("NewFunction: %v", err)
	}
	ret, exc := rt.Call(fn.(*enginetest.Object), nil, pobj)
	if exc != nil || ret != 5.0 {
		t.Fatalf("getX(p) = %v, exc %v", ret, exc)
	}

	_, exc = rt.Call(fn.(*enginetest.Object), nil, rt.NewPlainObject())
	if got := excMessage(t, rt, exc); !strings.Contains(got, "can not be converted") {
		t.Errorf("plain object argument exception = %q", got)
	}
}

func TestValuePassthrough(t *testing.T) {
	rt, _, d := setup(t)
	echo, err := d.NewFunction(rt.Context(), "echo", func(v core.Value) core.Value { return v })
	if err != nil {
		t.Fatalf("NewFunction: %v", err)
	}
	plain := rt.NewPlainObject()
	for _, v := range []core.Value{plain, "s", 1.25, enginetest.Null{}} {
		ret, exc := rt.Call(echo.(*enginetest.Object), nil, v)
		if exc != nil || ret != v {
			t.Errorf("echo(%v) = %v, exc %v", v, ret, exc)
		}
	}
}

func TestFinalizeNotifiesObject(t *testing.T) {
	rt, b, d := setup(t)
	p := &point{X: 1}
	obj, err := d.NewObject(rt.Context(), p)
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	o := obj.(*enginetest.Object)

	// Method objects share the receiver and must not finalize it.
	if _, exc := rt.Get(o, "Sum"); exc != nil {
		t.Fatalf("get Sum: %v", exc)
	}
	if n := rt.Collect(); n != 2 {
		t.Fatalf("Collect finalized %d native objects, want 2", n)
	}
	if p.finalized != 1 {
		t.Errorf("Finalize ran %d times, want 1", p.finalized)
	}
	if b.Handles().Len() != 0 {
		t.Errorf("%d handles still live", b.Handles().Len())
	}
}

func TestIntegerRange(t *testing.T) {
	rt, _, d := setup(t)
	ctx := rt.Context()
	id8, err := d.NewFunction(ctx, "id8", func(x int8) int8 { return x })
	if err != nil {
		t.Fatal(err)
	}
	idu8, err := d.NewFunction(ctx, "idu8", func(x uint8) uint8 { return x })
	if err != nil {
		t.Fatal(err)
	}
	id64, err := d.NewFunction(ctx, "id64", func(x int64) int64 { return x })
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		fn   core.Object
		arg  float64
		want core.Value
		exc  string
	}{
		{id8, 127, 127.0, ""},
		{id8, -128, -128.0, ""},
		{id8, 12.9, 12.0, ""},
		{id8, 300, nil, "Error: Number is out of range for int8."},
		{id8, -129, nil, "Error: Number is out of range for int8."},
		{id8, 1e30, nil, "Error: Number is out of range for int8."},
		{idu8, 255, 255.0, ""},
		{idu8, 257, nil, "Error: Number is out of range for uint8."},
		{idu8, -1, nil, "Error: Number must be greater than or equal to zero."},
		{id64, 1e30, nil, "Error: Number is out of range for int64."},
		{id64, -1e30, nil, "Error: Number is out of range for int64."},
	}
	for _, tc := range cases {
		ret, exc := rt.Call(tc.fn.(*enginetest.Object), nil, tc.arg)
		if tc.exc != "" {
			if got := excMessage(t, rt, exc); got != tc.exc {
				t.Errorf("%s(%v) exception = %q, want %q", tc.fn.(*enginetest.Object).Name, tc.arg, got, tc.exc)
			}
			continue
		}
		if exc != nil {
			t.Errorf("%s(%v): unexpected exception %s", tc.fn.(*enginetest.Object).Name, tc.arg, excMessage(t, rt, exc))
			continue
		}
		if ret != tc.want {
			t.Errorf("%s(%v) = %v, want %v", tc.fn.(*enginetest.Object).Name, tc.arg, ret, tc.want)
		}
	}
}

func TestCallbackSettlesRecord(t *testing.T) {
	rt, _, d := setup(t)
	obj, err := d.NewCallback(rt.Context(), "first", func(call *core.CallRecord) (core.Value, error) {
		call.Return(call.Arg(0))
		return nil, nil
	})
	if err != nil {
		t.Fatalf("NewCallback: %v", err)
	}
	ret, exc := rt.Call(obj.(*enginetest.Object), nil, 7.0)
	if exc != nil {
		t.Fatalf("unexpected exception: %s", excMessage(t, rt, exc))
	}
	if ret != 7.0 {
		t.Errorf("first(7) = %v, want 7", ret)
	}
}

func TestCallbackUsesScriptObjects(t *testing.T) {
	rt, _, d := setup(t)
	ctx := rt.Context()

	var kept core.Value
	obj, err := d.NewCallback(ctx, "visit", func(call *core.CallRecord) (core.Value, error) {
		e := call.Engine
		cb, err := e.ToObject(call.Context, call.Arg(0))
		if err != nil {
			return nil, err
		}
		conf, err := e.ToObject(call.Context, call.Arg(1))
		if err != nil {
			return nil, err
		}
		limit, err := e.GetProperty(call.Context, conf, "limit")
		if err != nil {
			return nil, err
		}
		if err := e.SetProperty(call.Context, conf, "seen", true); err != nil {
			return nil, err
		}
		e.Protect(call.Context, call.Arg(1))
		kept = call.Arg(1)
		return e.CallFunction(call.Context, cb, nil, []core.Value{limit})
	})
	if err != nil {
		t.Fatalf("NewCallback: %v", err)
	}

	double := rt.NewScriptFunction(func(_ *enginetest.Object, args []core.Value) (core.Value, core.Value) {
		return args[0].(float64) * 2, nil
	})
	conf := rt.NewPlainObject()
	conf.Props["limit"] = 21.0

	ret, exc := rt.Call(obj.(*enginetest.Object), nil, double, conf)
	if exc != nil {
		t.Fatalf("unexpected exception: %s", excMessage(t, rt, exc))
	}
	if ret != 42.0 {
		t.Errorf("visit = %v, want 42", ret)
	}
	if conf.Props["seen"] != true {
		t.Errorf("conf.seen = %v, want true", conf.Props["seen"])
	}

	names, err := rt.PropertyNames(ctx, conf)
	if err != nil || strings.Join(names, ",") != "limit,seen" {
		t.Errorf("PropertyNames = %v, %v", names, err)
	}
	if has, _ := rt.HasProperty(ctx, conf, "limit"); !has {
		t.Error("HasProperty(limit) = false")
	}

	rt.Collect()
	if !rt.Live(conf) {
		t.Fatal("protected object was collected")
	}
	rt.Unprotect(ctx, kept)
	rt.Collect()
	if rt.Live(conf) {
		t.Error("object still live after Unprotect")
	}
}

func TestCallFunctionRethrows(t *testing.T) {
	rt, _, _ := setup(t)
	boom := rt.NewScriptFunction(func(*enginetest.Object, []core.Value) (core.Value, core.Value) {
		return nil, "boom"
	})
	_, err := rt.CallFunction(rt.Context(), boom, nil, nil)
	var exc *core.Exception
	if !errors.As(err, &exc) || exc.Value != "boom" {
		t.Errorf("CallFunction error = %v, want exception carrying %q", err, "boom")
	}
}
