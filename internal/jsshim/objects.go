package jsshim

import (
	"encoding/json"
	"fmt"

	"github.com/cryguy/jsbridge/internal/core"
)

// request runs one of the prelude's host-to-script operations with a JSON
// argument and settles its reply.
func (e *Engine) request(op string, arg any) (core.Value, error) {
	b, err := json.Marshal(arg)
	if err != nil {
		return nil, fmt.Errorf("jsshim: encoding %s: %w", op, err)
	}
	out, err := e.rt.EvalString(fmt.Sprintf("__jsbridge.%s(%s)", op, b))
	if err != nil {
		return nil, err
	}
	return e.settle(out)
}

func ref(op string, obj core.Object) (*Ref, error) {
	r, ok := obj.(*Ref)
	if !ok || r == nil {
		return nil, fmt.Errorf("jsshim: %s on %T, not a script object", op, obj)
	}
	return r, nil
}

func (e *Engine) property(op string, obj core.Object, name string, v core.Value) (core.Value, error) {
	r, err := ref(op, obj)
	if err != nil {
		return nil, err
	}
	req := propRequest{O: wire{T: "o", R: r.id}, N: name, V: wire{T: "u"}}
	if v != nil {
		if req.V, err = encode(v); err != nil {
			return nil, err
		}
	}
	return e.request(op, req)
}

// CallFunction implements core.Objects. A nil this calls with undefined.
func (e *Engine) CallFunction(_ core.Context, fn, this core.Object, args []core.Value) (core.Value, error) {
	r, err := ref("call", fn)
	if err != nil {
		return nil, err
	}
	req := callRequest{F: wire{T: "o", R: r.id}, T: wire{T: "u"}, A: make([]wire, len(args))}
	if this != nil {
		if req.T, err = encode(this); err != nil {
			return nil, err
		}
	}
	for i, a := range args {
		if req.A[i], err = encode(a); err != nil {
			return nil, err
		}
	}
	return e.request("apply", req)
}

// GetProperty implements core.Objects.
func (e *Engine) GetProperty(_ core.Context, obj core.Object, name string) (core.Value, error) {
	return e.property("get", obj, name, nil)
}

// SetProperty implements core.Objects.
func (e *Engine) SetProperty(_ core.Context, obj core.Object, name string, v core.Value) error {
	_, err := e.property("set", obj, name, v)
	return err
}

// HasProperty implements core.Objects.
func (e *Engine) HasProperty(_ core.Context, obj core.Object, name string) (bool, error) {
	v, err := e.property("has", obj, name, nil)
	if err != nil {
		return false, err
	}
	return v == true, nil
}

// DeleteProperty implements core.Objects.
func (e *Engine) DeleteProperty(_ core.Context, obj core.Object, name string) (bool, error) {
	v, err := e.property("del", obj, name, nil)
	if err != nil {
		return false, err
	}
	return v == true, nil
}

// PropertyNames implements core.Objects.
func (e *Engine) PropertyNames(_ core.Context, obj core.Object) ([]string, error) {
	r, err := ref("keys", obj)
	if err != nil {
		return nil, err
	}
	out, err := e.rt.EvalString(fmt.Sprintf("__jsbridge.keys(%d)", r.id))
	if err != nil {
		return nil, err
	}
	v, err := e.settle(out)
	if err != nil {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("jsshim: keys returned %T", v)
	}
	var names []string
	if err := json.Unmarshal([]byte(s), &names); err != nil {
		return nil, fmt.Errorf("jsshim: bad key list: %w", err)
	}
	return names, nil
}

// Protect implements core.Objects.
func (e *Engine) Protect(_ core.Context, v core.Value) {
	e.pin("protect", v)
}

// Unprotect implements core.Objects.
func (e *Engine) Unprotect(_ core.Context, v core.Value) {
	e.pin("unprotect", v)
}

func (e *Engine) pin(op string, v core.Value) {
	r, ok := v.(*Ref)
	if !ok {
		return
	}
	if err := e.rt.Eval(fmt.Sprintf("__jsbridge.%s(%d)", op, r.id)); err != nil {
		e.logger.Printf("jsbridge: %s ref %d: %v", op, r.id, err)
	}
}
