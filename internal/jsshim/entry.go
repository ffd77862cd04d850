package jsshim

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cryguy/jsbridge/internal/core"
)

// fail reports a shim-level failure to script as an Error.
func (e *Engine) fail(err error) string {
	e.logger.Printf("jsbridge: %v", err)
	return marshalReply(reply{X: &wire{T: "e", V: err.Error()}})
}

// answer builds the reply for a trampoline outcome.
func (e *Engine) answer(v, exc core.Value) string {
	if exc != nil {
		w, err := encode(exc)
		if err != nil {
			return e.fail(err)
		}
		return marshalReply(reply{X: &w})
	}
	if v == nil {
		return marshalReply(reply{})
	}
	w, err := encode(v)
	if err != nil {
		return e.fail(err)
	}
	return marshalReply(reply{R: &w})
}

// native decodes the receiver of an entry point into a native reference
// and its class.
func (e *Engine) native(w wire) (*Ref, *core.ClassDescriptor, error) {
	v, err := decode(w)
	if err != nil {
		return nil, nil, err
	}
	r, ok := v.(*Ref)
	if !ok {
		return nil, nil, fmt.Errorf("jsshim: receiver is %T, not an object", v)
	}
	desc, err := e.descriptor(r)
	if err != nil {
		return nil, nil, err
	}
	return r, desc, nil
}

func (e *Engine) onCall(payload string) string {
	e.depth++
	defer func() { e.depth-- }()

	var req callRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return e.fail(fmt.Errorf("decoding call: %w", err))
	}
	fn, desc, err := e.native(req.F)
	if err != nil {
		return e.fail(err)
	}
	if desc.CallAsFunction == nil {
		return e.fail(fmt.Errorf("%s is not callable", desc.Name))
	}

	var this core.Object
	tv, err := decode(req.T)
	if err != nil {
		return e.fail(err)
	}
	if r, ok := tv.(*Ref); ok {
		this = r
	}
	args := make([]core.Value, len(req.A))
	for i, w := range req.A {
		if args[i], err = decode(w); err != nil {
			return e.fail(err)
		}
	}

	var exc core.Value
	ret := desc.CallAsFunction(e.ctx, fn, this, args, &exc)
	return e.answer(ret, exc)
}

func (e *Engine) onGet(payload string) string {
	e.depth++
	defer func() { e.depth-- }()

	var req propRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return e.fail(fmt.Errorf("decoding get: %w", err))
	}
	obj, desc, err := e.native(req.O)
	if err != nil {
		return e.fail(err)
	}
	if desc.GetProperty == nil {
		return e.answer(nil, nil)
	}
	var exc core.Value
	v := desc.GetProperty(e.ctx, obj, req.N, &exc)
	return e.answer(v, exc)
}

func (e *Engine) onSet(payload string) string {
	e.depth++
	defer func() { e.depth-- }()

	var req propRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return e.fail(fmt.Errorf("decoding set: %w", err))
	}
	obj, desc, err := e.native(req.O)
	if err != nil {
		return e.fail(err)
	}
	if desc.SetProperty == nil {
		return marshalReply(reply{})
	}
	v, err := decode(req.V)
	if err != nil {
		return e.fail(err)
	}
	var exc core.Value
	handled := desc.SetProperty(e.ctx, obj, req.N, v, &exc)
	if exc != nil {
		return e.answer(nil, exc)
	}
	return marshalReply(reply{H: handled})
}

func (e *Engine) onString(payload string) string {
	e.depth++
	defer func() { e.depth-- }()

	var req propRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return e.fail(fmt.Errorf("decoding toString: %w", err))
	}
	obj, desc, err := e.native(req.O)
	if err != nil {
		return e.fail(err)
	}
	if desc.ConvertToString == nil {
		return e.answer(desc.Name, nil)
	}
	var exc core.Value
	s := desc.ConvertToString(e.ctx, obj, &exc)
	if exc != nil {
		return e.answer(nil, exc)
	}
	str, err := e.ToString(e.ctx, s)
	if err != nil {
		return e.fail(err)
	}
	return e.answer(str, nil)
}

// onFinalize runs from the script's finalization job. The object itself is
// gone; its token and class are all that is left.
func (e *Engine) onFinalize(payload string) string {
	var req finalizeRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		e.logger.Printf("jsbridge: decoding finalize: %v", err)
		return ""
	}
	tok, err := strconv.ParseUint(req.P, 10, 64)
	if err != nil {
		e.logger.Printf("jsbridge: finalize token %q: %v", req.P, err)
		return ""
	}
	c, ok := e.classes[req.C]
	if !ok || c.desc.Finalize == nil {
		return ""
	}
	c.desc.Finalize(&Ref{token: core.Token(tok), class: req.C})
	return ""
}
