package core

import (
	"sync"
	"sync/atomic"
)

// Token is the opaque value stored in a native object's private slot. It
// indexes the host-side Registry; the engine never sees host memory.
// Zero is reserved for "no handle".
type Token uint64

// Handle identifies the host entity behind one native object.
type Handle struct {
	Type      any // host-defined type descriptor (e.g. reflect.Type)
	Addr      any // host-defined instance identity (e.g. reflect.Value)
	Method    int // method ordinal, valid when HasMethod is set
	HasMethod bool

	token atomic.Uint64
}

// NewHandle allocates a handle for a bound type/instance pair.
func NewHandle(typ, addr any) *Handle {
	return &Handle{Type: typ, Addr: addr}
}

// NewMethodHandle allocates a handle for a bound method of typ/addr.
func NewMethodHandle(typ, addr any, method int) *Handle {
	return &Handle{Type: typ, Addr: addr, Method: method, HasMethod: true}
}

// Token returns the token the handle is attached under, or zero if it was
// never attached.
func (h *Handle) Token() Token {
	return Token(h.token.Load())
}

// Registry owns every attached handle. An entry lives from Attach until the
// finalize trampoline releases it.
type Registry struct {
	seq     atomic.Uint64
	handles sync.Map // Token -> *Handle
	live    atomic.Int64
}

// NewRegistry creates an empty handle registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Attach assigns h a fresh token. A handle is attached exactly once.
func (r *Registry) Attach(h *Handle) Token {
	if h == nil {
		violate("attach", "nil handle")
	}
	tok := Token(r.seq.Add(1))
	if !h.token.CompareAndSwap(0, uint64(tok)) {
		violate("attach", "handle already attached as token %d", h.Token())
	}
	r.handles.Store(tok, h)
	r.live.Add(1)
	return tok
}

// Lookup returns the live handle for tok.
func (r *Registry) Lookup(tok Token) (*Handle, bool) {
	if tok == 0 {
		return nil, false
	}
	v, ok := r.handles.Load(tok)
	if !ok {
		return nil, false
	}
	return v.(*Handle), true
}

// Release removes tok from the registry and returns its handle. Each token
// is released exactly once.
func (r *Registry) Release(tok Token) *Handle {
	v, ok := r.handles.LoadAndDelete(tok)
	if !ok {
		violate("release", "token %d is not live", tok)
	}
	r.live.Add(-1)
	return v.(*Handle)
}

// Len reports the number of live handles.
func (r *Registry) Len() int {
	return int(r.live.Load())
}

// Range calls fn for every live handle until fn returns false.
func (r *Registry) Range(fn func(Token, *Handle) bool) {
	r.handles.Range(func(k, v any) bool {
		return fn(k.(Token), v.(*Handle))
	})
}
