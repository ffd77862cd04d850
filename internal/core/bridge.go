package core

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// Bridge binds host entities into one engine. It owns the handle registry,
// the four class descriptors and the trampolines those descriptors route to.
type Bridge struct {
	engine     Engine
	dispatcher Dispatcher
	handles    *Registry
	logger     *log.Logger

	mu      sync.Mutex
	descs   [numKinds]*ClassDescriptor
	classes [numKinds]Class
	closed  bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger routes bridge diagnostics to l.
func WithLogger(l *log.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRegistry shares an existing handle registry.
func WithRegistry(r *Registry) Option {
	return func(b *Bridge) {
		if r != nil {
			b.handles = r
		}
	}
}

// New creates a bridge between engine and d.
func New(engine Engine, d Dispatcher, opts ...Option) *Bridge {
	if engine == nil || d == nil {
		violate("new", "nil engine or dispatcher")
	}
	b := &Bridge{
		engine:     engine,
		dispatcher: d,
		handles:    NewRegistry(),
		logger:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Engine returns the engine primitives the bridge was built on.
func (b *Bridge) Engine() Engine { return b.engine }

// Handles returns the handle registry.
func (b *Bridge) Handles() *Registry { return b.handles }

// Descriptor returns the shared descriptor for kind, building it on first use.
func (b *Bridge) Descriptor(kind ClassKind) *ClassDescriptor {
	if kind < 0 || kind >= numKinds {
		violate("descriptor", "unknown class kind %d", int(kind))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.descs[kind] == nil {
		b.descs[kind] = newDescriptor(b, kind)
	}
	return b.descs[kind]
}

// class returns the engine class for kind, defining it on first use.
func (b *Bridge) class(kind ClassKind) (Class, *ClassDescriptor, error) {
	desc := b.Descriptor(kind)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, ErrClosed
	}
	if b.classes[kind] == nil {
		cls, err := b.engine.DefineClass(desc)
		if err != nil {
			return nil, nil, fmt.Errorf("defining class %s: %w", desc.Name, err)
		}
		b.classes[kind] = cls
	}
	return b.classes[kind], desc, nil
}

// MakeCallback creates a callback function object bound to h.
func (b *Bridge) MakeCallback(ctx Context, name string, h *Handle) (Object, error) {
	return b.make(ctx, KindCallback, name, h)
}

// MakeFunction creates a native function object bound to h.
func (b *Bridge) MakeFunction(ctx Context, name string, h *Handle) (Object, error) {
	return b.make(ctx, KindFunction, name, h)
}

// MakeObject creates a native object bound to h.
func (b *Bridge) MakeObject(ctx Context, h *Handle) (Object, error) {
	return b.make(ctx, KindObject, "", h)
}

// MakeMethod creates a bound method function object. h must carry a method
// index.
func (b *Bridge) MakeMethod(ctx Context, h *Handle) (Object, error) {
	if h != nil && !h.HasMethod {
		violate("makeMethod", "handle has no method index")
	}
	return b.make(ctx, KindMethod, "", h)
}

func (b *Bridge) make(ctx Context, kind ClassKind, name string, h *Handle) (Object, error) {
	op := "make" + kind.String()
	if ctx == nil {
		violate(op, "nil context")
	}
	if h == nil {
		violate(op, "nil handle")
	}
	cls, _, err := b.class(kind)
	if err != nil {
		return nil, err
	}
	tok := b.handles.Attach(h)
	obj, err := b.engine.MakeObject(ctx, cls, name, tok)
	if err != nil {
		b.handles.Release(tok)
		return nil, fmt.Errorf("creating %s: %w", kind, err)
	}
	if got, ok := b.engine.Private(obj); !ok || got != tok {
		violate(op, "private slot holds %d, want %d", got, tok)
	}
	return obj, nil
}

// HandleOf returns the handle attached to obj, if obj is a live native
// object of this bridge.
func (b *Bridge) HandleOf(obj Object) (*Handle, bool) {
	tok, ok := b.engine.Private(obj)
	if !ok {
		return nil, false
	}
	return b.handles.Lookup(tok)
}

// Close finalizes every handle still live. The engine calls it when its
// context is torn down without collecting each object individually.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	var toks []Token
	b.handles.Range(func(tok Token, _ *Handle) bool {
		toks = append(toks, tok)
		return true
	})
	for _, tok := range toks {
		b.release(tok)
	}
	if len(toks) > 0 {
		b.logger.Printf("jsbridge: released %d live handle(s) on close", len(toks))
	}
}
