// Package eventloop gives scripts Go-backed setTimeout and setInterval. The
// callbacks live on the script side; Go tracks only scheduling.
package eventloop

import (
	"fmt"
	"sync"
	"time"
)

// Runtime is the part of a bridge context the loop needs: binding the
// scheduling functions and firing callbacks.
type Runtime interface {
	RegisterFunc(name string, fn any) error
	Eval(src string) error
}

// timerEntry represents a pending setTimeout or setInterval callback.
type timerEntry struct {
	deadline time.Time
	interval time.Duration // 0 for setTimeout, >0 for setInterval
	id       int
	cleared  bool
}

// EventLoop manages Go-backed timers with real wall-clock delays.
type EventLoop struct {
	mu     sync.Mutex
	timers map[int]*timerEntry
	nextID int
}

// New creates a new EventLoop.
func New() *EventLoop {
	return &EventLoop{
		timers: make(map[int]*timerEntry),
	}
}

// RegisterTimer creates a timer entry and returns its ID.
func (el *EventLoop) RegisterTimer(delay time.Duration, isInterval bool) int {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.nextID++
	id := el.nextID
	if delay < 0 {
		delay = 0
	}
	entry := &timerEntry{
		deadline: time.Now().Add(delay),
		id:       id,
	}
	if isInterval {
		if delay < 10*time.Millisecond {
			delay = 10 * time.Millisecond // minimum interval
		}
		entry.interval = delay
	}
	el.timers[id] = entry
	return id
}

// ClearTimer cancels a timer by ID.
func (el *EventLoop) ClearTimer(id int) {
	el.mu.Lock()
	defer el.mu.Unlock()
	if t, ok := el.timers[id]; ok {
		t.cleared = true
		delete(el.timers, id)
	}
}

// HasPending reports whether any timer is still scheduled.
func (el *EventLoop) HasPending() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return len(el.timers) > 0
}

// Reset clears all timers.
func (el *EventLoop) Reset() {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.timers = make(map[int]*timerEntry)
	el.nextID = 0
}

// next returns the earliest live timer, or nil.
func (el *EventLoop) next() *timerEntry {
	el.mu.Lock()
	defer el.mu.Unlock()
	var next *timerEntry
	for _, t := range el.timers {
		if t.cleared {
			continue
		}
		if next == nil || t.deadline.Before(next.deadline) || (t.deadline.Equal(next.deadline) && t.id < next.id) {
			next = t
		}
	}
	return next
}

// fireTimer invokes the script-side callback for id.
func (el *EventLoop) fireTimer(rt Runtime, id int) error {
	js := fmt.Sprintf(`(function() {
		var entry = globalThis.__timerCallbacks[%d];
		if (!entry) return;
		if (!entry.interval) delete globalThis.__timerCallbacks[%d];
		entry.fn.apply(null, entry.args || []);
	})()`, id, id)
	return rt.Eval(js)
}

// Drain fires timers in deadline order until none remain or the next one
// is due after deadline. Timers already due always fire. An exception
// escaping a callback stops the loop and is returned. Must be called on the
// runtime's goroutine.
func (el *EventLoop) Drain(rt Runtime, deadline time.Time) error {
	for {
		next := el.next()
		if next == nil {
			return nil
		}

		if wait := time.Until(next.deadline); wait > 0 {
			if time.Now().Add(wait).After(deadline) {
				return nil
			}
			time.Sleep(wait)
		}

		el.mu.Lock()
		if next.cleared {
			el.mu.Unlock()
			continue
		}
		timerID := next.id
		if next.interval > 0 {
			next.deadline = time.Now().Add(next.interval)
		} else {
			delete(el.timers, next.id)
		}
		el.mu.Unlock()

		if err := el.fireTimer(rt, timerID); err != nil {
			return fmt.Errorf("timer %d: %w", timerID, err)
		}
	}
}
