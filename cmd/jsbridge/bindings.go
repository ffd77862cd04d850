package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cryguy/jsbridge"
	"github.com/cryguy/jsbridge/internal/eventloop"
)

// Host is the sample object exposed to scripts as `host`.
type Host struct {
	Name    string
	Version string
	Calls   int

	started time.Time
}

// Greet returns a greeting and counts the call.
func (h *Host) Greet(who string) string {
	h.Calls++
	return fmt.Sprintf("hello %s, from %s", who, h.Name)
}

// Uptime reports how long the host has been running, in seconds.
func (h *Host) Uptime() float64 {
	return time.Since(h.started).Seconds()
}

func (h *Host) String() string {
	return h.Name + " " + h.Version
}

// session is a Context with the sample bindings and timers installed.
type session struct {
	*jsbridge.Context
	loop *eventloop.EventLoop
}

// newSession creates a session whose print binding writes to out.
func newSession(cfg jsbridge.Config, out io.Writer) (*session, error) {
	ctx, err := jsbridge.NewContext(cfg)
	if err != nil {
		return nil, err
	}
	s := &session{Context: ctx, loop: eventloop.New()}
	if err := install(ctx, out); err != nil {
		ctx.Close()
		return nil, err
	}
	if err := s.loop.Install(ctx); err != nil {
		ctx.Close()
		return nil, fmt.Errorf("installing timers: %w", err)
	}
	return s, nil
}

// drain fires timers until none are left or wait has passed.
func (s *session) drain(wait time.Duration) error {
	return s.loop.Drain(s.Context, time.Now().Add(wait))
}

func install(ctx *jsbridge.Context, out io.Writer) error {
	printFn := func(call *jsbridge.CallRecord) (jsbridge.Value, error) {
		parts := make([]string, len(call.Args))
		for i, arg := range call.Args {
			s, err := call.Engine.ToString(call.Context, arg)
			if err != nil {
				return nil, err
			}
			parts[i] = s
		}
		fmt.Fprintln(out, strings.Join(parts, " "))
		return nil, nil
	}
	if err := ctx.RegisterCallback("print", printFn); err != nil {
		return err
	}
	if err := ctx.RegisterFunc("add", func(a, b float64) float64 { return a + b }); err != nil {
		return err
	}
	return ctx.RegisterObject("host", &Host{Name: "jsbridge", Version: version, started: time.Now()})
}
