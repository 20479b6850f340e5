package injcontext

import (
	"sync/atomic"

	"inputinject/internal/model"
	"inputinject/internal/symbols"
)

// OutputWriter is the subset of uinputdev.Registry a Context needs to
// emit events to named virtual outputs, kept as an interface so this
// package never imports uinputdev.
type OutputWriter interface {
	Write(name string, evType, code uint16, value int32) error
	HasCapability(uinputName string, evType, code uint16) bool
}

// LEDReader reports the kernel LED state (capslock/numlock) of a group's
// sub-devices, consulted by the macro runtime's if_capslock/if_numlock
// nodes. Kept as an interface so this package never imports the producer
// layer that actually owns the open device file descriptors.
type LEDReader interface {
	LED(code uint16) bool
}

// Context is the per-injection bundle spec §3 describes: the validated
// Preset, the symbol table, immutable references to each named virtual
// output this injection may write to, the process-wide Shared Variable
// Store, and a live count of currently-executing handlers.
type Context struct {
	Preset  *model.Preset
	Symbols *symbols.Table
	Outputs OutputWriter
	Vars    *Store
	LEDs    LEDReader

	// Forwarded and Mapped name the two per-injection uinputs the
	// Supervisor opened for this run (spec §4.1).
	Forwarded string
	Mapped    string

	activeHandlers atomic.Int64
	done           <-chan struct{}
}

// New builds a Context for one injection. vars is the process-wide store,
// shared across every concurrently running injection.
func New(preset *model.Preset, syms *symbols.Table, outputs OutputWriter, vars *Store, forwarded, mapped string) *Context {
	return &Context{
		Preset:    preset,
		Symbols:   syms,
		Outputs:   outputs,
		Vars:      vars,
		Forwarded: forwarded,
		Mapped:    mapped,
	}
}

// LED reports the capslock/numlock state, or false if this Context has no
// LEDReader bound (e.g. in tests).
func (c *Context) LED(code uint16) bool {
	if c.LEDs == nil {
		return false
	}
	return c.LEDs.LED(code)
}

// EnterHandler increments the active-handler counter; callers must pair
// every call with a deferred LeaveHandler.
func (c *Context) EnterHandler() { c.activeHandlers.Add(1) }

// LeaveHandler decrements the active-handler counter.
func (c *Context) LeaveHandler() { c.activeHandlers.Add(-1) }

// ActiveHandlers reports the live count, used by the Supervisor's bounded
// drain on stop (spec §4.1: wait for active handlers to settle, capped at
// max release_timeout + 100ms).
func (c *Context) ActiveHandlers() int64 { return c.activeHandlers.Load() }

// SetDone binds the injection's cancellation signal, so long-lived
// handlers and macro tasks can force-release when the Supervisor calls
// Stop instead of only reacting to further device events (spec §4.1:
// "stop signals cancel all producers, handlers, and macro tasks").
func (c *Context) SetDone(done <-chan struct{}) { c.done = done }

// Done returns the injection's cancellation signal, or nil if none was
// bound (e.g. in tests), in which case it behaves like a context.Context
// that is never cancelled.
func (c *Context) Done() <-chan struct{} { return c.done }

// Emit writes one event to the named virtual output and is the single
// path every handler and the macro runtime use to produce output, so that
// Context remains the sole authority over which uinputs an injection may
// touch.
func (c *Context) Emit(uinputName string, evType, code uint16, value int32) error {
	return c.Outputs.Write(uinputName, evType, code, value)
}
