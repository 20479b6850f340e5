package handler

import (
	"inputinject/internal/evcode"
	"inputinject/internal/injcontext"
)

// Forwarder writes every surviving event to one group's forwarded uinput,
// preserving arrival order (spec §4.3), and emits the synthetic per-key
// releases a CombinationHandler needs ahead of a winning combination's
// output when release_combination_keys is set (spec §4.4 rule 3).
type Forwarder struct {
	ctx *injcontext.Context
}

// NewForwarder binds a Forwarder to one injection's Context.
func NewForwarder(ctx *injcontext.Context) *Forwarder {
	return &Forwarder{ctx: ctx}
}

// Forward writes ev to the forwarded uinput unchanged.
func (f *Forwarder) Forward(ev evcode.Event) error {
	return f.ctx.Emit(f.ctx.Forwarded, ev.Type, ev.Code, ev.Value)
}

// ReleaseKey emits a synthetic key-up on the forwarded uinput.
func (f *Forwarder) ReleaseKey(evType, code uint16) error {
	return f.ctx.Emit(f.ctx.Forwarded, evType, code, 0)
}
