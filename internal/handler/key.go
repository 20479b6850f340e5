package handler

import (
	"inputinject/internal/evcode"
	"inputinject/internal/injcontext"
	"inputinject/internal/model"
)

// KeyHandler mirrors one mapped key 1-to-1 onto a KEY output, passing the
// input's value straight through so press, autorepeat and release all
// reach the target the way a physical key would (spec §4.3).
type KeyHandler struct {
	ctx *injcontext.Context
}

// NewKeyHandler binds a KeyHandler to one injection's Context.
func NewKeyHandler(ctx *injcontext.Context) *KeyHandler {
	return &KeyHandler{ctx: ctx}
}

// Handle emits ev.Value verbatim on m's output and always consumes: a
// mapped key's raw input must never also reach the forwarded device.
func (h *KeyHandler) Handle(m *model.Mapping, ev evcode.Event) Verdict {
	_ = h.ctx.Emit(m.TargetUinput, m.OutputType, m.OutputCode, ev.Value)
	return Consumed
}

// Emit writes a single explicit value (1 press, 0 release) for m's output,
// used by CombinationHandler when a synthetic press/release is not driven
// by an incoming event of the same value (e.g. a reactivated sub-combo).
func (h *KeyHandler) Emit(m *model.Mapping, value int32) error {
	return h.ctx.Emit(m.TargetUinput, m.OutputType, m.OutputCode, value)
}
