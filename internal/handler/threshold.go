package handler

import (
	"math"
	"sync"
	"time"

	"inputinject/internal/axis"
	"inputinject/internal/evcode"
	"inputinject/internal/injcontext"
	"inputinject/internal/model"
)

// ThresholdKeyHandler implements RelToKeyHandler/AbsToKeyHandler (spec
// §4.3): it fires a key press when a continuous axis's magnitude crosses
// analog_threshold in the configured direction, and a release once the
// magnitude falls below a 75% hysteresis band of that threshold or
// release_timeout elapses without further motion.
type ThresholdKeyHandler struct {
	m         *model.Mapping
	threshold float64
	ctx       *injcontext.Context
	magnitude func(ev evcode.Event) float64
	panics    *PanicCounter

	mu      sync.Mutex
	pressed bool
	timer   *time.Timer
}

// NewAbsToKeyHandler builds a ThresholdKeyHandler whose magnitude is the
// ABS sample normalized to a [-100, 100] percentage, matching
// InputConfig.AnalogThreshold's documented ABS unit.
func NewAbsToKeyHandler(m *model.Mapping, cfg model.InputConfig, ctx *injcontext.Context, srcMin, srcMax int32) *ThresholdKeyHandler {
	return &ThresholdKeyHandler{
		m:         m,
		threshold: cfg.AnalogThreshold,
		ctx:       ctx,
		panics:    NewPanicCounter(),
		magnitude: func(ev evcode.Event) float64 {
			return axis.NormalizeAbs(ev.Value, srcMin, srcMax) * 100
		},
	}
}

// NewRelToKeyHandler builds a ThresholdKeyHandler whose magnitude is the
// raw REL speed, matching InputConfig.AnalogThreshold's documented REL
// unit.
func NewRelToKeyHandler(m *model.Mapping, cfg model.InputConfig, ctx *injcontext.Context) *ThresholdKeyHandler {
	return &ThresholdKeyHandler{
		m:         m,
		threshold: cfg.AnalogThreshold,
		ctx:       ctx,
		panics:    NewPanicCounter(),
		magnitude: func(ev evcode.Event) float64 { return float64(ev.Value) },
	}
}

func (h *ThresholdKeyHandler) Handle(ev evcode.Event) Verdict {
	mag := h.magnitude(ev)
	crossed := (h.threshold >= 0 && mag >= h.threshold) || (h.threshold < 0 && mag <= h.threshold)
	hysteresis := 0.75 * math.Abs(h.threshold)

	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case !h.pressed && crossed:
		if !h.panics.Allow(h.m.InputCombination.Identity()) {
			break
		}
		h.pressed = true
		_ = h.ctx.Emit(h.m.TargetUinput, h.m.OutputType, h.m.OutputCode, 1)
	case h.pressed && math.Abs(mag) < hysteresis:
		h.pressed = false
		_ = h.ctx.Emit(h.m.TargetUinput, h.m.OutputType, h.m.OutputCode, 0)
	}

	if h.timer != nil {
		h.timer.Stop()
	}
	timeout := time.Duration(h.m.Shaping.ReleaseTimeoutMs) * time.Millisecond
	h.timer = time.AfterFunc(timeout, h.onTimeout)
	return Consumed
}

func (h *ThresholdKeyHandler) onTimeout() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pressed {
		h.pressed = false
		_ = h.ctx.Emit(h.m.TargetUinput, h.m.OutputType, h.m.OutputCode, 0)
	}
}
