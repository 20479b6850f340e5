package handler

import (
	"sync"
	"time"

	"inputinject/internal/axis"
	"inputinject/internal/evcode"
	"inputinject/internal/injcontext"
	"inputinject/internal/model"
)

// AbsToAbsHandler normalizes an ABS sample, runs it through the
// deadzone/expo/gain pipeline, and emits a denormalized ABS sample on
// the target axis (spec §4.3).
type AbsToAbsHandler struct {
	m              *model.Mapping
	ctx            *injcontext.Context
	srcMin, srcMax int32
	dstMin, dstMax int32
	excl           *ExclusivityArbiter
}

// NewAbsToAbsHandler binds an AbsToAbsHandler to one analog-axis mapping.
func NewAbsToAbsHandler(m *model.Mapping, ctx *injcontext.Context, srcMin, srcMax, dstMin, dstMax int32, excl *ExclusivityArbiter) *AbsToAbsHandler {
	return &AbsToAbsHandler{m: m, ctx: ctx, srcMin: srcMin, srcMax: srcMax, dstMin: dstMin, dstMax: dstMax, excl: excl}
}

func (h *AbsToAbsHandler) shape(raw int32) float64 {
	x := axis.NormalizeAbs(raw, h.srcMin, h.srcMax)
	p := axis.Params{Deadzone: h.m.Shaping.Deadzone, Gain: h.m.Shaping.Gain, Expo: h.m.Shaping.Expo}
	return p.Shape(x)
}

func (h *AbsToAbsHandler) Handle(ev evcode.Event) Verdict {
	y := h.shape(ev.Value)
	if y == 0 {
		h.excl.Release(h.m.ExclusivityGroup, h.m)
		_ = h.ctx.Emit(h.m.TargetUinput, h.m.OutputType, h.m.OutputCode, axis.DenormalizeAbs(0, h.dstMin, h.dstMax))
		return Consumed
	}
	if !h.excl.TryClaim(h.m.ExclusivityGroup, h.m) {
		return Consumed
	}
	_ = h.ctx.Emit(h.m.TargetUinput, h.m.OutputType, h.m.OutputCode, axis.DenormalizeAbs(y, h.dstMin, h.dstMax))
	return Consumed
}

// AbsToRelHandler converts a held ABS position into a continuous REL
// speed, emitting ticks at rel_rate Hz for as long as the normalized
// input sits outside the deadzone (spec §4.3).
type AbsToRelHandler struct {
	m              *model.Mapping
	ctx            *injcontext.Context
	srcMin, srcMax int32
	excl           *ExclusivityArbiter

	mu      sync.Mutex
	current int32
	running bool
	stop    chan struct{}
}

// NewAbsToRelHandler binds an AbsToRelHandler to one analog-axis mapping.
func NewAbsToRelHandler(m *model.Mapping, ctx *injcontext.Context, srcMin, srcMax int32, excl *ExclusivityArbiter) *AbsToRelHandler {
	return &AbsToRelHandler{m: m, ctx: ctx, srcMin: srcMin, srcMax: srcMax, excl: excl}
}

func (h *AbsToRelHandler) shaped() float64 {
	x := axis.NormalizeAbs(h.current, h.srcMin, h.srcMax)
	p := axis.Params{Deadzone: h.m.Shaping.Deadzone, Gain: h.m.Shaping.Gain, Expo: h.m.Shaping.Expo}
	return p.Shape(x)
}

func (h *AbsToRelHandler) Handle(ev evcode.Event) Verdict {
	h.mu.Lock()
	h.current = ev.Value
	active := h.shaped() != 0

	switch {
	case active && !h.running:
		h.running = true
		h.stop = make(chan struct{})
		h.ctx.EnterHandler()
		go h.loop(h.stop)
	case !active && h.running:
		h.running = false
		close(h.stop)
		h.excl.Release(h.m.ExclusivityGroup, h.m)
	}
	h.mu.Unlock()
	return Consumed
}

func (h *AbsToRelHandler) loop(stop chan struct{}) {
	defer h.ctx.LeaveHandler()

	rate := h.m.Shaping.RelRate
	if rate <= 0 {
		rate = 60
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	var acc axis.RelAccumulator
	for {
		select {
		case <-stop:
			return
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.mu.Lock()
			speed := h.shaped()
			h.mu.Unlock()

			if !h.excl.TryClaim(h.m.ExclusivityGroup, h.m) {
				continue
			}
			delta := acc.Tick(speed, rate)
			if delta != 0 {
				_ = h.ctx.Emit(h.m.TargetUinput, h.m.OutputType, h.m.OutputCode, delta)
			}
		}
	}
}

// RelToAbsHandler integrates REL ticks into a virtual ABS position,
// clamped and saturating at the target axis bounds, recentering once
// release_timeout elapses without further motion (spec §4.3).
type RelToAbsHandler struct {
	m              *model.Mapping
	ctx            *injcontext.Context
	dstMin, dstMax int32

	mu      sync.Mutex
	acc     *axis.AbsAccumulator
	timer   *time.Timer
	pending bool
}

// NewRelToAbsHandler binds a RelToAbsHandler to one analog-axis mapping.
// It starts a goroutine that force-recenters and releases the handler's
// active-handler slot if ctx is cancelled while a release timer is still
// pending, so Supervisor.Stop doesn't wait on a timer that real device
// events can no longer cancel.
func NewRelToAbsHandler(m *model.Mapping, ctx *injcontext.Context, dstMin, dstMax int32) *RelToAbsHandler {
	h := &RelToAbsHandler{m: m, ctx: ctx, dstMin: dstMin, dstMax: dstMax, acc: axis.NewAbsAccumulator(dstMin, dstMax)}
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			h.onTimeout()
		}()
	}
	return h
}

func (h *RelToAbsHandler) Handle(ev evcode.Event) Verdict {
	h.mu.Lock()
	defer h.mu.Unlock()

	pos := h.acc.Add(ev.Value, h.m.Shaping.Gain, h.dstMin, h.dstMax)
	_ = h.ctx.Emit(h.m.TargetUinput, h.m.OutputType, h.m.OutputCode, pos)

	if h.timer != nil {
		h.timer.Stop()
	} else {
		h.ctx.EnterHandler()
		h.pending = true
	}
	timeout := time.Duration(h.m.Shaping.ReleaseTimeoutMs) * time.Millisecond
	h.timer = time.AfterFunc(timeout, h.onTimeout)
	return Consumed
}

func (h *RelToAbsHandler) onTimeout() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.pending {
		return
	}
	h.pending = false
	pos := h.acc.Center(h.dstMin, h.dstMax)
	_ = h.ctx.Emit(h.m.TargetUinput, h.m.OutputType, h.m.OutputCode, pos)
	h.ctx.LeaveHandler()
}
