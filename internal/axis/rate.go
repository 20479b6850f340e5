package axis

import "math"

// RelAccumulator turns a continuous speed (in REL units per second) into a
// stream of whole-tick REL deltas emitted at a fixed rate, carrying the
// fractional remainder between ticks so the long-run average tracks the
// true speed instead of biasing low from repeated truncation (spec §4.6,
// "Fractional position carries over between ticks to avoid bias.").
type RelAccumulator struct {
	carry float64
}

// Tick consumes one emission period of 1/rateHz seconds at the given speed
// (REL units/sec) and returns the whole-number delta to emit this tick.
func (a *RelAccumulator) Tick(speedPerSecond float64, rateHz float64) int32 {
	if rateHz <= 0 {
		rateHz = 1
	}
	a.carry += speedPerSecond / rateHz
	whole := math.Trunc(a.carry)
	a.carry -= whole
	return int32(whole)
}

// Reset clears the carried fractional remainder, e.g. when a handler's
// input returns to the deadzone and a later activation should not inherit
// stale sub-tick drift.
func (a *RelAccumulator) Reset() {
	a.carry = 0
}

// AbsAccumulator integrates REL ticks into a virtual absolute position,
// clamped to [min, max], for the RelToAbsHandler.
type AbsAccumulator struct {
	pos float64
}

// NewAbsAccumulator starts centered between min and max.
func NewAbsAccumulator(min, max int32) *AbsAccumulator {
	return &AbsAccumulator{pos: (float64(min) + float64(max)) / 2}
}

// Add accumulates a REL delta scaled by gain, clamping at the axis bounds.
func (a *AbsAccumulator) Add(delta int32, gain float64, min, max int32) int32 {
	a.pos += float64(delta) * gain
	if a.pos < float64(min) {
		a.pos = float64(min)
	}
	if a.pos > float64(max) {
		a.pos = float64(max)
	}
	return int32(math.Round(a.pos))
}

// Center resets the virtual position to the midpoint, used when the
// release_timeout elapses without further motion (spec §4.3 RelToAbsHandler).
func (a *AbsAccumulator) Center(min, max int32) int32 {
	a.pos = (float64(min) + float64(max)) / 2
	return int32(math.Round(a.pos))
}
