package macro

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"inputinject/internal/evcode"
)

func (k Key) run(t *Task) error {
	sym, err := k.Sym.resolveString(t)
	if err != nil {
		return err
	}
	code, ok := t.ctx.Symbols.Get(sym)
	if !ok {
		return fmt.Errorf("unknown symbol %q", sym)
	}
	half := time.Duration(t.keySleepMs/2) * time.Millisecond
	if err := t.pressKey(code); err != nil {
		return err
	}
	sleepFull(half)
	if err := t.releaseKey(code); err != nil {
		return err
	}
	sleepFull(half)
	return nil
}

func (k KeyDown) run(t *Task) error {
	sym, err := k.Sym.resolveString(t)
	if err != nil {
		return err
	}
	code, ok := t.ctx.Symbols.Get(sym)
	if !ok {
		return fmt.Errorf("unknown symbol %q", sym)
	}
	t.trackDown(sym)
	return t.pressKey(code)
}

func (k KeyUp) run(t *Task) error {
	sym, err := k.Sym.resolveString(t)
	if err != nil {
		return err
	}
	code, ok := t.ctx.Symbols.Get(sym)
	if !ok {
		return fmt.Errorf("unknown symbol %q", sym)
	}
	t.untrack(sym)
	return t.releaseKey(code)
}

func (w Wait) run(t *Task) error {
	min, err := w.Min.resolveInt(t)
	if err != nil {
		return err
	}
	d := time.Duration(min) * time.Millisecond
	if w.HasMax {
		max, err := w.Max.resolveInt(t)
		if err != nil {
			return err
		}
		if max > min {
			d = time.Duration(min+rand.Int63n(max-min+1)) * time.Millisecond
		}
	}
	sleepFull(d)
	return nil
}

func (r Repeat) run(t *Task) error {
	n, err := r.N.resolveInt(t)
	if err != nil {
		return err
	}
	for i := int64(0); i < n; i++ {
		if err := r.Body.run(t); err != nil {
			return err
		}
	}
	return nil
}

func (m Modify) run(t *Task) error {
	sym, err := m.Mod.resolveString(t)
	if err != nil {
		return err
	}
	code, ok := t.ctx.Symbols.Get(sym)
	if !ok {
		return fmt.Errorf("unknown symbol %q", sym)
	}
	t.trackDown(sym)
	if err := t.pressKey(code); err != nil {
		return err
	}
	if err := m.Body.run(t); err != nil {
		return err
	}
	t.untrack(sym)
	return t.releaseKey(code)
}

func (h Hold) run(t *Task) error {
	for t.Held() {
		if err := h.Body.run(t); err != nil {
			return err
		}
	}
	return nil
}

func (hk HoldKeys) run(t *Task) error {
	codes := make([]int, 0, len(hk.Syms))
	syms := make([]string, 0, len(hk.Syms))
	for _, symArg := range hk.Syms {
		sym, err := symArg.resolveString(t)
		if err != nil {
			return err
		}
		code, ok := t.ctx.Symbols.Get(sym)
		if !ok {
			return fmt.Errorf("unknown symbol %q", sym)
		}
		codes = append(codes, code)
		syms = append(syms, sym)
	}

	for i, code := range codes {
		t.trackDown(syms[i])
		if err := t.pressKey(code); err != nil {
			return err
		}
	}

	<-t.releasedCh

	var firstErr error
	for i := len(codes) - 1; i >= 0; i-- {
		t.untrack(syms[i])
		if err := t.releaseKey(codes[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (mt ModTap) run(t *Task) error {
	termMs := int64(300)
	if mt.HasTerm {
		v, err := mt.TermMs.resolveInt(t)
		if err != nil {
			return err
		}
		termMs = v
	}

	select {
	case <-t.releasedCh:
		return Key{Sym: mt.Default}.run(t)
	case <-t.otherPress:
		return runModHold(t, mt.Mod)
	case <-time.After(time.Duration(termMs) * time.Millisecond):
		return runModHold(t, mt.Mod)
	}
}

func runModHold(t *Task, modArg Arg) error {
	sym, err := modArg.resolveString(t)
	if err != nil {
		return err
	}
	code, ok := t.ctx.Symbols.Get(sym)
	if !ok {
		return fmt.Errorf("unknown symbol %q", sym)
	}
	t.trackDown(sym)
	if err := t.pressKey(code); err != nil {
		return err
	}
	<-t.releasedCh
	t.untrack(sym)
	return t.releaseKey(code)
}

func relCodesForDir(dir MouseDir) (code uint16, sign float64) {
	switch dir {
	case DirUp:
		return evcode.REL_Y, -1
	case DirDown:
		return evcode.REL_Y, 1
	case DirLeft:
		return evcode.REL_X, -1
	case DirRight:
		return evcode.REL_X, 1
	default:
		return evcode.REL_X, 1
	}
}

func (m Mouse) run(t *Task) error {
	speed, err := m.Speed.resolveFloat(t)
	if err != nil {
		return err
	}
	accel := 0.0
	if m.HasAccel {
		accel, err = m.Accel.resolveFloat(t)
		if err != nil {
			return err
		}
	}
	code, sign := relCodesForDir(m.Dir)

	rate := t.relRate
	if rate <= 0 {
		rate = 60
	}
	interval := time.Duration(float64(time.Second) / rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var carry float64
	elapsed := 0.0
	for t.Held() {
		<-ticker.C
		elapsed += 1 / rate
		cur := sign * (speed + accel*elapsed)
		carry += cur / rate
		whole := math.Trunc(carry)
		carry -= whole
		if whole != 0 {
			if err := t.ctx.Emit(t.targetUinput, evcode.EV_REL, code, int32(whole)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m MouseXY) run(t *Task) error {
	x, err := m.X.resolveFloat(t)
	if err != nil {
		return err
	}
	y, err := m.Y.resolveFloat(t)
	if err != nil {
		return err
	}
	accel := 0.0
	if m.HasAccel {
		accel, err = m.Accel.resolveFloat(t)
		if err != nil {
			return err
		}
	}

	rate := t.relRate
	if rate <= 0 {
		rate = 60
	}
	interval := time.Duration(float64(time.Second) / rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var carryX, carryY float64
	elapsed := 0.0
	for t.Held() {
		<-ticker.C
		elapsed += 1 / rate
		scale := 1 + accel*elapsed
		carryX += (x * scale) / rate
		carryY += (y * scale) / rate
		wx := math.Trunc(carryX)
		wy := math.Trunc(carryY)
		carryX -= wx
		carryY -= wy
		if wx != 0 {
			if err := t.ctx.Emit(t.targetUinput, evcode.EV_REL, evcode.REL_X, int32(wx)); err != nil {
				return err
			}
		}
		if wy != 0 {
			if err := t.ctx.Emit(t.targetUinput, evcode.EV_REL, evcode.REL_Y, int32(wy)); err != nil {
				return err
			}
		}
	}
	return nil
}

func wheelCodesForDir(dir MouseDir) (code uint16, sign float64) {
	switch dir {
	case DirUp:
		return evcode.REL_WHEEL, 1
	case DirDown:
		return evcode.REL_WHEEL, -1
	case DirLeft:
		return evcode.REL_HWHEEL, 1
	case DirRight:
		return evcode.REL_HWHEEL, -1
	default:
		return evcode.REL_WHEEL, 1
	}
}

func (w Wheel) run(t *Task) error {
	speed, err := w.Speed.resolveFloat(t)
	if err != nil {
		return err
	}
	code, sign := wheelCodesForDir(w.Dir)

	rate := t.relRate
	if rate <= 0 {
		rate = 60
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	var carry float64
	for t.Held() {
		<-ticker.C
		carry += (sign * speed) / rate
		whole := math.Trunc(carry)
		carry -= whole
		if whole != 0 {
			if err := t.ctx.Emit(t.targetUinput, evcode.EV_REL, code, int32(whole)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e Event) run(t *Task) error {
	typ, err := e.Type.resolveInt(t)
	if err != nil {
		return err
	}
	code, err := e.Code.resolveInt(t)
	if err != nil {
		return err
	}
	value, err := e.Value.resolveInt(t)
	if err != nil {
		return err
	}
	return t.ctx.Emit(t.targetUinput, uint16(typ), uint16(code), int32(value))
}

func (s Set) run(t *Task) error {
	name, err := s.Name.resolveString(t)
	if err != nil {
		return err
	}
	v, err := s.Value.resolveValue(t)
	if err != nil {
		return err
	}
	t.ctx.Vars.Set(name, v)
	return nil
}

func (a Add) run(t *Task) error {
	name, err := a.Name.resolveString(t)
	if err != nil {
		return err
	}
	delta, err := a.Value.resolveInt(t)
	if err != nil {
		return err
	}
	t.ctx.Vars.Add(name, delta)
	return nil
}

func runOptional(p *Program, t *Task) error {
	if p == nil {
		return nil
	}
	return p.run(t)
}

func (n IfEq) run(t *Task) error {
	eq, err := equalValue(t, n.A, n.B)
	if err != nil {
		return err
	}
	if eq {
		return runOptional(n.Then, t)
	}
	return runOptional(n.Else, t)
}

func (n IfTap) run(t *Task) error {
	timeout, err := n.TimeoutMs.resolveInt(t)
	if err != nil {
		return err
	}
	released := t.waitForReleaseOrTimeout(time.Duration(timeout) * time.Millisecond)
	if released {
		return runOptional(n.Then, t)
	}
	return runOptional(n.Else, t)
}

func (n IfSingle) run(t *Task) error {
	var timeout time.Duration
	if n.HasTimeout {
		ms, err := n.TimeoutMs.resolveInt(t)
		if err != nil {
			return err
		}
		timeout = time.Duration(ms) * time.Millisecond
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timeoutCh = time.After(timeout)
	}

	select {
	case <-t.releasedCh:
		return runOptional(n.Then, t)
	case <-t.otherPress:
		// drain the held key's eventual release before branching, so the
		// macro doesn't race ahead of the physical key-up.
		<-t.releasedCh
		return runOptional(n.Else, t)
	case <-timeoutCh:
		return runOptional(n.Else, t)
	}
}

func (n IfCapslock) run(t *Task) error {
	if t.ctx.LED(n.ledCode()) {
		return runOptional(n.Then, t)
	}
	return runOptional(n.Else, t)
}

func (n IfNumlock) run(t *Task) error {
	if t.ctx.LED(n.ledCode()) {
		return runOptional(n.Then, t)
	}
	return runOptional(n.Else, t)
}
