package macro

import (
	"sync"
	"sync/atomic"
	"time"

	"inputinject/internal/evcode"
	"inputinject/internal/injcontext"
)

const keyEventType = evcode.EV_KEY

// Task is one running macro invocation: its program cursor lives in the
// Go call stack of Task.run, its "held" flag is shared with the
// MacroHandler that spawned it, and the looping suspension points (a hold
// iteration, a rate-limited emitter tick) re-check that flag before
// continuing, per spec §4.5's cancellation rule; wait() does not (see
// sleepFull).
type Task struct {
	ctx          *injcontext.Context
	targetUinput string
	keySleepMs   int
	relRate      float64

	held        atomic.Bool
	releaseOnce sync.Once
	releasedCh  chan struct{}
	otherPress  chan struct{}

	// keysDown tracks symbols this task has pressed but not yet released,
	// so Run can still emit the implicit key-up edges a macro owes when
	// its program ends early (a step returning an error with keys down).
	mu      sync.Mutex
	keysDown []string
}

// NewTask builds a Task bound to ctx, ready to run one Program. held
// starts true: the triggering key is down at macro start.
func NewTask(ctx *injcontext.Context, targetUinput string, keySleepMs int, relRate float64) *Task {
	t := &Task{
		ctx:          ctx,
		targetUinput: targetUinput,
		keySleepMs:   keySleepMs,
		relRate:      relRate,
		releasedCh:   make(chan struct{}),
		otherPress:   make(chan struct{}, 8),
	}
	t.held.Store(true)
	if done := ctx.Done(); done != nil {
		go func() {
			select {
			case <-done:
				t.Release()
			case <-t.releasedCh:
			}
		}()
	}
	return t
}

// Held reports whether the triggering key is still considered down.
func (t *Task) Held() bool { return t.held.Load() }

// Release signals that the triggering key went up. Safe to call more than
// once; only the first call has effect.
func (t *Task) Release() {
	t.releaseOnce.Do(func() {
		t.held.Store(false)
		close(t.releasedCh)
	})
}

// NotifyOtherKeyPress signals that some other key was pressed while this
// task's triggering key was still held, consulted by if_single.
func (t *Task) NotifyOtherKeyPress() {
	select {
	case t.otherPress <- struct{}{}:
	default:
	}
}

// Run executes prog to completion, then emits any key-up edges this task
// still owes (e.g. an interrupted hold_keys), matching spec §4.5's
// "completion emits any pending key-up edges the macro implicitly owes".
func (t *Task) Run(prog *Program) error {
	err := prog.run(t)
	t.releaseAllPending()
	return err
}

func (p *Program) run(t *Task) error {
	for _, step := range p.Steps {
		if err := step.run(t); err != nil {
			return err
		}
	}
	return nil
}

func (t *Task) pressKey(code int) error {
	return t.ctx.Emit(t.targetUinput, keyEventType, uint16(code), 1)
}

func (t *Task) releaseKey(code int) error {
	return t.ctx.Emit(t.targetUinput, keyEventType, uint16(code), 0)
}

func (t *Task) trackDown(sym string) {
	t.mu.Lock()
	t.keysDown = append(t.keysDown, sym)
	t.mu.Unlock()
}

func (t *Task) untrack(sym string) {
	t.mu.Lock()
	for i, s := range t.keysDown {
		if s == sym {
			t.keysDown = append(t.keysDown[:i], t.keysDown[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
}

// releaseAllPending emits key-up for everything still tracked down,
// most recently pressed first (reverse order), then clears the tracking
// list.
func (t *Task) releaseAllPending() {
	t.mu.Lock()
	pending := t.keysDown
	t.keysDown = nil
	t.mu.Unlock()

	for i := len(pending) - 1; i >= 0; i-- {
		if code, ok := t.ctx.Symbols.Get(pending[i]); ok {
			_ = t.releaseKey(code)
		}
	}
}

// sleepFull sleeps for the whole of d. Returning early because the process
// is shutting down is NOT modeled here: per spec §4.5, wait() always
// completes its full duration even if the triggering key releases
// mid-wait (the "timer-accurate tail").
func sleepFull(d time.Duration) {
	if d <= 0 {
		return
	}
	time.Sleep(d)
}

// waitForReleaseOrTimeout blocks until the task is released or d elapses,
// returning true if release happened first.
func (t *Task) waitForReleaseOrTimeout(d time.Duration) bool {
	if d <= 0 {
		return !t.Held()
	}
	select {
	case <-t.releasedCh:
		return true
	case <-time.After(d):
		return false
	}
}
