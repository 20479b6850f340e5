package handler

import (
	"sync"

	"inputinject/internal/combination"
	"inputinject/internal/evcode"
	"inputinject/internal/macro"
	"inputinject/internal/model"
)

// CombinationHandler is the one handler per preset group that every
// Key/Macro-output mapping's constituent keys route through: it tracks
// combination satisfaction via the shared Resolver, emits the winning
// mapping's output, and carries out the synthetic-release bookkeeping
// spec §4.4 describes. A single-key mapping is simply a combination of
// length 1, so it flows through the same arbitration (spec §4.3 groups
// CombinationHandler and KeyHandler/MacroHandler as cooperating roles
// rather than mutually exclusive routing targets).
type CombinationHandler struct {
	resolver *combination.Resolver
	keys     *KeyHandler
	macros   *MacroHandler
	forward  *Forwarder
	panics   *PanicCounter

	mu    sync.Mutex
	tasks map[string]*macro.Task // keyed by InputCombination.Identity()
}

// NewCombinationHandler builds the one CombinationHandler for a preset
// group, bound to its Resolver and output leaves.
func NewCombinationHandler(resolver *combination.Resolver, keys *KeyHandler, macros *MacroHandler, forward *Forwarder) *CombinationHandler {
	return &CombinationHandler{
		resolver: resolver,
		keys:     keys,
		macros:   macros,
		forward:  forward,
		panics:   NewPanicCounter(),
		tasks:    make(map[string]*macro.Task),
	}
}

// Handle dispatches a press (value 1), release (value 0) or autorepeat
// (value 2, swallowed: a key that participates in any combination does
// not forward its autorepeat) transition through the Resolver.
func (h *CombinationHandler) Handle(ev evcode.Event) Verdict {
	cfg := model.InputConfig{Type: ev.Type, Code: ev.Code, OriginHash: ev.Origin}

	switch ev.Value {
	case 1:
		h.press(cfg)
	case 0:
		h.release(cfg)
	default:
		// autorepeat: the combination is already triggered or not; either
		// way there is nothing new to arbitrate.
	}
	return Consumed
}

func (h *CombinationHandler) press(cfg model.InputConfig) {
	out := h.resolver.Press(cfg)

	for _, subsumed := range out.Subsumed {
		h.emitRelease(subsumed)
	}

	h.notifyLiveTasks()

	if out.Winner == nil {
		return
	}

	for _, wc := range out.ForwardReleases {
		_ = h.forward.ReleaseKey(wc.Type, wc.Code)
	}

	h.emitPress(out.Winner)
}

// notifyLiveTasks signals every currently running macro task that some
// other key was just pressed, consulted by mod_tap/if_single (spec §4.5).
// Safe to call before emitPress: a task for cfg's own winning mapping (if
// any) is only added to h.tasks below, after this press has already
// resolved, so every task observed here belongs to an already-held,
// distinct mapping.
func (h *CombinationHandler) notifyLiveTasks() {
	h.mu.Lock()
	tasks := make([]*macro.Task, 0, len(h.tasks))
	for _, task := range h.tasks {
		tasks = append(tasks, task)
	}
	h.mu.Unlock()

	for _, task := range tasks {
		task.NotifyOtherKeyPress()
	}
}

func (h *CombinationHandler) release(cfg model.InputConfig) {
	out := h.resolver.Release(cfg)

	for _, released := range out.Released {
		h.emitRelease(released)
	}
	if out.Reactivated != nil {
		h.emitPress(out.Reactivated)
	}
}

func (h *CombinationHandler) emitPress(m *model.Mapping) {
	if !h.panics.Allow(m.InputCombination.Identity()) {
		return
	}
	switch m.Output {
	case model.OutputKey:
		_ = h.keys.Emit(m, 1)
	case model.OutputMacro:
		task := h.macros.Spawn(m)
		h.mu.Lock()
		h.tasks[m.InputCombination.Identity()] = task
		h.mu.Unlock()
	}
}

func (h *CombinationHandler) emitRelease(m *model.Mapping) {
	switch m.Output {
	case model.OutputKey:
		_ = h.keys.Emit(m, 0)
	case model.OutputMacro:
		id := m.InputCombination.Identity()
		h.mu.Lock()
		task := h.tasks[id]
		delete(h.tasks, id)
		h.mu.Unlock()
		h.macros.Stop(task)
	}
}
