package handler

import (
	"sync"
	"time"
)

// panicWindow and panicMaxFires bound a mapping re-triggering its own
// input in a tight loop (e.g. a macro whose output key is also its
// trigger): more than panicMaxFires emissions within panicWindow disables
// that mapping for the rest of the injection.
const (
	panicWindow   = 500 * time.Millisecond
	panicMaxFires = 20
)

// PanicCounter is the per-injection guard described above, adapted from
// the original project's panic_counter: a small sliding-window firing
// count per mapping identity, tripping once and staying tripped.
type PanicCounter struct {
	mu       sync.Mutex
	fires    map[string][]time.Time
	disabled map[string]bool
}

// NewPanicCounter builds an empty PanicCounter.
func NewPanicCounter() *PanicCounter {
	return &PanicCounter{
		fires:    make(map[string][]time.Time),
		disabled: make(map[string]bool),
	}
}

// Allow records one emission for id and reports whether it may proceed.
// Once id trips the limit it is permanently disabled for this counter's
// lifetime (one injection run).
func (p *PanicCounter) Allow(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disabled[id] {
		return false
	}

	now := time.Now()
	cutoff := now.Add(-panicWindow)
	kept := p.fires[id][:0]
	for _, t := range p.fires[id] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	p.fires[id] = kept

	if len(kept) > panicMaxFires {
		p.disabled[id] = true
		return false
	}
	return true
}

// Disabled reports whether id has tripped the limit.
func (p *PanicCounter) Disabled(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disabled[id]
}
