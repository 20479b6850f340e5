package handler

import (
	"sync"

	"inputinject/internal/model"
)

// ExclusivityArbiter implements the supplemented exclusivity-group
// feature (SPEC_FULL.md): of several axis mappings sharing a named
// group (typically several mappings driving the same physical stick
// toward different outputs), only one may drive output at a time. A
// mapping claims its group the first time it produces a nonzero shaped
// sample and releases it once its sample returns to zero, so a quiet
// mapping never blocks a moving one from claiming the group.
type ExclusivityArbiter struct {
	mu    sync.Mutex
	owner map[string]*model.Mapping
}

// NewExclusivityArbiter returns an arbiter with no groups claimed.
func NewExclusivityArbiter() *ExclusivityArbiter {
	return &ExclusivityArbiter{owner: make(map[string]*model.Mapping)}
}

// TryClaim reports whether m may emit for group right now. An empty
// group name means "not exclusive": always allowed.
func (e *ExclusivityArbiter) TryClaim(group string, m *model.Mapping) bool {
	if group == "" {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, held := e.owner[group]; held && cur != m {
		return false
	}
	e.owner[group] = m
	return true
}

// Release gives up m's claim on group, if it currently holds it.
func (e *ExclusivityArbiter) Release(group string, m *model.Mapping) {
	if group == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.owner[group] == m {
		delete(e.owner, group)
	}
}
