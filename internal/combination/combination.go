// Package combination implements the Combination Resolver (spec §4.4):
// longest-match-first arbitration between mappings that share input
// prefixes, plus the synthetic-release and release_combination_keys
// bookkeeping a CombinationHandler needs at press and release time.
package combination

import (
	"sort"

	"inputinject/internal/model"
)

// Registry holds every combination-shaped mapping of one preset, sorted
// by descending combination length, so a front-to-back scan meets the
// longest satisfied combination first.
type Registry struct {
	byLength []*model.Mapping
}

// NewRegistry indexes every mapping in mappings whose output is Key or
// Macro (the two output kinds a CombinationHandler drives; axis mappings
// go through the per-axis handlers instead and never compete here).
func NewRegistry(mappings []*model.Mapping) *Registry {
	r := &Registry{}
	for _, m := range mappings {
		if m.Output == model.OutputKey || m.Output == model.OutputMacro {
			r.byLength = append(r.byLength, m)
		}
	}
	sort.SliceStable(r.byLength, func(i, j int) bool {
		return len(r.byLength[i].InputCombination) > len(r.byLength[j].InputCombination)
	})
	return r
}

// satisfiedBy reports whether every config in m's combination has its
// MatchHash present (and true) in held.
func satisfiedBy(m *model.Mapping, held map[string]bool) bool {
	for _, cfg := range m.InputCombination {
		if !held[cfg.MatchHash()] {
			return false
		}
	}
	return true
}

// isProperSubsetKeys reports whether every key of sub is also a key of
// super, and sub is strictly shorter.
func isProperSubsetKeys(sub, super *model.Mapping) bool {
	if len(sub.InputCombination) >= len(super.InputCombination) {
		return false
	}
	superKeys := make(map[string]bool, len(super.InputCombination))
	for _, cfg := range super.InputCombination {
		superKeys[cfg.MatchHash()] = true
	}
	for _, cfg := range sub.InputCombination {
		if !superKeys[cfg.MatchHash()] {
			return false
		}
	}
	return true
}

// Resolver is the per-Context, per-group-key arbitration state: which
// physical keys are currently held, and which combinations are currently
// "triggered" (their output has been emitted and not yet released).
type Resolver struct {
	reg       *Registry
	held      map[string]bool
	triggered map[string]*model.Mapping // keyed by InputCombination.Identity()
}

// NewResolver builds a Resolver bound to reg, with no keys held.
func NewResolver(reg *Registry) *Resolver {
	return &Resolver{
		reg:       reg,
		held:      make(map[string]bool),
		triggered: make(map[string]*model.Mapping),
	}
}

// PressOutcome is what a CombinationHandler must do in response to one
// key-down transition, per spec §4.4 rules 1-3.
type PressOutcome struct {
	// Winner is the longest combination now fully satisfied, or nil if
	// none is (the pressed key is only a prefix of some combination).
	Winner *model.Mapping
	// Subsumed lists previously-triggered combinations whose key set is
	// a proper subset of Winner's: each needs a synthetic release of its
	// own output before Winner's output is emitted (rule 2).
	Subsumed []*model.Mapping
	// ForwardReleases are the non-terminal keys of Winner that must be
	// released on the forwarded device before Winner's output is
	// emitted, present only when Winner.ReleaseCombinationKeys is set
	// (rule 3). The trigger key (cfg) itself is excluded.
	ForwardReleases []model.InputConfig
}

// Press records cfg as held and returns the arbitration outcome.
func (r *Resolver) Press(cfg model.InputConfig) PressOutcome {
	r.held[cfg.MatchHash()] = true

	var winner *model.Mapping
	for _, m := range r.reg.byLength {
		if satisfiedBy(m, r.held) {
			winner = m
			break // byLength is sorted longest-first; first match wins.
		}
	}

	var out PressOutcome
	if winner == nil {
		return out
	}

	for id, t := range r.triggered {
		if t == winner {
			continue
		}
		if isProperSubsetKeys(t, winner) {
			out.Subsumed = append(out.Subsumed, t)
			delete(r.triggered, id)
		}
	}

	if winner.ReleaseCombinationKeys {
		for _, wc := range winner.InputCombination {
			if wc.MatchHash() == cfg.MatchHash() {
				continue
			}
			out.ForwardReleases = append(out.ForwardReleases, wc)
		}
	}

	r.triggered[winner.InputCombination.Identity()] = winner
	out.Winner = winner
	return out
}

// ReleaseOutcome is what a CombinationHandler must do in response to one
// key-up transition, per spec §4.4 rule 4.
type ReleaseOutcome struct {
	// Released are combinations that were triggered and contained the
	// released key: their output must be released.
	Released []*model.Mapping
	// Reactivated is the longest combination, if any, now fully
	// satisfied by the remaining held keys after Released combinations
	// were cleared.
	Reactivated *model.Mapping
}

// Release records cfg as no longer held and returns the arbitration
// outcome.
func (r *Resolver) Release(cfg model.InputConfig) ReleaseOutcome {
	delete(r.held, cfg.MatchHash())

	var out ReleaseOutcome
	for id, t := range r.triggered {
		if containsKey(t, cfg) {
			out.Released = append(out.Released, t)
			delete(r.triggered, id)
		}
	}

	for _, m := range r.reg.byLength {
		if !satisfiedBy(m, r.held) {
			continue
		}
		// The longest satisfied combination wins; if it is still
		// triggered there is nothing to reactivate.
		if _, already := r.triggered[m.InputCombination.Identity()]; !already {
			out.Reactivated = m
			r.triggered[m.InputCombination.Identity()] = m
		}
		break
	}

	return out
}

func containsKey(m *model.Mapping, cfg model.InputConfig) bool {
	for _, c := range m.InputCombination {
		if c.MatchHash() == cfg.MatchHash() {
			return true
		}
	}
	return false
}
