package device

import (
	"context"
	"time"
)

// ChangeKind discriminates a Watcher event.
type ChangeKind int

const (
	Appeared ChangeKind = iota
	Disappeared
)

// Change is one group appear/disappear notification (spec §4.8).
type Change struct {
	Kind  ChangeKind
	Group *Group
}

// Watcher polls the inventory on an interval and diffs successive scans,
// the same ticker-driven loop shape the teacher's daemon update loop
// uses for its own periodic refresh, generalized to device hotplug.
type Watcher struct {
	interval time.Duration
	known    map[string]*Group
}

// NewWatcher builds a Watcher with the given poll interval.
func NewWatcher(interval time.Duration) *Watcher {
	return &Watcher{interval: interval, known: map[string]*Group{}}
}

// Run blocks, sending a Change on out every time a group appears or
// disappears, until ctx is cancelled. The first scan seeds the known set
// without emitting "Appeared" for devices already present at startup.
func (w *Watcher) Run(ctx context.Context, out chan<- Change) error {
	groups, err := Scan()
	if err != nil && len(w.known) == 0 {
		// First scan found nothing: not fatal for the watcher, the
		// supervisor already rejected NoDevicesFound at start time.
	}
	for _, g := range groups {
		w.known[g.Key] = g
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx, out)
		}
	}
}

func (w *Watcher) poll(ctx context.Context, out chan<- Change) {
	groups, err := Scan()
	if err != nil {
		groups = nil
	}

	seen := make(map[string]*Group, len(groups))
	for _, g := range groups {
		seen[g.Key] = g
		if _, ok := w.known[g.Key]; !ok {
			w.known[g.Key] = g
			select {
			case out <- Change{Kind: Appeared, Group: g}:
			case <-ctx.Done():
				return
			}
		}
	}

	for key, g := range w.known {
		if _, ok := seen[key]; !ok {
			delete(w.known, key)
			select {
			case out <- Change{Kind: Disappeared, Group: g}:
			case <-ctx.Done():
				return
			}
		}
	}
}
