// Package supervisor implements the Injection Supervisor (spec §4.1): it
// owns the start/stop/status lifecycle for one named device group's
// injection, wiring the Device Inventory, the Event Producer, the Handler
// Graph and the per-injection virtual outputs together, and bounding how
// long a stop waits for in-flight handlers to settle.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"inputinject/internal/device"
	"inputinject/internal/everr"
	"inputinject/internal/handler"
	"inputinject/internal/injcontext"
	"inputinject/internal/macro"
	"inputinject/internal/model"
	"inputinject/internal/producer"
	"inputinject/internal/symbols"
	"inputinject/internal/uinputdev"
)

// Status is an injection's lifecycle state.
type Status int

const (
	Stopped Status = iota
	Starting
	Running
	Stopping
	Failed
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// drainGrace is added atop the largest release_timeout among a preset's
// mappings when bounding Stop's wait for in-flight handlers (spec §4.1).
const drainGrace = 100 * time.Millisecond

// watchPollInterval is how often a running injection's device Watcher
// re-scans for its group disappearing out from under it.
const watchPollInterval = 2 * time.Second

// injection is one running (or failed, or stopping) group's state.
type injection struct {
	groupKey string
	preset   *model.Preset
	grp      *device.Group

	ctx   *injcontext.Context
	pool  *producer.Pool
	graph *handler.Graph

	cancel context.CancelFunc
	g      *errgroup.Group

	mu     sync.Mutex
	status Status
	reason error
}

// Supervisor coordinates every currently running injection in the
// daemon process. One Supervisor is shared process-wide; Vars is the
// Shared Variable Store every injection's Context reads and writes.
type Supervisor struct {
	log     *slog.Logger
	outputs *uinputdev.Registry
	vars    *injcontext.Store

	mu         sync.Mutex
	injections map[string]*injection
}

// New builds a Supervisor. outputs must already have had Open called so
// the fixed keyboard/mouse/gamepad/stylus uinputs exist.
func New(log *slog.Logger, outputs *uinputdev.Registry, vars *injcontext.Store) *Supervisor {
	return &Supervisor{
		log:        log,
		outputs:    outputs,
		vars:       vars,
		injections: make(map[string]*injection),
	}
}

// parseMacro adapts internal/macro's entrypoint to model.MacroValidator.
func parseMacro(source string) (model.MacroProgram, error) {
	prog, err := macro.Parse(source)
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// Start validates preset against grp's capabilities, opens this
// injection's forwarded/mapped virtual outputs, builds the Handler Graph,
// grabs every sub-device in grp, and begins routing its events. Returns
// an *everr.Error of Kind InvalidPreset, PermissionDenied or
// NoDevicesFound on failure; the group's prior state is left untouched.
func (s *Supervisor) Start(groupKey string, grp *device.Group, preset *model.Preset) error {
	s.mu.Lock()
	existing, ok := s.injections[groupKey]
	s.mu.Unlock()
	if ok && (existing.Status() == Running || existing.Status() == Starting) {
		return everr.Newf(everr.InvalidPreset, "injection already running for group %q", groupKey)
	}

	report, err := model.Validate(preset, s.outputs, parseMacro)
	if err != nil {
		return err
	}
	for _, d := range report.DisabledMappings {
		s.log.Warn("mapping disabled during validation",
			"group", groupKey, "index", d.Index, "reason", d.Reason)
	}

	forwarded, mapped, err := s.outputs.OpenInjectionDevices(groupKey)
	if err != nil {
		return err
	}

	syms := symbols.New()
	syms.Populate()

	vars := s.vars
	if vars == nil {
		vars = injcontext.NewStore()
	}
	ctx := injcontext.New(preset, syms, s.outputs, vars, forwarded.Name, mapped.Name)

	graph := handler.BuildGraph(preset, grp, ctx, s.outputs, s.log)
	pool := producer.NewPool(s.log, graph)
	ctx.LEDs = pool

	if err := pool.Open(grp); err != nil {
		s.outputs.CloseInjectionDevices(groupKey)
		return err
	}

	gctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(gctx)
	ctx.SetDone(gctx.Done())

	inj := &injection{
		groupKey: groupKey,
		preset:   preset,
		grp:      grp,
		ctx:      ctx,
		pool:     pool,
		graph:    graph,
		cancel:   cancel,
		g:        g,
		status:   Starting,
	}

	g.Go(func() error {
		return pool.Run()
	})
	g.Go(func() error {
		return watchGroup(gctx, grp, s.log)
	})

	s.mu.Lock()
	s.injections[groupKey] = inj
	s.mu.Unlock()

	inj.setStatus(Running, nil)

	go func() {
		err := g.Wait()
		inj.setStatus(statusAfterWait(err), err)
	}()

	return nil
}

func statusAfterWait(err error) Status {
	if err != nil && err != context.Canceled {
		return Failed
	}
	return Stopped
}

// watchGroup re-scans the device inventory and returns once grp's key no
// longer appears, so a yanked physical device fails its injection's
// errgroup instead of spinning against a dead producer forever.
func watchGroup(ctx context.Context, grp *device.Group, log *slog.Logger) error {
	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			groups, err := device.Scan()
			if err != nil {
				continue
			}
			present := false
			for _, g := range groups {
				if g.Key == grp.Key {
					present = true
					break
				}
			}
			if !present {
				log.Warn("injection's device group disappeared", "group", grp.Key)
				return everr.New(everr.NoDevicesFound, fmt.Sprintf("group %q disappeared", grp.Key))
			}
		}
	}
}

// Stop ungrabs every sub-device, releases the injection's virtual
// outputs, and waits for in-flight handlers (held keys, running macros,
// axis-centering timers) to settle, bounded by the longest
// release_timeout among preset's mappings plus a fixed grace period.
func (s *Supervisor) Stop(groupKey string) error {
	s.mu.Lock()
	inj, ok := s.injections[groupKey]
	s.mu.Unlock()
	if !ok {
		return everr.Newf(everr.InvalidPreset, "no injection running for group %q", groupKey)
	}

	inj.setStatus(Stopping, nil)

	inj.pool.Stop()
	inj.pool.Close()
	inj.cancel()
	_ = inj.g.Wait()

	s.drain(inj)

	s.outputs.CloseInjectionDevices(groupKey)

	s.mu.Lock()
	delete(s.injections, groupKey)
	s.mu.Unlock()

	inj.setStatus(Stopped, nil)
	return nil
}

// drain polls Context.ActiveHandlers until it settles at zero, bounded by
// the preset's largest release_timeout plus drainGrace (spec §4.1).
func (s *Supervisor) drain(inj *injection) {
	bound := drainGrace
	for i := range inj.preset.Mappings {
		ms := time.Duration(inj.preset.Mappings[i].Shaping.ReleaseTimeoutMs) * time.Millisecond
		if ms > bound-drainGrace {
			bound = ms + drainGrace
		}
	}

	deadline := time.Now().Add(bound)
	for time.Now().Before(deadline) {
		if inj.ctx.ActiveHandlers() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n := inj.ctx.ActiveHandlers(); n > 0 {
		s.log.Warn("stop deadline reached with handlers still active", "group", inj.groupKey, "count", n)
	}
}

// Status reports a group's current injection state, or Stopped if none
// is tracked.
func (s *Supervisor) Status(groupKey string) Status {
	s.mu.Lock()
	inj, ok := s.injections[groupKey]
	s.mu.Unlock()
	if !ok {
		return Stopped
	}
	return inj.Status()
}

// Reason reports the failure cause for a Failed injection, nil otherwise.
func (s *Supervisor) Reason(groupKey string) error {
	s.mu.Lock()
	inj, ok := s.injections[groupKey]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return inj.Reason()
}

// Running lists the group keys of every injection not in Stopped state.
func (s *Supervisor) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.injections))
	for k, inj := range s.injections {
		if inj.Status() == Stopped {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

func (i *injection) setStatus(st Status, reason error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status = st
	i.reason = reason
}

func (i *injection) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

func (i *injection) Reason() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.reason
}
