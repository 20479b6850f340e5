// Command inputinjectd is the daemon binary: it owns the device
// inventory, the virtual output registry and the Injection Supervisor,
// autoloads presets named in config.json at startup and on hotplug, and
// serves the control surface (internal/ipc) until signalled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"inputinject/internal/applog"
	"inputinject/internal/daemonconfig"
	"inputinject/internal/device"
	"inputinject/internal/injcontext"
	"inputinject/internal/ipc"
	"inputinject/internal/presetstore"
	"inputinject/internal/supervisor"
	"inputinject/internal/symbols"
	"inputinject/internal/uinputdev"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "inputinjectd:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFlag = flag.String("config", "", "path to a daemon config YAML file")
		configDir  = flag.String("config-dir", "", "override the preset/autoload store directory")
		listenAddr = flag.String("listen", "", "override the control surface's listen address")
		logLevel   = flag.String("log-level", "", "error, warn, info or debug")
		verbose    = flag.Bool("v", false, "shorthand for -log-level=debug")
	)
	flag.Parse()

	cfg, err := daemonconfig.LoadFile(*configFlag)
	if err != nil {
		return fmt.Errorf("load daemon config: %w", err)
	}
	overrides := daemonconfig.FlagOverrides{Verbose: verbose}
	if *configDir != "" {
		overrides.ConfigDir = configDir
	}
	if *listenAddr != "" {
		overrides.ListenAddr = listenAddr
	}
	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}
	overrides.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid daemon config: %w", err)
	}

	level, err := applog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	log := applog.New(level)

	syms := symbols.New()
	syms.Populate()
	if overrides, err := presetstore.LoadXModmap(cfg.ConfigDir); err != nil {
		log.Warn("failed to load xmodmap overrides", "error", err)
	} else {
		syms.LoadXModmap(overrides)
	}

	outputs := uinputdev.New(log)
	if err := outputs.Open(); err != nil {
		return fmt.Errorf("open virtual outputs: %w", err)
	}
	defer outputs.CloseAll()

	vars := injcontext.NewStore()
	sup := supervisor.New(log, outputs, vars)

	d := &daemon{
		log:       log,
		configDir: cfg.ConfigDir,
		syms:      syms,
		sup:       sup,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d.autoloadKnownGroups()
	go d.watchForHotplugAutoload(ctx, cfg.AutoloadPollInterval())

	srv := ipc.NewServer(log, d)
	log.Info("control surface listening", "addr", cfg.IPC.ListenAddr)
	return srv.ListenAndServe(ctx, cfg.IPC.ListenAddr)
}

// daemon wires the Device Inventory, the preset store and the Injection
// Supervisor together behind ipc.Backend.
type daemon struct {
	log  *slog.Logger
	sup  *supervisor.Supervisor
	syms *symbols.Table

	mu        sync.Mutex
	configDir string
}

func (d *daemon) ListGroups() ([]ipc.GroupInfo, error) {
	groups, err := device.Scan()
	if err != nil {
		return nil, err
	}
	out := make([]ipc.GroupInfo, len(groups))
	for i, g := range groups {
		out[i] = ipc.GroupInfo{GroupKey: g.Key, HumanName: g.Name, SubDevicePaths: g.Resolve()}
	}
	return out, nil
}

func (d *daemon) StartInjection(groupKey, presetName string) error {
	groups, err := device.Scan()
	if err != nil {
		return err
	}
	var grp *device.Group
	for _, g := range groups {
		if g.Key == groupKey {
			grp = g
			break
		}
	}
	if grp == nil {
		return fmt.Errorf("no device group present for key %q", groupKey)
	}

	preset, err := presetstore.Load(d.configDirSnapshot(), grp.Name, groupKey, presetName, d.syms)
	if err != nil {
		return err
	}
	return d.sup.Start(groupKey, grp, preset)
}

func (d *daemon) StopInjection(groupKey string) error {
	return d.sup.Stop(groupKey)
}

func (d *daemon) Autoload(configDir string) error {
	if configDir != "" {
		d.SetConfigDir(configDir)
	}
	d.autoloadKnownGroups()
	return nil
}

func (d *daemon) SetConfigDir(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configDir = path
}

func (d *daemon) configDirSnapshot() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configDir
}

// autoloadKnownGroups starts an injection for every (group key -> preset
// name) pair in config.json whose group is currently present and not
// already running.
func (d *daemon) autoloadKnownGroups() {
	cfg, err := presetstore.LoadConfig(d.configDirSnapshot())
	if err != nil {
		d.log.Warn("autoload: failed to load config.json", "error", err)
		return
	}
	if len(cfg.Autoload) == 0 {
		return
	}

	groups, err := device.Scan()
	if err != nil {
		d.log.Warn("autoload: device scan failed", "error", err)
		return
	}
	for _, grp := range groups {
		d.autoloadGroup(grp)
	}
}

// watchForHotplugAutoload runs an internal/device.Watcher on interval and
// autoloads each newly appeared group named in config.json. The Watcher
// only reports appear/disappear; the autoload-table lookup happens here,
// since only the daemon knows config.json's autoload table.
func (d *daemon) watchForHotplugAutoload(ctx context.Context, interval time.Duration) {
	w := device.NewWatcher(interval)
	changes := make(chan device.Change, 8)
	go func() {
		if err := w.Run(ctx, changes); err != nil && ctx.Err() == nil {
			d.log.Warn("device watcher stopped", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			if change.Kind != device.Appeared {
				continue
			}
			d.autoloadGroup(change.Group)
		}
	}
}

// autoloadGroup starts an injection for grp if config.json names a
// preset for its key and nothing is already running for it.
func (d *daemon) autoloadGroup(grp *device.Group) {
	dir := d.configDirSnapshot()
	cfg, err := presetstore.LoadConfig(dir)
	if err != nil {
		d.log.Warn("autoload: failed to load config.json", "error", err)
		return
	}
	presetName, ok := cfg.Autoload[grp.Key]
	if !ok || d.sup.Status(grp.Key) == supervisor.Running {
		return
	}
	preset, err := presetstore.Load(dir, grp.Name, grp.Key, presetName, d.syms)
	if err != nil {
		d.log.Warn("autoload: failed to load preset", "group", grp.Key, "preset", presetName, "error", err)
		return
	}
	if err := d.sup.Start(grp.Key, grp, preset); err != nil {
		d.log.Warn("autoload: failed to start injection", "group", grp.Key, "error", err)
	}
}
