// Package daemonconfig is this daemon's own process configuration -
// listen address, log level, config-dir default, autoload poll interval -
// kept separate from the JSON data the daemon manages at runtime
// (internal/presetstore). Adapted from
// nikoskalogridis-streamerbrainz/cmd/streamerbrainz/config.go: a
// YAML-decoded struct with KnownFields enforcement, a DefaultConfig
// baseline, and flag overrides applied on top.
package daemonconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's process-level configuration.
type Config struct {
	// ConfigDir is the default preset/autoload store location, overridable
	// by the -config-dir flag (spec §6 Environment).
	ConfigDir string `yaml:"config_dir"`

	// IPC is the control surface's listen configuration (internal/ipc).
	IPC IPCConfig `yaml:"ipc"`

	// Logging controls the daemon's slog verbosity (spec §6: "an
	// activation flag to turn on debug verbosity").
	Logging LoggingConfig `yaml:"logging"`

	// AutoloadPollMS is how often the daemon re-scans the device
	// inventory during Autoload, looking for groups named in config.json
	// that were not yet present.
	AutoloadPollMS int `yaml:"autoload_poll_ms"`
}

// IPCConfig is the control surface's listen address (internal/ipc, a
// gorilla/websocket server).
type IPCConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig mirrors streamerbrainz's own LoggingConfig shape.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// defaultConfigDirName is appended to the user config dir the standard
// library reports (spec §6: "a standard user config directory").
const defaultConfigDirName = "inputinject"

// DefaultConfig returns a fully-populated Config with defaults, the way
// streamerbrainz's own DefaultConfig seeds every section before a file or
// flags are applied on top.
func DefaultConfig() Config {
	dir := defaultConfigDirName
	if base, err := os.UserConfigDir(); err == nil {
		dir = filepath.Join(base, defaultConfigDirName)
	}
	return Config{
		ConfigDir: dir,
		IPC: IPCConfig{
			ListenAddr: "127.0.0.1:7912",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		AutoloadPollMS: 2000,
	}
}

// LoadFile reads and parses a YAML daemon config file, layering it over
// DefaultConfig. A missing path is not an error: it returns the defaults
// unchanged, matching this package's "config file is optional, flags and
// defaults still work without one" stance.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read daemon config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode daemon config yaml: %w", err)
	}
	if err := dec.Decode(new(struct{})); err == nil {
		return Config{}, errors.New("decode daemon config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides carries command-line overrides applied on top of a loaded
// Config; a nil pointer means "not set on the command line".
type FlagOverrides struct {
	ConfigDir  *string
	ListenAddr *string
	LogLevel   *string
	Verbose    *bool
}

// Apply merges non-nil overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.ConfigDir != nil {
		cfg.ConfigDir = *o.ConfigDir
	}
	if o.ListenAddr != nil {
		cfg.IPC.ListenAddr = *o.ListenAddr
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.Verbose != nil && *o.Verbose {
		cfg.Logging.Level = "debug"
	}
}

// Validate checks invariants, intended to run after defaults + file +
// flag overrides are all applied.
func (c *Config) Validate() error {
	if c.ConfigDir == "" {
		return errors.New("config_dir must not be empty")
	}
	if c.IPC.ListenAddr == "" {
		return errors.New("ipc.listen_addr must not be empty")
	}
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	if c.AutoloadPollMS <= 0 {
		return errors.New("autoload_poll_ms must be > 0")
	}
	return nil
}

// AutoloadPollInterval converts AutoloadPollMS to a time.Duration for
// internal/device.NewWatcher.
func (c *Config) AutoloadPollInterval() time.Duration {
	return time.Duration(c.AutoloadPollMS) * time.Millisecond
}
