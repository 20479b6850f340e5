package daemonconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigPassesValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileMissingPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().IPC.ListenAddr, cfg.IPC.ListenAddr)
}

func TestLoadFileEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFileOverridesOnlySpecifiedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, DefaultConfig().IPC.ListenAddr, cfg.IPC.ListenAddr)
}

func TestLoadFileRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bogus_field: 1\n"), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestFlagOverridesApply(t *testing.T) {
	cfg := DefaultConfig()
	verbose := true
	listenAddr := "0.0.0.0:9000"
	o := FlagOverrides{ListenAddr: &listenAddr, Verbose: &verbose}
	o.Apply(&cfg)

	assert.Equal(t, "0.0.0.0:9000", cfg.IPC.ListenAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateRejectsEmptyFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfigDir = ""
	assert.Error(t, cfg.Validate())
}

func TestAutoloadPollIntervalConverts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoloadPollMS = 500
	assert.Equal(t, 500_000_000, int(cfg.AutoloadPollInterval()))
}
