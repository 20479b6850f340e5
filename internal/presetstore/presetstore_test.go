package presetstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputinject/internal/evcode"
	"inputinject/internal/model"
	"inputinject/internal/symbols"
)

func testSymbols() *symbols.Table {
	syms := symbols.New()
	syms.Populate()
	return syms
}

func TestLoadConfigMissingFileReturnsEmptyDefault(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, cfg.Version)
	assert.Empty(t, cfg.Autoload)
}

func TestSaveThenLoadConfigRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := &ConfigFile{Version: schemaVersion, Autoload: map[string]string{"my-keyboard": "default"}}
	require.NoError(t, SaveConfig(dir, cfg))

	got, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.Autoload, got.Autoload)
}

func TestLoadXModmapMissingFileReturnsEmptyMap(t *testing.T) {
	overrides, err := LoadXModmap(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestSaveThenLoadXModmapRoundTrips(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveXModmap(dir, map[string]int{"KEY_CUSTOM": 250}))

	got, err := LoadXModmap(dir)
	require.NoError(t, err)
	assert.Equal(t, 250, got["KEY_CUSTOM"])
}

func TestSaveThenLoadPresetRoundTripsKeyMapping(t *testing.T) {
	dir := t.TempDir()
	syms := testSymbols()

	preset := &model.Preset{
		Name:     "default",
		GroupKey: "group-1",
		Mappings: []model.Mapping{
			{
				InputCombination: model.InputCombination{{Type: evcode.EV_KEY, Code: 30}},
				TargetUinput:     "keyboard",
				Output:           model.OutputKey,
				OutputType:       evcode.EV_KEY,
				OutputCode:       uint16(syms.MustGet("KEY_B")),
				Shaping:          model.DefaultShapingParams(),
				ReleaseCombinationKeys: true,
			},
		},
	}

	require.NoError(t, Save(dir, "my-keyboard", preset, syms))
	require.FileExists(t, filepath.Join(dir, "presets", "my-keyboard", "default.json"))

	got, err := Load(dir, "my-keyboard", "group-1", "default", syms)
	require.NoError(t, err)
	require.Len(t, got.Mappings, 1)
	assert.Equal(t, model.OutputKey, got.Mappings[0].Output)
	assert.Equal(t, uint16(syms.MustGet("KEY_B")), got.Mappings[0].OutputCode)
	assert.Equal(t, "keyboard", got.Mappings[0].TargetUinput)
}

func TestSaveThenLoadPresetRoundTripsMacroAndAxis(t *testing.T) {
	dir := t.TempDir()
	syms := testSymbols()

	preset := &model.Preset{
		Name:     "default",
		GroupKey: "group-1",
		Mappings: []model.Mapping{
			{
				InputCombination: model.InputCombination{{Type: evcode.EV_KEY, Code: 31}},
				TargetUinput:     "keyboard",
				Output:           model.OutputMacro,
				MacroText:        "key(KEY_A).key(KEY_B)",
				Shaping:          model.DefaultShapingParams(),
			},
			{
				InputCombination: model.InputCombination{{Type: evcode.EV_ABS, Code: evcode.ABS_X}},
				TargetUinput:     "gamepad",
				Output:           model.OutputAnalogAxis,
				OutputType:       evcode.EV_ABS,
				OutputCode:       evcode.ABS_X,
				Shaping:          model.ShapingParams{Deadzone: 0.2, Gain: 2, Expo: 0, RelRate: 60, RelToAbsInputCutoff: 2, ReleaseTimeoutMs: 50},
			},
		},
	}

	require.NoError(t, Save(dir, "gamepad-group", preset, syms))
	got, err := Load(dir, "gamepad-group", "group-1", "default", syms)
	require.NoError(t, err)
	require.Len(t, got.Mappings, 2)

	assert.Equal(t, model.OutputMacro, got.Mappings[0].Output)
	assert.Equal(t, "key(KEY_A).key(KEY_B)", got.Mappings[0].MacroText)

	assert.Equal(t, model.OutputAnalogAxis, got.Mappings[1].Output)
	assert.Equal(t, evcode.ABS_X, got.Mappings[1].OutputCode)
	assert.Equal(t, 0.2, got.Mappings[1].Shaping.Deadzone)
	assert.Equal(t, 2.0, got.Mappings[1].Shaping.Gain)
}

func TestLoadRejectsUnknownOutputKind(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, "g", &model.Preset{Name: "p"}, testSymbols()))
	// Overwrite with a malformed record.
	path := filepath.Join(dir, "presets", "g", "p.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"input_combination":[],"target_uinput":"keyboard","output_kind":"Bogus"}]`), 0o644))

	_, err := Load(dir, "g", "k", "p", testSymbols())
	require.Error(t, err)
}
