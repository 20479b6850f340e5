// Package presetstore implements the on-disk layout from spec §6:
// config.json (autoload pairs, schema version), presets/<group>/<preset>.json
// (an ordered array of mapping records), and xmodmap.json (symbol-name
// overrides harvested from the host keyboard layout). The wire format is
// explicitly JSON-shaped and schema-stable per spec §6, so this package
// uses encoding/json rather than reaching for a third-party codec.
package presetstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"inputinject/internal/evcode"
	"inputinject/internal/everr"
	"inputinject/internal/model"
	"inputinject/internal/symbols"
)

// schemaVersion is config.json's current "version" field. spec §1 places
// migrating between on-disk format versions out of scope: this package
// reads the field into ConfigFile.Version and writes it back as is; it
// never compares it with schemaVersion and never rewrites an older one.
const schemaVersion = 1

// ConfigFile is config.json: the daemon-wide autoload table and schema
// version (spec §6).
type ConfigFile struct {
	Version  int               `json:"version"`
	Autoload map[string]string `json:"autoload"` // device/group name -> preset name
}

// LoadConfig reads <configDir>/config.json. A missing file is not an
// error: it returns a fresh ConfigFile at the current schema version, the
// same "absent config is an empty config" behavior streamerbrainz's own
// LoadConfigFile gives a caller that passes an empty path.
func LoadConfig(configDir string) (*ConfigFile, error) {
	path := filepath.Join(configDir, "config.json")
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &ConfigFile{Version: schemaVersion, Autoload: map[string]string{}}, nil
	}
	if err != nil {
		return nil, everr.Wrap(everr.TransientIO, err, fmt.Sprintf("read %s", path))
	}

	var cfg ConfigFile
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, everr.Wrap(everr.InvalidPreset, err, fmt.Sprintf("parse %s", path))
	}
	if cfg.Autoload == nil {
		cfg.Autoload = map[string]string{}
	}
	return &cfg, nil
}

// SaveConfig writes cfg to <configDir>/config.json, creating configDir if
// needed.
func SaveConfig(configDir string, cfg *ConfigFile) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return everr.Wrap(everr.TransientIO, err, "mkdir config dir")
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return everr.Wrap(everr.Fatal, err, "marshal config.json")
	}
	path := filepath.Join(configDir, "config.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return everr.Wrap(everr.TransientIO, err, fmt.Sprintf("write %s", path))
	}
	return nil
}

// LoadXModmap reads <configDir>/xmodmap.json, a flat symbol-name to
// keycode map suitable for symbols.Table.LoadXModmap. A missing file
// yields an empty map rather than an error: most groups have no
// layout-specific overrides.
func LoadXModmap(configDir string) (map[string]int, error) {
	path := filepath.Join(configDir, "xmodmap.json")
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, everr.Wrap(everr.TransientIO, err, fmt.Sprintf("read %s", path))
	}

	var overrides map[string]int
	if err := json.Unmarshal(b, &overrides); err != nil {
		return nil, everr.Wrap(everr.InvalidPreset, err, fmt.Sprintf("parse %s", path))
	}
	return overrides, nil
}

// SaveXModmap writes overrides to <configDir>/xmodmap.json.
func SaveXModmap(configDir string, overrides map[string]int) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return everr.Wrap(everr.TransientIO, err, "mkdir config dir")
	}
	b, err := json.MarshalIndent(overrides, "", "  ")
	if err != nil {
		return everr.Wrap(everr.Fatal, err, "marshal xmodmap.json")
	}
	path := filepath.Join(configDir, "xmodmap.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return everr.Wrap(everr.TransientIO, err, fmt.Sprintf("write %s", path))
	}
	return nil
}

// presetPath returns <configDir>/presets/<groupName>/<presetName>.json.
func presetPath(configDir, groupName, presetName string) string {
	return filepath.Join(configDir, "presets", groupName, presetName+".json")
}

// inputConfigRecord is the wire shape of one model.InputConfig leg (spec
// §6: "input_combination (array of InputConfig objects with type, code,
// optional origin_hash, optional analog_threshold)").
type inputConfigRecord struct {
	Type            uint16   `json:"type"`
	Code            uint16   `json:"code"`
	OriginHash      string   `json:"origin_hash,omitempty"`
	AnalogThreshold *float64 `json:"analog_threshold,omitempty"`
}

// mappingRecord is one array element of a preset file (spec §6). Pointer
// fields distinguish "absent" from an explicit zero value - load-bearing
// for OutputCode, since ABS_X itself is code 0.
type mappingRecord struct {
	InputCombination []inputConfigRecord `json:"input_combination"`
	TargetUinput      string             `json:"target_uinput"`
	OutputKind        string             `json:"output_kind"`
	OutputSymbol      string             `json:"output_symbol,omitempty"`
	OutputType        *uint16            `json:"output_type,omitempty"`
	OutputCode        *uint16            `json:"output_code,omitempty"`

	Deadzone            *float64 `json:"deadzone,omitempty"`
	Gain                *float64 `json:"gain,omitempty"`
	Expo                *float64 `json:"expo,omitempty"`
	RelRate             *float64 `json:"rel_rate,omitempty"`
	RelToAbsInputCutoff *float64 `json:"rel_to_abs_input_cutoff,omitempty"`
	ReleaseTimeoutMs    *float64 `json:"release_timeout_ms,omitempty"`

	ReleaseCombinationKeys *bool  `json:"release_combination_keys,omitempty"`
	MacroKeySleepMs        int    `json:"macro_key_sleep_ms,omitempty"`
	ExclusivityGroup       string `json:"exclusivity_group,omitempty"`
}

// Load reads and decodes one preset file into a *model.Preset. It does
// not validate or parse macro text; call model.Validate on the result.
// syms resolves output_symbol entries against the group's effective
// symbol table (base table plus any xmodmap overrides already loaded).
func Load(configDir, groupName, groupKey, presetName string, syms *symbols.Table) (*model.Preset, error) {
	path := presetPath(configDir, groupName, presetName)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, everr.Wrap(everr.InvalidPreset, err, fmt.Sprintf("read %s", path))
	}

	var records []mappingRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, everr.Wrap(everr.InvalidPreset, err, fmt.Sprintf("parse %s", path))
	}

	preset := &model.Preset{Name: presetName, GroupKey: groupKey}
	for i, rec := range records {
		m, err := recordToMapping(rec, syms)
		if err != nil {
			return nil, everr.AtIndex(everr.InvalidPreset, i, err.Error())
		}
		preset.Mappings = append(preset.Mappings, m)
	}
	return preset, nil
}

// Save writes preset to <configDir>/presets/<preset.GroupKey's group
// name>/<preset.Name>.json, creating directories as needed.
func Save(configDir, groupName string, preset *model.Preset, syms *symbols.Table) error {
	path := presetPath(configDir, groupName, preset.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return everr.Wrap(everr.TransientIO, err, "mkdir preset dir")
	}

	records := make([]mappingRecord, len(preset.Mappings))
	for i, m := range preset.Mappings {
		records[i] = mappingToRecord(m, syms)
	}

	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return everr.Wrap(everr.Fatal, err, "marshal preset")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return everr.Wrap(everr.TransientIO, err, fmt.Sprintf("write %s", path))
	}
	return nil
}

func recordToMapping(rec mappingRecord, syms *symbols.Table) (model.Mapping, error) {
	combo := make(model.InputCombination, len(rec.InputCombination))
	for i, c := range rec.InputCombination {
		combo[i] = model.InputConfig{
			Type:            c.Type,
			Code:            c.Code,
			OriginHash:      c.OriginHash,
			HasThreshold:    c.AnalogThreshold != nil,
			AnalogThreshold: derefFloat(c.AnalogThreshold),
		}
	}

	m := model.Mapping{
		InputCombination:       combo,
		TargetUinput:           rec.TargetUinput,
		ReleaseCombinationKeys: true,
		MacroKeySleepMs:        rec.MacroKeySleepMs,
		ExclusivityGroup:       rec.ExclusivityGroup,
		Shaping:                model.DefaultShapingParams(),
	}
	if rec.ReleaseCombinationKeys != nil {
		m.ReleaseCombinationKeys = *rec.ReleaseCombinationKeys
	}
	applyShapingOverrides(&m.Shaping, rec)

	switch rec.OutputKind {
	case "Key":
		m.Output = model.OutputKey
	case "Macro":
		m.Output = model.OutputMacro
	case "AnalogAxis":
		m.Output = model.OutputAnalogAxis
	default:
		return model.Mapping{}, fmt.Errorf("unknown output_kind %q", rec.OutputKind)
	}

	if m.Output == model.OutputMacro {
		m.MacroText = rec.OutputSymbol
		return m, nil
	}

	if rec.OutputType != nil && rec.OutputCode != nil {
		m.OutputType = *rec.OutputType
		m.OutputCode = *rec.OutputCode
		return m, nil
	}
	if m.Output == model.OutputKey && rec.OutputSymbol != "" {
		code, ok := syms.Get(rec.OutputSymbol)
		if !ok {
			return model.Mapping{}, fmt.Errorf("unknown output symbol %q", rec.OutputSymbol)
		}
		m.OutputType = evcode.EV_KEY
		m.OutputCode = uint16(code)
		return m, nil
	}
	return model.Mapping{}, fmt.Errorf("mapping has neither output_symbol nor output_type/output_code")
}

func mappingToRecord(m model.Mapping, syms *symbols.Table) mappingRecord {
	rec := mappingRecord{
		TargetUinput:           m.TargetUinput,
		ReleaseCombinationKeys: boolPtr(m.ReleaseCombinationKeys),
		MacroKeySleepMs:        m.MacroKeySleepMs,
		ExclusivityGroup:       m.ExclusivityGroup,
	}
	rec.InputCombination = make([]inputConfigRecord, len(m.InputCombination))
	for i, c := range m.InputCombination {
		rec.InputCombination[i] = inputConfigRecord{
			Type:       c.Type,
			Code:       c.Code,
			OriginHash: c.OriginHash,
		}
		if c.HasThreshold {
			rec.InputCombination[i].AnalogThreshold = floatPtr(c.AnalogThreshold)
		}
	}

	switch m.Output {
	case model.OutputKey:
		rec.OutputKind = "Key"
		if name := syms.Name(int(m.OutputCode)); name != "" && m.OutputType == evcode.EV_KEY {
			rec.OutputSymbol = name
		} else {
			rec.OutputType = uint16Ptr(m.OutputType)
			rec.OutputCode = uint16Ptr(m.OutputCode)
		}
	case model.OutputMacro:
		rec.OutputKind = "Macro"
		rec.OutputSymbol = m.MacroText
	case model.OutputAnalogAxis:
		rec.OutputKind = "AnalogAxis"
		rec.OutputType = uint16Ptr(m.OutputType)
		rec.OutputCode = uint16Ptr(m.OutputCode)
	}

	def := model.DefaultShapingParams()
	if m.Shaping.Deadzone != def.Deadzone {
		rec.Deadzone = floatPtr(m.Shaping.Deadzone)
	}
	if m.Shaping.Gain != def.Gain {
		rec.Gain = floatPtr(m.Shaping.Gain)
	}
	if m.Shaping.Expo != def.Expo {
		rec.Expo = floatPtr(m.Shaping.Expo)
	}
	if m.Shaping.RelRate != def.RelRate {
		rec.RelRate = floatPtr(m.Shaping.RelRate)
	}
	if m.Shaping.RelToAbsInputCutoff != def.RelToAbsInputCutoff {
		rec.RelToAbsInputCutoff = floatPtr(m.Shaping.RelToAbsInputCutoff)
	}
	if m.Shaping.ReleaseTimeoutMs != def.ReleaseTimeoutMs {
		rec.ReleaseTimeoutMs = floatPtr(m.Shaping.ReleaseTimeoutMs)
	}

	return rec
}

func applyShapingOverrides(s *model.ShapingParams, rec mappingRecord) {
	if rec.Deadzone != nil {
		s.Deadzone = *rec.Deadzone
	}
	if rec.Gain != nil {
		s.Gain = *rec.Gain
	}
	if rec.Expo != nil {
		s.Expo = *rec.Expo
	}
	if rec.RelRate != nil {
		s.RelRate = *rec.RelRate
	}
	if rec.RelToAbsInputCutoff != nil {
		s.RelToAbsInputCutoff = *rec.RelToAbsInputCutoff
	}
	if rec.ReleaseTimeoutMs != nil {
		s.ReleaseTimeoutMs = *rec.ReleaseTimeoutMs
	}
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }
func uint16Ptr(v uint16) *uint16  { return &v }
