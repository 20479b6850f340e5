// Package model implements the Preset & Mapping Model from spec §3: typed
// records describing input_combination -> output with the validation rules
// spec §3's Invariants section lists.
package model

import (
	"fmt"
	"sort"
	"strings"

	"inputinject/internal/evcode"
)

// OutputKind is the discriminant for Mapping.Output.
type OutputKind int

const (
	OutputKey OutputKind = iota
	OutputMacro
	OutputAnalogAxis
)

func (k OutputKind) String() string {
	switch k {
	case OutputKey:
		return "Key"
	case OutputMacro:
		return "Macro"
	case OutputAnalogAxis:
		return "AnalogAxis"
	default:
		return "Unknown"
	}
}

// InputConfig is one leg of an InputCombination (spec §3).
type InputConfig struct {
	Type   uint16
	Code   uint16
	// OriginHash optionally binds this config to one sub-device of the
	// group; empty means "any sub-device".
	OriginHash string
	// AnalogThreshold is absent (HasThreshold=false) or zero for an analog
	// axis config; nonzero to turn an axis into a threshold trigger. Its
	// unit depends on Type: percentage [-100,100] for ABS, raw speed for
	// REL, ignored for KEY.
	AnalogThreshold float64
	HasThreshold    bool
}

// DefinesAnalogInput reports whether this config is the (at most one)
// analog-axis leg of its combination.
func (c InputConfig) DefinesAnalogInput() bool {
	if c.Type == evcode.EV_KEY {
		return false
	}
	return !c.HasThreshold || c.AnalogThreshold == 0
}

// MatchHash identifies "the same physical signal" for combination-state
// tracking: type, code and origin together, value excluded.
func (c InputConfig) MatchHash() string {
	return fmt.Sprintf("%d:%d:%s", c.Type, c.Code, c.OriginHash)
}

// InputCombination is an ordered, non-empty list of InputConfigs that must
// all be simultaneously satisfied to trigger a mapping.
type InputCombination []InputConfig

// Identity returns a canonical key for "the same combination" regardless
// of the configs' order, used to enforce spec §3's "at most one mapping
// per InputCombination" invariant.
func (c InputCombination) Identity() string {
	parts := make([]string, len(c))
	for i, cfg := range c {
		thr := "-"
		if cfg.HasThreshold {
			thr = fmt.Sprintf("%g", cfg.AnalogThreshold)
		}
		parts[i] = fmt.Sprintf("%d:%d:%s:%s", cfg.Type, cfg.Code, cfg.OriginHash, thr)
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// AnalogConfigs returns the configs in the combination that define an
// analog axis (spec requires at most one).
func (c InputCombination) AnalogConfigs() []InputConfig {
	var out []InputConfig
	for _, cfg := range c {
		if cfg.DefinesAnalogInput() {
			out = append(out, cfg)
		}
	}
	return out
}

// UsesAnalogInput reports whether any leg of the combination is an analog
// axis (as opposed to a pure button/threshold combination).
func (c InputCombination) UsesAnalogInput() bool {
	return len(c.AnalogConfigs()) > 0
}

// ShapingParams are the analog-transformation knobs from spec §3.
type ShapingParams struct {
	Deadzone              float64
	Gain                  float64
	Expo                  float64
	RelRate               float64
	RelToAbsInputCutoff   float64
	ReleaseTimeoutMs       float64
}

// DefaultShapingParams mirrors the documented defaults (deadzone 0.1,
// gain 1, expo 0, rel_rate 60Hz, cutoff 2x, release_timeout 50ms).
func DefaultShapingParams() ShapingParams {
	return ShapingParams{
		Deadzone:            0.1,
		Gain:                1.0,
		Expo:                0,
		RelRate:             60,
		RelToAbsInputCutoff: 2,
		ReleaseTimeoutMs:    50,
	}
}

// MacroProgram is an opaque handle to a parsed macro AST. model never
// inspects it; internal/macro produces and consumes the concrete type so
// that model has no dependency on the macro package.
type MacroProgram interface{}

// Mapping is one (InputCombination -> output) record (spec §3).
type Mapping struct {
	InputCombination InputCombination
	TargetUinput     string

	Output OutputKind

	// Key/AnalogAxis output.
	OutputType uint16
	OutputCode uint16

	// Macro output: text is the source of truth, Program is the derived,
	// cached AST (nil until parsed by internal/macro).
	MacroText    string
	MacroProgram MacroProgram

	Shaping ShapingParams

	ReleaseCombinationKeys bool
	MacroKeySleepMs        int

	// ExclusivityGroup, when non-empty, names a set of axis mappings on
	// the same physical stick of which only one may drive output at a
	// time (supplemented feature, see SPEC_FULL.md).
	ExclusivityGroup string
}

// IsAxisMapping reports whether this mapping's output is an axis (ABS or
// REL), mirroring the source project's is_axis_mapping check.
func (m Mapping) IsAxisMapping() bool {
	return m.Output == OutputAnalogAxis
}

// Preset is an ordered list of Mappings bound to one device group.
type Preset struct {
	Name     string
	GroupKey string
	Mappings []Mapping
}
