package model

import (
	"fmt"

	"inputinject/internal/evcode"
	"inputinject/internal/everr"
)

// CapabilityChecker reports whether a named virtual output advertises a
// given (type, code) capability. internal/uinputdev's Registry implements
// this; model depends only on the interface so it never imports the
// uinput layer.
type CapabilityChecker interface {
	HasCapability(uinputName string, evType, code uint16) bool
	KnownUinput(name string) bool
}

// MacroValidator parses macro source at validation time, returning the
// cached AST to store on the mapping or a MacroParse error. internal/macro
// provides the concrete implementation; model stays dependency-free.
type MacroValidator func(source string) (MacroProgram, error)

// ValidationReport collects the outcome of validating a Preset: mappings
// disabled because their macro text failed to parse are recorded here.
// The failures that reject the whole preset instead are listed on Validate.
type ValidationReport struct {
	DisabledMappings []DisabledMapping
}

// DisabledMapping records a mapping that failed validation and was
// dropped from the live preset rather than rejecting the whole preset.
type DisabledMapping struct {
	Index  int
	Reason error
}

// Validate checks every invariant from spec §3 and parses every macro
// mapping's text. It mutates m in place: mappings with output kind Macro
// get m.Mappings[i].MacroProgram populated on success.
//
// Returns a hard error (*everr.Error with Kind=InvalidPreset) for an empty
// preset, a duplicate combination, any single mapping that breaks a
// structural invariant (empty or multi-analog combination, out-of-range
// threshold or shaping parameter, unknown target_uinput, output type or
// capability mismatch), or a case where every mapping failed to parse. Per-mapping MacroParse failures are
// reported in the returned ValidationReport and the mapping is excluded
// from the live set without rejecting the rest of the preset (spec §7).
func Validate(p *Preset, caps CapabilityChecker, parseMacro MacroValidator) (ValidationReport, error) {
	var report ValidationReport

	if len(p.Mappings) == 0 {
		return report, everr.New(everr.InvalidPreset, "preset has no mappings")
	}

	seen := make(map[string]int)
	live := make([]Mapping, 0, len(p.Mappings))

	for i := range p.Mappings {
		mp := &p.Mappings[i]

		if err := validateStructure(mp, caps); err != nil {
			return report, everr.AtIndex(everr.InvalidPreset, i, err.Error())
		}

		id := mp.InputCombination.Identity()
		if prev, dup := seen[id]; dup {
			return report, everr.AtIndex(everr.InvalidPreset, i,
				fmt.Sprintf("duplicate combination, already mapped at index %d", prev))
		}
		seen[id] = i

		if mp.Output == OutputMacro {
			prog, err := parseMacro(mp.MacroText)
			if err != nil {
				report.DisabledMappings = append(report.DisabledMappings, DisabledMapping{
					Index:  i,
					Reason: everr.AtIndex(everr.MacroParse, i, err.Error()),
				})
				continue
			}
			mp.MacroProgram = prog
		}

		live = append(live, *mp)
	}

	if len(live) == 0 {
		return report, everr.New(everr.InvalidPreset, "all mappings failed to parse")
	}

	p.Mappings = live
	return report, nil
}

func validateStructure(m *Mapping, caps CapabilityChecker) error {
	if len(m.InputCombination) == 0 {
		return fmt.Errorf("empty input combination")
	}

	analog := m.InputCombination.AnalogConfigs()
	if len(analog) > 1 {
		return fmt.Errorf("combination has %d analog-axis configs, at most 1 allowed", len(analog))
	}

	for _, cfg := range m.InputCombination {
		if cfg.Type == evcode.EV_ABS && cfg.HasThreshold {
			if cfg.AnalogThreshold <= -100 || cfg.AnalogThreshold >= 100 {
				return fmt.Errorf("abs analog_threshold %g out of (-100,100)", cfg.AnalogThreshold)
			}
		}
	}

	if !caps.KnownUinput(m.TargetUinput) {
		return fmt.Errorf("unknown target_uinput %q", m.TargetUinput)
	}

	s := m.Shaping
	if s.Deadzone < 0 || s.Deadzone >= 1 {
		return fmt.Errorf("deadzone %g out of [0,1)", s.Deadzone)
	}
	if s.Expo <= -1 || s.Expo >= 1 {
		return fmt.Errorf("expo %g out of (-1,1)", s.Expo)
	}
	if s.RelRate <= 0 {
		return fmt.Errorf("rel_rate must be > 0, got %g", s.RelRate)
	}
	if s.RelToAbsInputCutoff <= 0 {
		return fmt.Errorf("rel_to_abs_input_cutoff must be > 0, got %g", s.RelToAbsInputCutoff)
	}
	if s.ReleaseTimeoutMs <= 0 {
		return fmt.Errorf("release_timeout must be > 0, got %g", s.ReleaseTimeoutMs)
	}

	switch m.Output {
	case OutputKey:
		if m.OutputType != evcode.EV_KEY {
			return fmt.Errorf("Key output must target EV_KEY, got type %d", m.OutputType)
		}
	case OutputMacro:
		if m.MacroText == "" {
			return fmt.Errorf("macro output with empty macro text")
		}
	case OutputAnalogAxis:
		if m.OutputType != evcode.EV_ABS && m.OutputType != evcode.EV_REL {
			return fmt.Errorf("AnalogAxis output must target EV_ABS or EV_REL, got type %d", m.OutputType)
		}
		if !caps.HasCapability(m.TargetUinput, m.OutputType, m.OutputCode) {
			return fmt.Errorf("target_uinput %q does not advertise output (type=%d, code=%d)",
				m.TargetUinput, m.OutputType, m.OutputCode)
		}
	default:
		return fmt.Errorf("unknown output kind %v", m.Output)
	}

	if !analogOutputMatchesInput(m) {
		return fmt.Errorf("analog/button mismatch between input combination and output kind")
	}

	return nil
}

// analogOutputMatchesInput mirrors the source project's output_matches_input
// rule: an axis input needs an axis output and vice versa.
func analogOutputMatchesInput(m *Mapping) bool {
	usesAnalogInput := m.InputCombination.UsesAnalogInput()
	if usesAnalogInput {
		return m.Output == OutputAnalogAxis
	}
	return m.Output == OutputKey || m.Output == OutputMacro
}
