package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"inputinject/internal/evcode"
	"inputinject/internal/everr"
)

type fakeCaps struct {
	known map[string]bool
	caps  map[string]bool // key: uinput|type|code
}

func newFakeCaps() *fakeCaps {
	return &fakeCaps{known: map[string]bool{"keyboard": true, "mouse": true, "gamepad": true}, caps: map[string]bool{}}
}

func (f *fakeCaps) allow(uinput string, t, c uint16) {
	f.caps[key(uinput, t, c)] = true
}

func key(uinput string, t, c uint16) string {
	return fmt.Sprintf("%s|%d|%d", uinput, t, c)
}

func (f *fakeCaps) HasCapability(uinputName string, evType, code uint16) bool {
	return f.caps[key(uinputName, evType, code)]
}

func (f *fakeCaps) KnownUinput(name string) bool {
	return f.known[name]
}

func noopParse(string) (MacroProgram, error) { return nil, nil }

func simpleKeyMapping(code1, code2 uint16) Mapping {
	return Mapping{
		InputCombination: InputCombination{{Type: evcode.EV_KEY, Code: code1}},
		TargetUinput:     "keyboard",
		Output:           OutputKey,
		OutputType:       evcode.EV_KEY,
		OutputCode:       code2,
		Shaping:          DefaultShapingParams(),
		ReleaseCombinationKeys: true,
	}
}

func TestValidateRejectsEmptyPreset(t *testing.T) {
	p := &Preset{Name: "p", GroupKey: "g"}
	_, err := Validate(p, newFakeCaps(), noopParse)
	require.Error(t, err)
	var e *everr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, everr.InvalidPreset, e.Kind)
}

func TestValidateRejectsDuplicateCombination(t *testing.T) {
	m1 := simpleKeyMapping(30, 48)
	m2 := simpleKeyMapping(30, 49)
	p := &Preset{Name: "p", GroupKey: "g", Mappings: []Mapping{m1, m2}}
	_, err := Validate(p, newFakeCaps(), noopParse)
	require.Error(t, err)
}

func TestValidateRejectsEmptyCombination(t *testing.T) {
	m := simpleKeyMapping(30, 48)
	m.InputCombination = nil
	p := &Preset{Name: "p", GroupKey: "g", Mappings: []Mapping{m}}
	_, err := Validate(p, newFakeCaps(), noopParse)
	require.Error(t, err)
}

func TestValidateRejectsMultipleAnalogConfigs(t *testing.T) {
	m := simpleKeyMapping(30, 48)
	m.InputCombination = InputCombination{
		{Type: evcode.EV_ABS, Code: evcode.ABS_X},
		{Type: evcode.EV_ABS, Code: evcode.ABS_Y},
	}
	m.Output = OutputAnalogAxis
	m.OutputType = evcode.EV_ABS
	m.OutputCode = evcode.ABS_X
	caps := newFakeCaps()
	caps.allow("keyboard", evcode.EV_ABS, evcode.ABS_X)
	p := &Preset{Name: "p", GroupKey: "g", Mappings: []Mapping{m}}
	_, err := Validate(p, caps, noopParse)
	require.Error(t, err)
}

func TestValidateRejectsBadShapingParams(t *testing.T) {
	m := simpleKeyMapping(30, 48)
	m.Shaping.Deadzone = 1.5
	p := &Preset{Name: "p", GroupKey: "g", Mappings: []Mapping{m}}
	_, err := Validate(p, newFakeCaps(), noopParse)
	require.Error(t, err)
}

func TestValidateRejectsAnalogAxisWithoutCapability(t *testing.T) {
	m := Mapping{
		InputCombination: InputCombination{{Type: evcode.EV_ABS, Code: evcode.ABS_X}},
		TargetUinput:     "keyboard", // keyboard never advertises ABS_X
		Output:           OutputAnalogAxis,
		OutputType:       evcode.EV_ABS,
		OutputCode:       evcode.ABS_X,
		Shaping:          DefaultShapingParams(),
	}
	p := &Preset{Name: "p", GroupKey: "g", Mappings: []Mapping{m}}
	_, err := Validate(p, newFakeCaps(), noopParse)
	require.Error(t, err)
}

func TestValidateAcceptsSimpleKeyRemap(t *testing.T) {
	m := simpleKeyMapping(30, 48)
	p := &Preset{Name: "p", GroupKey: "g", Mappings: []Mapping{m}}
	report, err := Validate(p, newFakeCaps(), noopParse)
	require.NoError(t, err)
	assert.Empty(t, report.DisabledMappings)
	assert.Len(t, p.Mappings, 1)
}

func TestValidateDisablesOnlyFailingMacrosNotWholePreset(t *testing.T) {
	good := simpleKeyMapping(30, 48)
	bad := simpleKeyMapping(31, 49)
	bad.Output = OutputMacro
	bad.MacroText = "key(A)"
	parse := func(src string) (MacroProgram, error) {
		if src == "key(A)" {
			return nil, assertErr{}
		}
		return "ok", nil
	}
	p := &Preset{Name: "p", GroupKey: "g", Mappings: []Mapping{good, bad}}
	report, err := Validate(p, newFakeCaps(), parse)
	require.NoError(t, err)
	require.Len(t, report.DisabledMappings, 1)
	assert.Len(t, p.Mappings, 1)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
