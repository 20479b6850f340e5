package uinputdev

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputinject/internal/evcode"
)

func TestBuiltinCapabilitiesCoverNamedOutputs(t *testing.T) {
	caps := builtinCapabilities()
	for _, name := range AllNames() {
		_, ok := caps[name]
		require.True(t, ok, "missing capability set for %q", name)
	}
}

func TestKeyboardAdvertisesOrdinaryKeys(t *testing.T) {
	caps := builtinCapabilities()
	assert.True(t, caps[NameKeyboard].has(evcode.EV_KEY, 30)) // KEY_A
	assert.False(t, caps[NameKeyboard].has(evcode.EV_ABS, evcode.ABS_X))
}

func TestMouseAdvertisesRelAxesAndButtons(t *testing.T) {
	caps := builtinCapabilities()
	assert.True(t, caps[NameMouse].has(evcode.EV_REL, evcode.REL_X))
	assert.True(t, caps[NameMouse].has(evcode.EV_KEY, evcode.BTN_LEFT))
	assert.False(t, caps[NameMouse].has(evcode.EV_KEY, 30))
}

func TestKeyboardMouseUnionsBoth(t *testing.T) {
	caps := builtinCapabilities()
	km := caps[NameKeyboardMouse]
	assert.True(t, km.has(evcode.EV_KEY, 30))
	assert.True(t, km.has(evcode.EV_KEY, evcode.BTN_LEFT))
	assert.True(t, km.has(evcode.EV_REL, evcode.REL_X))
}

func TestAllNamesExcludesPerInjectionOutputs(t *testing.T) {
	names := AllNames()
	for _, n := range names {
		assert.NotEqual(t, NameForwarded, n)
		assert.NotEqual(t, NameMapped, n)
	}
}
