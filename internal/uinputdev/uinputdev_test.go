package uinputdev

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputinject/internal/applog"
	"inputinject/internal/evcode"
)

func TestRegistryKnownUinputMatchesFixedNames(t *testing.T) {
	r := New(applog.New(applog.LevelError))
	assert.True(t, r.KnownUinput(NameKeyboard))
	assert.True(t, r.KnownUinput(NameMouse))
	assert.False(t, r.KnownUinput("nonexistent"))
}

func TestRegistryHasCapabilityFalseWhenDeviceNotOpen(t *testing.T) {
	r := New(applog.New(applog.LevelError))
	assert.False(t, r.HasCapability(NameKeyboard, evcode.EV_KEY, 30))
}

// TestDeviceWriteSerializesAndAppendsSynReport exercises Device.Write
// against an in-memory pipe instead of a real /dev/uinput node, checking
// that every write is followed by a SYN_REPORT frame.
func TestDeviceWriteSerializesAndAppendsSynReport(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	dev := &Device{Name: "test", caps: newCapSet(), file: w}
	go func() {
		_ = dev.Write(evcode.EV_KEY, 30, 1)
		w.Close()
	}()

	buf := make([]byte, 4096)
	n, err := r.Read(buf)
	require.NoError(t, err)
	// Two 24-byte input_event frames: the key event and its SYN_REPORT.
	assert.Equal(t, 48, n)
}

func TestDefaultAbsRangeDistinguishesPressureFromSticks(t *testing.T) {
	lo, hi := defaultAbsRange(0x18) // ABS_PRESSURE
	assert.Equal(t, int32(0), lo)
	assert.Equal(t, int32(1024), hi)

	lo, hi = defaultAbsRange(evcode.ABS_X)
	assert.Equal(t, int32(-32767), lo)
	assert.Equal(t, int32(32767), hi)
}

func TestToFixedNameTruncatesAndNulPads(t *testing.T) {
	fixed := toFixedName("mouse")
	require.Equal(t, byte('m'), fixed[0])
	require.Equal(t, byte(0), fixed[10])

	long := toFixedName(strings.Repeat("x", len(fixed)+8))
	require.Equal(t, byte('x'), long[len(long)-1])
}
