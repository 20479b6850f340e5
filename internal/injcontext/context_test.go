package injcontext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputinject/internal/evcode"
	"inputinject/internal/model"
	"inputinject/internal/symbols"
)

type fakeOutputs struct {
	writes []write
	caps   map[string]bool
}

type write struct {
	name          string
	evType, code  uint16
	value         int32
}

func (f *fakeOutputs) Write(name string, evType, code uint16, value int32) error {
	f.writes = append(f.writes, write{name, evType, code, value})
	return nil
}

func (f *fakeOutputs) HasCapability(uinputName string, evType, code uint16) bool {
	return f.caps[uinputName]
}

func TestContextEmitDelegatesToOutputs(t *testing.T) {
	outs := &fakeOutputs{caps: map[string]bool{"keyboard": true}}
	ctx := New(&model.Preset{}, symbols.New(), outs, NewStore(), "forwarded:g", "mapped:g")

	err := ctx.Emit("keyboard", evcode.EV_KEY, 30, 1)
	require.NoError(t, err)
	require.Len(t, outs.writes, 1)
	assert.Equal(t, "keyboard", outs.writes[0].name)
}

func TestContextActiveHandlersCounts(t *testing.T) {
	ctx := New(&model.Preset{}, symbols.New(), &fakeOutputs{}, NewStore(), "f", "m")
	assert.Equal(t, int64(0), ctx.ActiveHandlers())
	ctx.EnterHandler()
	ctx.EnterHandler()
	assert.Equal(t, int64(2), ctx.ActiveHandlers())
	ctx.LeaveHandler()
	assert.Equal(t, int64(1), ctx.ActiveHandlers())
}
