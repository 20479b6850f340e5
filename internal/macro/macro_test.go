package macro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputinject/internal/evcode"
	"inputinject/internal/injcontext"
	"inputinject/internal/model"
	"inputinject/internal/symbols"
)

type recordingOutputs struct {
	events []recordedEvent
}

type recordedEvent struct {
	name         string
	evType, code uint16
	value        int32
}

func (r *recordingOutputs) Write(name string, evType, code uint16, value int32) error {
	r.events = append(r.events, recordedEvent{name, evType, code, value})
	return nil
}

func (r *recordingOutputs) HasCapability(string, uint16, uint16) bool { return true }

func newTestContext() (*injcontext.Context, *recordingOutputs) {
	syms := symbols.New()
	syms.Populate()
	outs := &recordingOutputs{}
	ctx := injcontext.New(&model.Preset{}, syms, outs, injcontext.NewStore(), "forwarded:g", "mapped:g")
	return ctx, outs
}

func TestParseSimpleKeyCall(t *testing.T) {
	prog, err := Parse("key(KEY_A)")
	require.NoError(t, err)
	require.Len(t, prog.Steps, 1)
	k, ok := prog.Steps[0].(Key)
	require.True(t, ok)
	assert.Equal(t, "KEY_A", k.Sym.s)
}

func TestParseChainedCalls(t *testing.T) {
	prog, err := Parse("key(KEY_A).wait(10).key(KEY_B)")
	require.NoError(t, err)
	require.Len(t, prog.Steps, 3)
}

func TestParsePlusSyntaxExpandsToHoldKeys(t *testing.T) {
	prog, err := Parse("KEY_A+KEY_B+KEY_C")
	require.NoError(t, err)
	require.Len(t, prog.Steps, 1)
	hk, ok := prog.Steps[0].(HoldKeys)
	require.True(t, ok)
	assert.Len(t, hk.Syms, 3)
}

func TestParseRejectsMixingPlusAndParens(t *testing.T) {
	_, err := Parse("KEY_A+key(KEY_B)")
	assert.Error(t, err)
}

func TestParseNestedMacroArgument(t *testing.T) {
	prog, err := Parse("repeat(3, key(KEY_A).wait(5))")
	require.NoError(t, err)
	require.Len(t, prog.Steps, 1)
	rep, ok := prog.Steps[0].(Repeat)
	require.True(t, ok)
	assert.Equal(t, int64(3), rep.N.i)
	assert.Len(t, rep.Body.Steps, 2)
}

func TestParseVariableReference(t *testing.T) {
	prog, err := Parse("set(layer, $other)")
	require.NoError(t, err)
	set, ok := prog.Steps[0].(Set)
	require.True(t, ok)
	assert.Equal(t, argVar, set.Value.kind)
	assert.Equal(t, "other", set.Value.s)
}

func TestParseStripsCommentsAndWhitespace(t *testing.T) {
	prog, err := Parse("key(KEY_A) # press a\n.wait(10)")
	require.NoError(t, err)
	require.Len(t, prog.Steps, 2)
}

func TestParseIfEqWithElse(t *testing.T) {
	prog, err := Parse(`if_eq(1, 1, key(KEY_A), else=key(KEY_B))`)
	require.NoError(t, err)
	n, ok := prog.Steps[0].(IfEq)
	require.True(t, ok)
	require.NotNil(t, n.Then)
	require.NotNil(t, n.Else)
}

func TestRunKeyEmitsPressThenRelease(t *testing.T) {
	ctx, outs := newTestContext()
	task := NewTask(ctx, "keyboard", 10, 60)
	prog, err := Parse("key(KEY_A)")
	require.NoError(t, err)

	err = task.Run(prog)
	require.NoError(t, err)
	require.Len(t, outs.events, 2)
	assert.Equal(t, int32(1), outs.events[0].value)
	assert.Equal(t, int32(0), outs.events[1].value)
	assert.Equal(t, outs.events[0].code, outs.events[1].code)
}

func TestRunRepeatRunsBodyNTimes(t *testing.T) {
	ctx, outs := newTestContext()
	task := NewTask(ctx, "keyboard", 0, 60)
	prog, err := Parse("repeat(3, key(KEY_A))")
	require.NoError(t, err)

	require.NoError(t, task.Run(prog))
	assert.Len(t, outs.events, 6) // 3 * (press, release)
}

func TestRunSetAndAddMutateStore(t *testing.T) {
	ctx, _ := newTestContext()
	task := NewTask(ctx, "keyboard", 0, 60)
	prog, err := Parse(`set(counter, 1).add(counter, 2)`)
	require.NoError(t, err)

	require.NoError(t, task.Run(prog))
	v, ok := ctx.Vars.Get("counter")
	require.True(t, ok)
	i, _ := v.Int()
	assert.Equal(t, int64(3), i)
}

func TestRunHoldKeysPressesInOrderAndReleasesInReverse(t *testing.T) {
	ctx, outs := newTestContext()
	task := NewTask(ctx, "keyboard", 0, 60)
	prog, err := Parse("hold_keys(KEY_A,KEY_B)")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- task.Run(prog) }()

	time.Sleep(5 * time.Millisecond)
	task.Release()
	require.NoError(t, <-done)

	require.Len(t, outs.events, 4)
	assert.Equal(t, int32(1), outs.events[0].value) // press a
	assert.Equal(t, int32(1), outs.events[1].value) // press b
	assert.Equal(t, int32(0), outs.events[2].value) // release b
	assert.Equal(t, int32(0), outs.events[3].value) // release a
	assert.Equal(t, outs.events[1].code, outs.events[2].code)
	assert.Equal(t, outs.events[0].code, outs.events[3].code)
}

func TestRunHoldLoopsUntilReleased(t *testing.T) {
	ctx, outs := newTestContext()
	task := NewTask(ctx, "keyboard", 0, 60)
	prog, err := Parse("hold(key(KEY_A))")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- task.Run(prog) }()

	time.Sleep(15 * time.Millisecond)
	task.Release()
	require.NoError(t, <-done)

	assert.True(t, len(outs.events) >= 2)
}

func TestRunIfEqBranchesOnEquality(t *testing.T) {
	ctx, outs := newTestContext()
	task := NewTask(ctx, "keyboard", 0, 60)
	prog, err := Parse(`if_eq(1, 1, key(KEY_A), key(KEY_B))`)
	require.NoError(t, err)

	require.NoError(t, task.Run(prog))
	require.Len(t, outs.events, 2)
	code, _ := ctx.Symbols.Get("KEY_A")
	assert.Equal(t, uint16(code), outs.events[0].code)
}

func TestRunIfCapslockUsesContextLED(t *testing.T) {
	ctx, outs := newTestContext()
	ctx.LEDs = fakeLEDs{capslock: true}
	task := NewTask(ctx, "keyboard", 0, 60)
	prog, err := Parse(`if_capslock(key(KEY_A), key(KEY_B))`)
	require.NoError(t, err)

	require.NoError(t, task.Run(prog))
	code, _ := ctx.Symbols.Get("KEY_A")
	assert.Equal(t, uint16(code), outs.events[0].code)
}

type fakeLEDs struct{ capslock bool }

func (f fakeLEDs) LED(code uint16) bool {
	return code == evcode.LED_CAPSL && f.capslock
}

func TestRunModTapTapsOnRelease(t *testing.T) {
	ctx, outs := newTestContext()
	task := NewTask(ctx, "keyboard", 0, 60)
	prog, err := Parse("mod_tap(KEY_A, KEY_LEFTSHIFT, 150)")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- task.Run(prog) }()

	time.Sleep(5 * time.Millisecond)
	task.Release()
	require.NoError(t, <-done)

	require.Len(t, outs.events, 2)
	code, _ := ctx.Symbols.Get("KEY_A")
	assert.Equal(t, uint16(code), outs.events[0].code)
	assert.Equal(t, int32(1), outs.events[0].value)
	assert.Equal(t, int32(0), outs.events[1].value)
}

func TestRunModTapHoldsModOnOtherKeyPress(t *testing.T) {
	ctx, outs := newTestContext()
	task := NewTask(ctx, "keyboard", 0, 60)
	prog, err := Parse("mod_tap(KEY_A, KEY_LEFTSHIFT, 150)")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- task.Run(prog) }()

	time.Sleep(5 * time.Millisecond)
	task.NotifyOtherKeyPress()
	time.Sleep(5 * time.Millisecond)
	modCode, _ := ctx.Symbols.Get("KEY_LEFTSHIFT")
	require.Len(t, outs.events, 1)
	assert.Equal(t, uint16(modCode), outs.events[0].code)
	assert.Equal(t, int32(1), outs.events[0].value)

	task.Release()
	require.NoError(t, <-done)
	require.Len(t, outs.events, 2)
	assert.Equal(t, int32(0), outs.events[1].value)
}

func TestRunModTapHoldsModOnTimeout(t *testing.T) {
	ctx, outs := newTestContext()
	task := NewTask(ctx, "keyboard", 0, 60)
	prog, err := Parse("mod_tap(KEY_A, KEY_LEFTSHIFT, 10)")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- task.Run(prog) }()

	time.Sleep(20 * time.Millisecond)
	modCode, _ := ctx.Symbols.Get("KEY_LEFTSHIFT")
	require.Len(t, outs.events, 1)
	assert.Equal(t, uint16(modCode), outs.events[0].code)

	task.Release()
	require.NoError(t, <-done)
}

func TestRunIfTapThenOnRelease(t *testing.T) {
	ctx, outs := newTestContext()
	task := NewTask(ctx, "keyboard", 0, 60)
	prog, err := Parse("if_tap(key(KEY_A), key(KEY_B), 50)")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- task.Run(prog) }()

	time.Sleep(5 * time.Millisecond)
	task.Release()
	require.NoError(t, <-done)

	require.Len(t, outs.events, 2)
	code, _ := ctx.Symbols.Get("KEY_A")
	assert.Equal(t, uint16(code), outs.events[0].code)
}

func TestRunIfTapElseOnTimeout(t *testing.T) {
	ctx, outs := newTestContext()
	task := NewTask(ctx, "keyboard", 0, 60)
	prog, err := Parse("if_tap(key(KEY_A), key(KEY_B), 10)")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- task.Run(prog) }()

	time.Sleep(25 * time.Millisecond)
	task.Release()
	require.NoError(t, <-done)

	require.Len(t, outs.events, 2)
	code, _ := ctx.Symbols.Get("KEY_B")
	assert.Equal(t, uint16(code), outs.events[0].code)
}

func TestRunIfSingleThenOnRelease(t *testing.T) {
	ctx, outs := newTestContext()
	task := NewTask(ctx, "keyboard", 0, 60)
	prog, err := Parse("if_single(key(KEY_A), key(KEY_B), 50)")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- task.Run(prog) }()

	time.Sleep(5 * time.Millisecond)
	task.Release()
	require.NoError(t, <-done)

	require.Len(t, outs.events, 2)
	code, _ := ctx.Symbols.Get("KEY_A")
	assert.Equal(t, uint16(code), outs.events[0].code)
}

func TestRunIfSingleElseOnOtherKeyPress(t *testing.T) {
	ctx, outs := newTestContext()
	task := NewTask(ctx, "keyboard", 0, 60)
	prog, err := Parse("if_single(key(KEY_A), key(KEY_B), 50)")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- task.Run(prog) }()

	time.Sleep(5 * time.Millisecond)
	task.NotifyOtherKeyPress()
	time.Sleep(5 * time.Millisecond)
	task.Release()
	require.NoError(t, <-done)

	require.Len(t, outs.events, 2)
	code, _ := ctx.Symbols.Get("KEY_B")
	assert.Equal(t, uint16(code), outs.events[0].code)
}

func TestRunIfSingleElseOnTimeout(t *testing.T) {
	ctx, outs := newTestContext()
	task := NewTask(ctx, "keyboard", 0, 60)
	prog, err := Parse("if_single(key(KEY_A), key(KEY_B), 10)")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- task.Run(prog) }()

	time.Sleep(25 * time.Millisecond)
	task.Release()
	require.NoError(t, <-done)

	require.Len(t, outs.events, 2)
	code, _ := ctx.Symbols.Get("KEY_B")
	assert.Equal(t, uint16(code), outs.events[0].code)
}
