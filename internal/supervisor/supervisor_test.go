package supervisor

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputinject/internal/injcontext"
	"inputinject/internal/model"
	"inputinject/internal/symbols"
)

func TestStatusStringCoversAllValues(t *testing.T) {
	for _, s := range []Status{Stopped, Starting, Running, Stopping, Failed} {
		assert.NotEqual(t, "unknown", s.String())
	}
	assert.Equal(t, "unknown", Status(99).String())
}

func TestStatusAfterWaitMapsErrorsToFailedExceptCancel(t *testing.T) {
	assert.Equal(t, Stopped, statusAfterWait(nil))
	assert.Equal(t, Stopped, statusAfterWait(context.Canceled))
	assert.Equal(t, Failed, statusAfterWait(assertErr{}))
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestSupervisorStatusDefaultsToStoppedForUnknownGroup(t *testing.T) {
	s := &Supervisor{log: slog.Default(), injections: map[string]*injection{}}
	assert.Equal(t, Stopped, s.Status("nope"))
	assert.Nil(t, s.Reason("nope"))
	assert.Empty(t, s.Running())
}

func newTestInjection(groupKey string) *injection {
	syms := symbols.New()
	syms.Populate()
	preset := &model.Preset{Mappings: []model.Mapping{
		{Shaping: model.ShapingParams{ReleaseTimeoutMs: 20}},
	}}
	ctx := injcontext.New(preset, syms, fakeOutputs{}, injcontext.NewStore(), "fwd", "mapped")
	return &injection{groupKey: groupKey, preset: preset, ctx: ctx, status: Running}
}

type fakeOutputs struct{}

func (fakeOutputs) Write(string, uint16, uint16, int32) error     { return nil }
func (fakeOutputs) HasCapability(string, uint16, uint16) bool     { return true }

func TestSupervisorRunningListsTrackedGroups(t *testing.T) {
	inj := newTestInjection("g1")
	s := &Supervisor{log: slog.Default(), injections: map[string]*injection{"g1": inj}}
	assert.Equal(t, []string{"g1"}, s.Running())
	assert.Equal(t, Running, s.Status("g1"))
}

func TestDrainReturnsOnceActiveHandlersSettle(t *testing.T) {
	inj := newTestInjection("g1")
	inj.ctx.EnterHandler()
	s := &Supervisor{log: slog.Default()}

	go func() {
		time.Sleep(10 * time.Millisecond)
		inj.ctx.LeaveHandler()
	}()

	start := time.Now()
	s.drain(inj)
	elapsed := time.Since(start)

	require.Equal(t, int64(0), inj.ctx.ActiveHandlers())
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestDrainBoundsByLargestReleaseTimeout(t *testing.T) {
	inj := newTestInjection("g1")
	inj.ctx.EnterHandler() // never released, forces the deadline to be hit
	s := &Supervisor{log: slog.Default()}

	start := time.Now()
	s.drain(inj)
	elapsed := time.Since(start)

	// drainGrace (100ms) + the mapping's 20ms release_timeout, give or take
	// polling granularity.
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}
