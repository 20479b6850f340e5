package combination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputinject/internal/evcode"
	"inputinject/internal/model"
)

func key(code uint16) model.InputConfig {
	return model.InputConfig{Type: evcode.EV_KEY, Code: code}
}

func TestSingletonWinsWhenNoLongerComboSatisfied(t *testing.T) {
	single := &model.Mapping{InputCombination: model.InputCombination{key(30)}, ReleaseCombinationKeys: true}
	reg := NewRegistry([]*model.Mapping{single})
	r := NewResolver(reg)

	out := r.Press(key(30))
	require.NotNil(t, out.Winner)
	assert.Same(t, single, out.Winner)
}

func TestLongerComboWinsAndSubsumesShorter(t *testing.T) {
	short := &model.Mapping{InputCombination: model.InputCombination{key(30)}}
	long := &model.Mapping{InputCombination: model.InputCombination{key(30), key(48)}, ReleaseCombinationKeys: true}
	reg := NewRegistry([]*model.Mapping{short, long})
	r := NewResolver(reg)

	out := r.Press(key(30))
	require.NotNil(t, out.Winner)
	assert.Same(t, short, out.Winner)

	out = r.Press(key(48))
	require.NotNil(t, out.Winner)
	assert.Same(t, long, out.Winner)
	require.Len(t, out.Subsumed, 1)
	assert.Same(t, short, out.Subsumed[0])

	// release_combination_keys: non-terminal key (30) gets a forward
	// release, terminal key (48, the trigger) does not.
	require.Len(t, out.ForwardReleases, 1)
	assert.Equal(t, uint16(30), out.ForwardReleases[0].Code)
}

func TestReleaseOfOneKeyReleasesCombinationAndReactivatesSubset(t *testing.T) {
	short := &model.Mapping{InputCombination: model.InputCombination{key(30)}}
	long := &model.Mapping{InputCombination: model.InputCombination{key(30), key(48)}}
	reg := NewRegistry([]*model.Mapping{short, long})
	r := NewResolver(reg)

	r.Press(key(30))
	r.Press(key(48))

	out := r.Release(key(48))
	require.Len(t, out.Released, 1)
	assert.Same(t, long, out.Released[0])
	require.NotNil(t, out.Reactivated)
	assert.Same(t, short, out.Reactivated)
}

func TestReleaseOfNonTerminalKeyReleasesWholeCombination(t *testing.T) {
	long := &model.Mapping{InputCombination: model.InputCombination{key(30), key(48)}}
	reg := NewRegistry([]*model.Mapping{long})
	r := NewResolver(reg)

	r.Press(key(30))
	r.Press(key(48))

	out := r.Release(key(30))
	require.Len(t, out.Released, 1)
	assert.Same(t, long, out.Released[0])
}

func TestRegistrySortsLongestFirst(t *testing.T) {
	short := &model.Mapping{InputCombination: model.InputCombination{key(1)}}
	mid := &model.Mapping{InputCombination: model.InputCombination{key(1), key(2)}}
	long := &model.Mapping{InputCombination: model.InputCombination{key(1), key(2), key(3)}}
	reg := NewRegistry([]*model.Mapping{short, long, mid})
	require.Len(t, reg.byLength, 3)
	assert.Same(t, long, reg.byLength[0])
	assert.Same(t, mid, reg.byLength[1])
	assert.Same(t, short, reg.byLength[2])
}
