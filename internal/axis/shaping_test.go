package axis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAbsFixedPoints(t *testing.T) {
	assert.InDelta(t, -1.0, NormalizeAbs(0, 0, 255), 1e-9)
	assert.InDelta(t, 1.0, NormalizeAbs(255, 0, 255), 1e-9)
	assert.InDelta(t, 0.0, NormalizeAbs(127.5, 0, 255), 1e-6)
}

func TestDeadzoneInsideAndAtEdgeIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Deadzone(0.05, 0.1))
	assert.Equal(t, 0.0, Deadzone(0.1, 0.1))
	assert.Greater(t, Deadzone(0.5, 0.1), 0.0)
}

func TestExpoFixedPoints(t *testing.T) {
	for _, e := range []float64{-0.9, -0.5, 0, 0.5, 0.9} {
		assert.InDelta(t, 0.0, Expo(0, e), 1e-9, "e=%v", e)
		assert.InDelta(t, 1.0, Expo(1, e), 1e-6, "e=%v", e)
		assert.InDelta(t, -1.0, Expo(-1, e), 1e-6, "e=%v", e)
	}
}

func TestExpoIsOddSymmetric(t *testing.T) {
	for _, e := range []float64{-0.7, 0.3} {
		for _, x := range []float64{0.2, 0.6, 0.9} {
			assert.InDelta(t, -Expo(x, e), Expo(-x, e), 1e-9)
		}
	}
}

func TestShapeAxisFixedPoints(t *testing.T) {
	p := Params{Deadzone: 0.1, Gain: 2.0, Expo: 0.3}
	assert.InDelta(t, 0.0, p.Shape(0), 1e-9)
	assert.InDelta(t, 2.0, p.Shape(1), 1e-6)
	assert.InDelta(t, -2.0, p.Shape(-1), 1e-6)
}

func TestRelAccumulatorCarriesFraction(t *testing.T) {
	var acc RelAccumulator
	// speed of 1.5 units/sec at 2 Hz -> 0.75 units per tick: with the
	// carried fraction the ticks come out 0,1,1,1 repeating, summing close
	// to speed*t.
	var sum int32
	const ticks = 1000
	for i := 0; i < ticks; i++ {
		sum += acc.Tick(1.5, 2.0)
	}
	expected := 1.5 / 2.0 * float64(ticks)
	assert.InDelta(t, expected, float64(sum), 1.0)
}

func TestAbsAccumulatorClampsAtBounds(t *testing.T) {
	acc := NewAbsAccumulator(0, 100)
	for i := 0; i < 1000; i++ {
		acc.Add(10, 1.0, 0, 100)
	}
	assert.Equal(t, int32(100), acc.Add(10, 1.0, 0, 100))
}

func TestDenormalizeAbsSaturates(t *testing.T) {
	assert.Equal(t, int32(255), DenormalizeAbs(1.5, 0, 255))
	assert.Equal(t, int32(0), DenormalizeAbs(-1.5, 0, 255))
}
