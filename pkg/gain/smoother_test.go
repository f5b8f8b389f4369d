package gain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSmootherValidation(t *testing.T) {
	for _, tc := range []struct {
		alpha, floor float64
		ok           bool
	}{
		{0.9, 0.1, true},
		{0, 0, true},
		{1, 1, true},
		{-0.1, 0.1, false},
		{1.1, 0.1, false},
		{0.9, -0.01, false},
		{0.9, 1.5, false},
	} {
		_, err := NewSmoother(tc.alpha, tc.floor)
		if tc.ok {
			assert.NoError(t, err, "%v/%v", tc.alpha, tc.floor)
		} else {
			assert.Error(t, err, "%v/%v", tc.alpha, tc.floor)
		}
	}
}

func TestSmootherInitialState(t *testing.T) {
	s, err := NewSmoother(DefaultAlpha, DefaultNoiseFloor)
	require.NoError(t, err)
	assert.Equal(t, Vector{Speech: 1, Noise: DefaultNoiseFloor, Events: 1}, s.Current())
}

func TestSmootherStep(t *testing.T) {
	s, err := NewSmoother(0.5, 0.1)
	require.NoError(t, err)

	got := s.Smooth(Vector{Speech: 0, Noise: 1, Events: 0})
	assert.InDelta(t, 0.5, got.Speech, 1e-12)
	assert.InDelta(t, 0.55, got.Noise, 1e-12)
	assert.InDelta(t, 0.5, got.Events, 1e-12)
}

func TestSmootherNoiseFloorAlwaysHolds(t *testing.T) {
	s, err := NewSmoother(0.7, 0.2)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		got := s.Smooth(Vector{
			Speech: rng.Float64(),
			Noise:  rng.Float64()*1.4 - 0.2,
			Events: rng.Float64(),
		})
		require.GreaterOrEqual(t, got.Noise, 0.2)
	}
}

func TestSmootherConvergesMonotonically(t *testing.T) {
	s, err := NewSmoother(DefaultAlpha, DefaultNoiseFloor)
	require.NoError(t, err)

	target := Vector{Speech: 0.3, Noise: 0.8, Events: 0.0}
	prev := s.Current()
	for i := 0; i < 200; i++ {
		got := s.Smooth(target)
		assert.LessOrEqual(t, got.Speech, prev.Speech)
		assert.GreaterOrEqual(t, got.Speech, target.Speech)
		assert.GreaterOrEqual(t, got.Noise, prev.Noise)
		assert.LessOrEqual(t, got.Noise, target.Noise)
		assert.LessOrEqual(t, got.Events, prev.Events)
		prev = got
	}
	assert.InDelta(t, target.Speech, prev.Speech, 1e-6)
	assert.InDelta(t, target.Noise, prev.Noise, 1e-6)
	assert.InDelta(t, target.Events, prev.Events, 1e-6)
}

func TestSmootherReset(t *testing.T) {
	s, err := NewSmoother(DefaultAlpha, 0.25)
	require.NoError(t, err)
	s.Reset(Vector{Speech: 0.5, Noise: 0, Events: 2})
	assert.Equal(t, Vector{Speech: 0.5, Noise: 0.25, Events: 1}, s.Current())
}

func TestVector(t *testing.T) {
	assert.True(t, Unity().IsPassThrough())
	assert.False(t, Vector{Speech: 1, Noise: 0.5, Events: 1}.IsPassThrough())
	assert.NoError(t, Unity().Validate())
	assert.Error(t, Vector{Speech: 1.5}.Validate())

	g, err := Unity().Get(BusNoise)
	require.NoError(t, err)
	assert.Equal(t, 1.0, g)
	_, err = Unity().Get("bass")
	assert.Error(t, err)
}
