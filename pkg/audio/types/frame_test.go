package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	f := NewFrame([]float32{0.5, -0.5, 1, 0, -0.25, 0.25}, 2, 48000)
	require.NoError(t, f.Validate())
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, time.Duration(3)*time.Second/48000, f.Duration())
	assert.InDelta(t, 1.0, f.Peak(), 1e-9)

	mono := f.Mono()
	assert.Equal(t, Channel(1), mono.Channels)
	assert.Equal(t, []float32{0, 0.5, 0}, mono.Samples)

	clone := f.Clone()
	clone.Samples[0] = 42
	assert.Equal(t, float32(0.5), f.Samples[0])
	assert.True(t, f.SameShape(clone))

	assert.Error(t, NewFrame([]float32{1, 2, 3}, 2, 48000).Validate())
	assert.Error(t, NewFrame(nil, 0, 48000).Validate())
}

func TestFrameLevels(t *testing.T) {
	f := NewFrame([]float32{1, -1, 1, -1}, 1, 16000)
	assert.InDelta(t, 1.0, f.RMS(), 1e-9)
	assert.InDelta(t, 1.0, f.MeanAbs(), 1e-9)

	var empty Frame
	assert.Zero(t, empty.RMS())
	assert.Zero(t, empty.MeanAbs())
	assert.True(t, empty.IsEmpty())
}
