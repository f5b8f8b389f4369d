package spectralmask

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/separator"
)

const testRate = 44100

// binTone is a sine exactly at FFT bin k, so that a block contains whole periods.
func binTone(k int, length int) []float64 {
	result := make([]float64, length)
	for idx := range result {
		result[idx] = 0.4 * math.Sin(2*math.Pi*float64(k)*float64(idx)/BlockSize)
	}
	return result
}

func TestSeparateKeepsOnlyTargetBand(t *testing.T) {
	// bin 5 is ~215Hz (outside Computer_keyboard), bin 116 is ~4996Hz (inside).
	low := binTone(5, 2*BlockSize)
	high := binTone(116, 2*BlockSize)
	samples := make([]float32, 2*BlockSize)
	for idx := range samples {
		samples[idx] = float32(low[idx] + high[idx])
	}
	frame := audio.NewFrame(samples, 1, testRate)

	out, err := New().Separate(context.Background(), frame, []string{"Computer_keyboard"})
	require.NoError(t, err)
	require.True(t, out.SameShape(frame))
	for idx := range out.Samples {
		assert.InDelta(t, high[idx], out.Samples[idx], 1e-4, idx)
	}
}

func TestSeparateStereoAndPartialBlock(t *testing.T) {
	length := BlockSize + 100
	samples := make([]float32, 2*length)
	for idx := 0; idx < length; idx++ {
		samples[2*idx] = 0.1
		samples[2*idx+1] = -0.1
	}
	frame := audio.NewFrame(samples, 2, testRate)

	out, err := New().Separate(context.Background(), frame, []string{"Bark"})
	require.NoError(t, err)
	assert.Equal(t, len(samples), len(out.Samples))
	assert.Equal(t, audio.Channel(2), out.Channels)
	// a DC signal has nothing in the barking band
	for idx := 0; idx < BlockSize; idx++ {
		assert.InDelta(t, 0, out.Samples[idx], 1e-4)
	}
}

func TestSeparateUnknownTarget(t *testing.T) {
	frame := audio.NewFrame(make([]float32, 10), 1, testRate)
	_, err := New().Separate(context.Background(), frame, []string{"Vuvuzela"})
	assert.ErrorIs(t, err, separator.ErrUnknownTarget)
}

func TestTargetsCoverWaveformer(t *testing.T) {
	expected := append([]string{separator.BackgroundNoiseTarget}, separator.WaveformerTargets...)
	assert.ElementsMatch(t, expected, New().Targets())
}

func TestNewForCategories(t *testing.T) {
	mapping := category.DefaultMapping()
	s, targets := NewForCategories(mapping, []category.Name{"siren", "music", "alarm", "unknown"})
	assert.Equal(t, []string{"siren", "alarm"}, targets)
	assert.Equal(t, []string{"alarm", "siren"}, s.Targets())

	// bin 24 is ~1034Hz (siren band), bin 5 is ~215Hz (no band)
	siren := binTone(24, BlockSize)
	low := binTone(5, BlockSize)
	samples := make([]float32, BlockSize)
	for idx := range samples {
		samples[idx] = float32(siren[idx] + low[idx])
	}
	out, err := s.Separate(context.Background(), audio.NewFrame(samples, 1, testRate), targets)
	require.NoError(t, err)
	for idx := range out.Samples {
		assert.InDelta(t, siren[idx], out.Samples[idx], 1e-4, idx)
	}
}
