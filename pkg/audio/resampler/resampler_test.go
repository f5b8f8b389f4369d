package resampler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
)

func TestResampler(t *testing.T) {
	t.Run("Identity_Mono_44100", func(t *testing.T) {
		in := audio.NewFrame([]float32{0.1, 0.2, 0.3, 0.4}, 1, 44100)
		out, err := Resample(in, Format{Channels: 1, SampleRate: 44100})
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("Stereo_to_Mono", func(t *testing.T) {
		in := audio.NewFrame([]float32{1, 0, 0.5, 0.5, -1, 1}, 2, 48000)
		out, err := Resample(in, Format{Channels: 1, SampleRate: 48000})
		require.NoError(t, err)
		assert.Equal(t, audio.Channel(1), out.Channels)
		assert.Equal(t, []float32{0.5, 0.5, 0}, out.Samples)
	})

	t.Run("Mono_to_Stereo", func(t *testing.T) {
		in := audio.NewFrame([]float32{0.25, -0.25}, 1, 48000)
		out, err := Resample(in, Format{Channels: 2, SampleRate: 48000})
		require.NoError(t, err)
		assert.Equal(t, []float32{0.25, 0.25, -0.25, -0.25}, out.Samples)
	})

	t.Run("Downsample_48000_to_16000", func(t *testing.T) {
		samples := make([]float32, 4800)
		for idx := range samples {
			samples[idx] = float32(math.Sin(2 * math.Pi * 440 * float64(idx) / 48000))
		}
		out, err := Resample(audio.NewFrame(samples, 1, 48000), Format{Channels: 1, SampleRate: 16000})
		require.NoError(t, err)
		require.Len(t, out.Samples, 1600)
		for idx, v := range out.Samples {
			expected := math.Sin(2 * math.Pi * 440 * float64(idx) / 16000)
			assert.InDelta(t, expected, v, 1e-3)
		}
	})

	t.Run("Upsample_keeps_duration", func(t *testing.T) {
		in := audio.NewFrame(make([]float32, 2*160), 2, 16000)
		out, err := Resample(in, Format{Channels: 2, SampleRate: 44100})
		require.NoError(t, err)
		assert.Equal(t, 441, out.Len())
		assert.NoError(t, out.Validate())
	})

	t.Run("Unsupported_channel_layout", func(t *testing.T) {
		in := audio.NewFrame(make([]float32, 6), 3, 16000)
		_, err := Resample(in, Format{Channels: 2, SampleRate: 16000})
		assert.Error(t, err)
	})
}
