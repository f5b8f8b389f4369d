package waveformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/separator"
)

func TestQueryVector(t *testing.T) {
	q, err := queryVector([]string{"Computer_keyboard", "Writing"})
	require.NoError(t, err)
	require.Len(t, q, len(separator.WaveformerTargets))
	var sum float32
	for _, v := range q {
		sum += v
	}
	assert.Equal(t, float32(2), sum)
	assert.Equal(t, float32(1), q[9])
	assert.Equal(t, float32(1), q[40])

	_, err = queryVector([]string{"Vuvuzela"})
	assert.ErrorIs(t, err, separator.ErrUnknownTarget)
}

func TestForEachChunk(t *testing.T) {
	plane := make([]float32, ChunkSamples+5)
	for idx := range plane {
		plane[idx] = float32(idx % 7)
	}
	calls := 0
	out, err := forEachChunk(plane, func(in, out []float32) error {
		calls++
		require.Len(t, in, ChunkSamples)
		for idx, v := range in {
			out[idx] = -v
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	expected := make([]float32, len(plane))
	for idx, v := range plane {
		expected[idx] = -v
	}
	assert.Equal(t, expected, out)
}

func TestInterleaveRoundTrip(t *testing.T) {
	frame := audio.NewFrame([]float32{1, 2, 3, 4, 5, 6}, 2, SampleRate)
	planes := deinterleave(frame)
	assert.Equal(t, [][]float32{{1, 3, 5}, {2, 4, 6}}, planes)
	assert.Equal(t, frame.Samples, interleave(planes))
}
