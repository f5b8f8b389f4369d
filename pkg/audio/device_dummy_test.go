package audio

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceDummy(t *testing.T) {
	ctx := context.Background()
	format := StreamFormat{SampleRate: 16000, Channels: 1, FramesPerBuffer: 4}
	d := NewDeviceDummy(format, []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, d.Start(ctx))
	assert.True(t, d.IsStarted())

	f, err := d.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, f.Samples)

	f, err = d.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 6, 0, 0}, f.Samples)

	require.NoError(t, d.Write(ctx, f))
	assert.Len(t, d.Written(), 1)

	require.NoError(t, d.Close())
	_, err = d.Read(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

type sliceFloat32Reader struct {
	samples []float32
}

func (r *sliceFloat32Reader) Read(p []float32) (int, error) {
	if len(r.samples) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.samples)
	r.samples = r.samples[n:]
	return n, nil
}

func TestReaderFromFloat32Reader(t *testing.T) {
	src := []float32{0.25, -0.5, 1}
	r := newReaderFromFloat32Reader(&sliceFloat32Reader{samples: src})

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, src, PCMFormatFloat32LE.DecodeFloat32(b))
}
