package oto

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/resampler"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/types"
)

func TestConvertReaderMonoS16ToStereoFloat(t *testing.T) {
	in := make([]float32, 2400)
	for idx := range in {
		in[idx] = 0.5
	}
	raw := types.PCMFormatS16LE.EncodeFloat32(in)

	r, err := newConvertReader(bytes.NewReader(raw), types.PCMFormatS16LE,
		resampler.Format{Channels: 1, SampleRate: SampleRate},
		resampler.Format{Channels: Channels, SampleRate: SampleRate},
	)
	require.NoError(t, err)

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	samples := Format.DecodeFloat32(out)
	require.Len(t, samples, 2*len(in))
	for _, v := range samples {
		require.InDelta(t, 0.5, v, 1e-3)
	}
}

func TestConvertReaderInvalid(t *testing.T) {
	_, err := newConvertReader(bytes.NewReader(nil), types.PCMFormatS16LE,
		resampler.Format{}, resampler.Format{Channels: Channels, SampleRate: SampleRate})
	require.Error(t, err)
}
