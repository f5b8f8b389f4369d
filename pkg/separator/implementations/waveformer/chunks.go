package waveformer

import (
	"fmt"

	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/separator"
)

const (
	SampleRate = audio.SampleRate(44100)

	// ChunkSamples is the fixed input length of the exported model (3s).
	ChunkSamples = 3 * int(SampleRate)
)

// queryVector is the one-hot encoding of targets over WaveformerTargets.
func queryVector(targets []string) ([]float32, error) {
	if err := separator.CheckTargets(separator.WaveformerTargets, targets); err != nil {
		return nil, err
	}
	result := make([]float32, len(separator.WaveformerTargets))
	for idx, known := range separator.WaveformerTargets {
		for _, target := range targets {
			if target == known {
				result[idx] = 1
			}
		}
	}
	return result, nil
}

// forEachChunk calls fn for consecutive ChunkSamples-long pieces of a
// plane; the last piece is zero-padded, and the output is trimmed back.
func forEachChunk(
	plane []float32,
	fn func(in []float32, out []float32) error,
) ([]float32, error) {
	result := make([]float32, len(plane))
	in := make([]float32, ChunkSamples)
	out := make([]float32, ChunkSamples)
	for offset := 0; offset < len(plane); offset += ChunkSamples {
		n := copy(in, plane[offset:])
		for idx := n; idx < ChunkSamples; idx++ {
			in[idx] = 0
		}
		if err := fn(in, out); err != nil {
			return nil, fmt.Errorf("unable to process the chunk at %d: %w", offset, err)
		}
		copy(result[offset:offset+n], out[:n])
	}
	return result, nil
}

func deinterleave(frame audio.Frame) [][]float32 {
	channels := int(frame.Channels)
	planes := make([][]float32, channels)
	length := frame.Len()
	for ch := range planes {
		planes[ch] = make([]float32, length)
		for idx := 0; idx < length; idx++ {
			planes[ch][idx] = frame.Samples[idx*channels+ch]
		}
	}
	return planes
}

func interleave(planes [][]float32) []float32 {
	if len(planes) == 0 {
		return nil
	}
	channels := len(planes)
	result := make([]float32, len(planes[0])*channels)
	for ch, plane := range planes {
		for idx, v := range plane {
			result[idx*channels+ch] = v
		}
	}
	return result
}
