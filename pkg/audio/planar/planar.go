// Package planar converts interleaved samples into per-channel planes and back.
package planar

import (
	"fmt"

	"github.com/xaionaro-go/semanticmixer/pkg/audio"
)

// Planarize splits interleaved samples into one plane per channel.
func Planarize(channels audio.Channel, input []float32) ([][]float32, error) {
	if channels == 0 {
		return nil, fmt.Errorf("zero channels")
	}
	if len(input)%int(channels) != 0 {
		return nil, fmt.Errorf("expected a length that is a multiple of %d, but received %d", channels, len(input))
	}

	samplesPerChan := len(input) / int(channels)
	planes := make([][]float32, channels)
	for ch := range planes {
		planes[ch] = make([]float32, samplesPerChan)
	}
	if channels == 1 {
		copy(planes[0], input)
		return planes, nil
	}
	for idx, v := range input {
		planes[idx%int(channels)][idx/int(channels)] = v
	}
	return planes, nil
}

// Unplanarize interleaves the planes back; all planes must be of the same length.
func Unplanarize(planes [][]float32) ([]float32, error) {
	if len(planes) == 0 {
		return nil, fmt.Errorf("no planes")
	}
	samplesPerChan := len(planes[0])
	for ch, plane := range planes {
		if len(plane) != samplesPerChan {
			return nil, fmt.Errorf("the length of plane %d differs from the first one: %d != %d", ch, len(plane), samplesPerChan)
		}
	}

	channels := len(planes)
	output := make([]float32, samplesPerChan*channels)
	for ch, plane := range planes {
		for samplePos, v := range plane {
			output[samplePos*channels+ch] = v
		}
	}
	return output, nil
}

// PlanarizeFrame is Planarize for the samples of a frame.
func PlanarizeFrame(frame audio.Frame) ([][]float32, error) {
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	return Planarize(frame.Channels, frame.Samples)
}
