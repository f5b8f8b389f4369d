// Package rnnoise implements a separator on top of the RNNoise denoiser:
// the denoised signal is the speech stem and the removed part is the
// background noise.
package rnnoise

import (
	"errors"
	"fmt"

	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/separator"
)

const (
	// SampleRate is the only sample rate RNNoise works at.
	SampleRate = audio.SampleRate(48_000)

	SpeechTarget = "Speech"
)

var ErrNotSupported = errors.New("built without RNNoise support, rebuild with '-tags rnnoise'")

var Targets = []string{separator.BackgroundNoiseTarget, SpeechTarget}

// stems combines the requested targets of one plane: the speech stem is
// the denoised signal, the background stem is what the denoiser removed.
func stems(input, speech []float32, targets []string) ([]float32, error) {
	if len(input) != len(speech) {
		return nil, fmt.Errorf("lengths of the input and the speech stem differ: %d != %d", len(input), len(speech))
	}
	var wantSpeech, wantNoise bool
	for _, target := range targets {
		switch target {
		case SpeechTarget:
			wantSpeech = true
		case separator.BackgroundNoiseTarget:
			wantNoise = true
		default:
			return nil, fmt.Errorf("%w: '%s'", separator.ErrUnknownTarget, target)
		}
	}

	result := make([]float32, len(input))
	switch {
	case wantSpeech && wantNoise:
		copy(result, input)
	case wantSpeech:
		copy(result, speech)
	case wantNoise:
		for idx := range input {
			result[idx] = input[idx] - speech[idx]
		}
	}
	return result, nil
}
