package yamnet

import (
	"fmt"

	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/resampler"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
)

const (
	SampleRate = audio.SampleRate(16000)

	// NumClasses is the amount of AudioSet classes the model scores.
	NumClasses = 521

	// WindowSamples is the amount of samples fed into the model per run (3s).
	WindowSamples = 3 * int(SampleRate)

	// patchHop and patchWindow describe how the model splits its input.
	patchWindow = 15600
	patchHop    = 7680

	// NumPatches is the amount of score rows the model returns per run.
	NumPatches = (WindowSamples-patchWindow)/patchHop + 1
)

// prepareInput converts the frame into the model input: the latest
// WindowSamples of 16kHz mono audio, zero-padded at the beginning.
func prepareInput(frame audio.Frame, dst []float32) error {
	mono, err := resampler.Resample(frame, resampler.Format{Channels: 1, SampleRate: SampleRate})
	if err != nil {
		return fmt.Errorf("unable to convert the audio to %d Hz mono: %w", SampleRate, err)
	}
	if len(dst) != WindowSamples {
		return fmt.Errorf("the input buffer has length %d, expected %d", len(dst), WindowSamples)
	}

	samples := mono.Samples
	if len(samples) > WindowSamples {
		samples = samples[len(samples)-WindowSamples:]
	}
	pad := WindowSamples - len(samples)
	for idx := 0; idx < pad; idx++ {
		dst[idx] = 0
	}
	copy(dst[pad:], samples)
	return nil
}

// categoryScores averages the class scores over patches, and then maps
// every category to the mean of its configured classes.
func categoryScores(mapping *category.Mapping, classScores []float32) (category.Scores, error) {
	if len(classScores) == 0 || len(classScores)%NumClasses != 0 {
		return nil, fmt.Errorf("unexpected output length %d, expected a multiple of %d", len(classScores), NumClasses)
	}
	patches := len(classScores) / NumClasses

	mean := make([]float64, NumClasses)
	for patch := 0; patch < patches; patch++ {
		row := classScores[patch*NumClasses : (patch+1)*NumClasses]
		for idx, v := range row {
			mean[idx] += float64(v)
		}
	}
	for idx := range mean {
		mean[idx] /= float64(patches)
	}

	categories := mapping.All()
	scores := make(category.Scores, len(categories))
	for _, cat := range categories {
		var sum float64
		count := 0
		for _, classIdx := range cat.YAMNetIndices {
			if classIdx >= NumClasses {
				continue
			}
			sum += mean[classIdx]
			count++
		}
		if count == 0 {
			scores[cat.Name] = 0
			continue
		}
		scores[cat.Name] = min(1, max(0, sum/float64(count)))
	}
	return scores, nil
}
