package spectral

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/classifier"
)

func tone(hz float64, seconds float64, rate audio.SampleRate) audio.Frame {
	samples := make([]float32, int(seconds*float64(rate)))
	for idx := range samples {
		samples[idx] = float32(0.5 * math.Sin(2*math.Pi*hz*float64(idx)/float64(rate)))
	}
	return audio.NewFrame(samples, 1, rate)
}

func newTestClassifier(t *testing.T) *Classifier {
	mapping, err := category.NewMapping(
		category.Category{Name: category.Typing, Config: category.Config{Band: &category.Band{LowHz: 2000, HighHz: 8000}}},
		category.Category{Name: category.Siren, Config: category.Config{Band: &category.Band{LowHz: 600, HighHz: 1600}}},
		category.Category{Name: category.Wind, Config: category.Config{Band: &category.Band{LowHz: 20, HighHz: 200}}},
		category.Category{Name: category.Knock},
	)
	require.NoError(t, err)
	c, err := New(mapping)
	require.NoError(t, err)
	return c
}

func TestClassifyBands(t *testing.T) {
	ctx := context.Background()
	c := newTestClassifier(t)

	scores, err := c.Classify(ctx, tone(5000, 1, 44100))
	require.NoError(t, err)
	assert.Greater(t, scores[category.Typing], 0.9)
	assert.Less(t, scores[category.Siren], 0.1)
	assert.Less(t, scores[category.Wind], 0.1)
	assert.Zero(t, scores[category.Knock])

	scores, err = c.Classify(ctx, tone(1000, 1, 48000))
	require.NoError(t, err)
	assert.Greater(t, scores[category.Siren], 0.9)
	assert.Less(t, scores[category.Typing], 0.1)
}

func TestClassifySilence(t *testing.T) {
	c := newTestClassifier(t)
	scores, err := c.Classify(context.Background(), audio.NewSilentFrame(16000, 1, 16000))
	require.NoError(t, err)
	for name, v := range scores {
		assert.Zero(t, v, name)
	}
}

func TestClassifyEmpty(t *testing.T) {
	c := newTestClassifier(t)
	_, err := c.Classify(context.Background(), audio.NewFrame(nil, 1, 16000))
	assert.ErrorIs(t, err, classifier.ErrEmptyInput)
}
