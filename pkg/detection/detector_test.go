package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/classifier"
	"github.com/xaionaro-go/semanticmixer/pkg/stability"
)

func testMapping(t *testing.T) *category.Mapping {
	mapping, err := category.NewMapping(
		category.Category{Name: category.Typing},
		category.Category{Name: category.Wind},
		category.Category{Name: category.Siren, Config: category.Config{SafetyOverride: true}},
	)
	require.NoError(t, err)
	return mapping
}

func testFrame() audio.Frame {
	return audio.NewFrame(make([]float32, 160), 1, 16000)
}

func TestDetectorStabilizes(t *testing.T) {
	ctx := context.Background()
	cls := classifier.NewStatic(category.Scores{category.Typing: 0.8, category.Wind: 0.1})
	d, err := NewDetector(cls, testMapping(t), stability.DefaultConfig(), nil)
	require.NoError(t, err)

	r, err := d.Classify(ctx, testFrame())
	require.NoError(t, err)
	assert.False(t, r.Stable[category.Typing])
	assert.True(t, r.States[category.Typing])
	assert.False(t, r.SafetyOverride)

	r, err = d.Classify(ctx, testFrame())
	require.NoError(t, err)
	assert.True(t, r.Stable[category.Typing])
	assert.False(t, r.Stable[category.Wind])
	assert.Equal(t, []Detection{
		{Category: category.Typing, Confidence: 0.8},
		{Category: category.Wind, Confidence: 0.1},
	}, r.Top)
}

func TestDetectorIgnoresUnknownCategories(t *testing.T) {
	cls := classifier.NewStatic(category.Scores{"vuvuzela": 0.9, category.Typing: 0.3})
	d, err := NewDetector(cls, testMapping(t), stability.DefaultConfig(), nil)
	require.NoError(t, err)

	r, err := d.Classify(context.Background(), testFrame())
	require.NoError(t, err)
	assert.Equal(t, category.Scores{category.Typing: 0.3}, r.Raw)
}

func TestDetectorSafety(t *testing.T) {
	cls := classifier.NewStatic(category.Scores{category.Siren: 0.9})
	d, err := NewDetector(cls, testMapping(t), stability.DefaultConfig(), nil)
	require.NoError(t, err)

	r, err := d.Classify(context.Background(), testFrame())
	require.NoError(t, err)
	assert.True(t, r.SafetyOverride)
	assert.False(t, d.SafetyTriggered(category.States{category.Typing: true}))
}

func TestDetectorErrors(t *testing.T) {
	cls := classifier.NewStatic(nil)
	d, err := NewDetector(cls, testMapping(t), stability.DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = d.Classify(context.Background(), audio.NewFrame(nil, 1, 16000))
	assert.ErrorIs(t, err, classifier.ErrEmptyInput)

	someErr := errors.New("model exploded")
	cls.Set(nil, someErr)
	_, err = d.Classify(context.Background(), testFrame())
	assert.ErrorIs(t, err, someErr)
}

func TestTopN(t *testing.T) {
	scores := category.Scores{
		category.Wind:   0.5,
		category.Typing: 0.5,
		category.Dog:    0.9,
		category.Music:  0.1,
	}
	assert.Equal(t, []Detection{
		{Category: category.Dog, Confidence: 0.9},
		{Category: category.Typing, Confidence: 0.5},
		{Category: category.Wind, Confidence: 0.5},
	}, TopN(scores, 3))
	assert.Len(t, TopN(scores, 10), 4)
	assert.Empty(t, TopN(scores, 0))
}
