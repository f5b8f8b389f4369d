package autocontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/profile"
)

func testManager(t *testing.T, extra ...profile.Profile) *profile.Manager {
	profiles := append([]profile.Profile{
		{
			ID:           "focus",
			Name:         "Focus Mode",
			Suppressions: map[category.Name]bool{category.Typing: true, category.Wind: true},
			AutoTriggers: []profile.AutoTrigger{{Category: category.Typing, Threshold: 0.6}},
		},
		{
			ID:           "office",
			Name:         "Office Mode",
			Suppressions: map[category.Name]bool{category.Typing: true, category.Chatter: true},
			AutoTriggers: []profile.AutoTrigger{{Category: category.Chatter, Threshold: 0.7}},
		},
	}, extra...)
	m, err := profile.NewManager(profiles...)
	require.NoError(t, err)
	return m
}

func TestRecommendHighestScore(t *testing.T) {
	c := New(testManager(t))

	rec := c.Recommend(category.Scores{category.Typing: 0.6, category.Chatter: 0.9})
	require.NotNil(t, rec.Profile)
	assert.Equal(t, "office", rec.Profile.ID)
	assert.InDelta(t, 0.9, rec.Score, 1e-9)
	assert.Equal(t, "Detected: Chatter (90%)", rec.Reason)

	rec = c.Recommend(category.Scores{category.Typing: 0.95, category.Chatter: 0.5})
	require.NotNil(t, rec.Profile)
	assert.Equal(t, "focus", rec.Profile.ID)

	rec = c.Recommend(category.Scores{category.Typing: 0.1})
	assert.Nil(t, rec.Profile)
	assert.Equal(t, "No triggers matched", rec.Reason)
}

func TestRecommendTieKeepsFirst(t *testing.T) {
	c := New(testManager(t))
	for i := 0; i < 10; i++ {
		rec := c.Recommend(category.Scores{category.Typing: 0.8, category.Chatter: 0.8})
		require.NotNil(t, rec.Profile)
		assert.Equal(t, "focus", rec.Profile.ID)
	}
}

func TestScoreSumsTriggered(t *testing.T) {
	p := profile.Profile{AutoTriggers: []profile.AutoTrigger{
		{Category: category.Speech, Threshold: 0.5},
		{Category: category.Typing, Threshold: 0.5},
		{Category: category.Wind, Threshold: 0.5},
	}}
	scores := category.Scores{category.Speech: 0.85, category.Typing: 0.6, category.Wind: 0.2}
	assert.InDelta(t, 1.45, Score(p, scores), 1e-9)
	assert.Equal(t, "Detected: Speech (85%), Typing (60%)", Reason(p, scores))
}

func TestShouldSwitch(t *testing.T) {
	m := testManager(t)
	c := New(m)
	focus, _ := m.Profile("focus")
	office, _ := m.Profile("office")

	scores := category.Scores{category.Typing: 0.7, category.Chatter: 0.75}
	rec := c.Recommend(scores)
	require.Equal(t, "office", rec.Profile.ID)

	assert.True(t, c.ShouldSwitch(rec, nil, scores))
	assert.False(t, c.ShouldSwitch(rec, &office, scores))
	assert.False(t, c.ShouldSwitch(rec, &focus, scores), "0.75 - 0.7 is within the hysteresis")

	scores = category.Scores{category.Typing: 0.65, category.Chatter: 0.9}
	rec = c.Recommend(scores)
	assert.True(t, c.ShouldSwitch(rec, &focus, scores))

	assert.False(t, c.ShouldSwitch(Recommendation{}, &focus, scores))
}
