package stability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
)

func TestConfidenceBufferMajority(t *testing.T) {
	b, err := NewConfidenceBuffer(3, 0.5)
	require.NoError(t, err)

	var got []bool
	for _, c := range []float64{0.4, 0.4, 0.7, 0.8} {
		got = append(got, b.Update(category.Scores{category.Typing: c})[category.Typing])
	}
	assert.Equal(t, []bool{false, false, false, true}, got)
}

func TestConfidenceBufferRejectsSingleSpike(t *testing.T) {
	b, err := NewConfidenceBuffer(3, 0.5)
	require.NoError(t, err)

	for _, c := range []float64{0.1, 0.9, 0.1, 0.1, 0.9, 0.1} {
		assert.False(t, b.Update(category.Scores{category.Dog: c})[category.Dog])
	}
}

func TestConfidenceBufferThresholdIsStrict(t *testing.T) {
	b, err := NewConfidenceBuffer(3, 0.5)
	require.NoError(t, err)
	b.Update(category.Scores{category.Wind: 0.5})
	assert.False(t, b.Update(category.Scores{category.Wind: 0.5})[category.Wind])
}

func TestConfidenceBufferValidation(t *testing.T) {
	_, err := NewConfidenceBuffer(1, 0.5)
	assert.Error(t, err)
	_, err = NewConfidenceBuffer(3, 1.5)
	assert.Error(t, err)
}

func TestSchmittTriggerHysteresis(t *testing.T) {
	s, err := NewSchmittTrigger(0.7, 0.4)
	require.NoError(t, err)

	var got []bool
	for _, c := range []float64{0.6, 0.72, 0.5, 0.3} {
		got = append(got, s.Update(category.Siren, c))
	}
	assert.Equal(t, []bool{false, true, true, false}, got)
}

func TestSchmittTriggerPerCategory(t *testing.T) {
	s, err := NewSchmittTrigger(0.7, 0.4)
	require.NoError(t, err)

	states := s.UpdateAll(category.Scores{category.Siren: 0.9, category.Alarm: 0.5})
	assert.True(t, states[category.Siren])
	assert.False(t, states[category.Alarm])
	assert.True(t, s.State(category.Siren))

	s.Reset()
	assert.False(t, s.State(category.Siren))
}

func TestSchmittTriggerValidation(t *testing.T) {
	_, err := NewSchmittTrigger(0.4, 0.7)
	assert.Error(t, err)
	_, err = NewSchmittTrigger(0.5, 0.5)
	assert.Error(t, err)
}

func TestMedianSmoother(t *testing.T) {
	m, err := NewMedianSmoother(3)
	require.NoError(t, err)

	var got []float64
	for _, c := range []float64{0.1, 0.9, 0.2, 0.3, 0.95} {
		got = append(got, m.Smooth(category.Scores{category.Typing: c})[category.Typing])
	}
	assert.InDeltaSlice(t, []float64{0.1, 0.5, 0.2, 0.3, 0.3}, got, 1e-12)
}

func TestAdaptiveDutyCycle(t *testing.T) {
	d, err := NewAdaptiveDutyCycle(DefaultNormalInterval, DefaultSavingInterval, DefaultCriticalInterval, nil)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, d.IntervalFor(100))
	assert.Equal(t, 3*time.Second, d.IntervalFor(51))
	assert.Equal(t, 8*time.Second, d.IntervalFor(50))
	assert.Equal(t, 8*time.Second, d.IntervalFor(20))
	assert.Equal(t, 15*time.Second, d.IntervalFor(19))
	assert.Equal(t, 15*time.Second, d.IntervalFor(0))

	_, ok := d.Interval()
	assert.False(t, ok)

	d.Battery = staticBattery{percent: 10, ok: true}
	interval, ok := d.Interval()
	require.True(t, ok)
	assert.Equal(t, 15*time.Second, interval)

	d.Battery = staticBattery{ok: false}
	_, ok = d.Interval()
	assert.False(t, ok)

	_, err = NewAdaptiveDutyCycle(0, time.Second, time.Second, nil)
	assert.Error(t, err)
}

type staticBattery struct {
	percent float64
	ok      bool
}

func (b staticBattery) BatteryPercent() (float64, bool) {
	return b.percent, b.ok
}

func TestStack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableMedian = true
	s, err := NewStack(cfg)
	require.NoError(t, err)

	var out Output
	for i := 0; i < 3; i++ {
		out = s.Apply(category.Scores{category.Siren: 0.9, category.Typing: 0.1})
	}
	assert.True(t, out.Stable[category.Siren])
	assert.True(t, out.States[category.Siren])
	assert.False(t, out.Stable[category.Typing])
	assert.False(t, out.States[category.Typing])
	assert.InDelta(t, 0.9, out.Smoothed[category.Siren], 1e-12)

	s.Reset()
	out = s.Apply(category.Scores{category.Siren: 0.9})
	assert.False(t, out.Stable[category.Siren])
}
