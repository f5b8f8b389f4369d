package safety

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/gain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestOverride(t *testing.T) (*Override, *fakeClock) {
	o, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	o.Now = clock.Now
	return o, clock
}

func TestStateMachine(t *testing.T) {
	ctx := context.Background()
	o, clock := newTestOverride(t)

	s := o.Check(ctx, category.Scores{category.Siren: 0.5, category.Speech: 0.9})
	assert.Equal(t, StateNormal, s.State)
	assert.False(t, o.IsActive())

	s = o.Check(ctx, category.Scores{category.Siren: 0.8, category.Alarm: 0.9})
	assert.Equal(t, StateOverrideActive, s.State)
	assert.Equal(t, category.Alarm, s.Category)
	assert.Equal(t, 0.9, s.Confidence)

	clock.Advance(time.Second)
	s = o.Check(ctx, category.Scores{})
	assert.Equal(t, StateOverrideFading, s.State)
	assert.True(t, s.Active)
	assert.Empty(t, s.Category)
	assert.InDelta(t, 0.8, s.Confidence, 1e-9)

	clock.Advance(time.Second)
	s = o.Check(ctx, category.Scores{category.Siren: 0.7})
	assert.Equal(t, StateOverrideActive, s.State, "a new detection resets the hold timer")

	clock.Advance(4 * time.Second)
	s = o.Check(ctx, category.Scores{})
	assert.Equal(t, StateOverrideFading, s.State)
	assert.InDelta(t, 0.2, s.Confidence, 1e-9)

	clock.Advance(time.Second)
	s = o.Check(ctx, category.Scores{})
	assert.Equal(t, StateNormal, s.State)
	assert.False(t, o.IsActive())
}

func TestHoldTime(t *testing.T) {
	ctx := context.Background()
	o, clock := newTestOverride(t)
	o.Check(ctx, category.Scores{category.Siren: 1})

	for elapsed := time.Duration(0); elapsed < DefaultHoldTime; elapsed += 250 * time.Millisecond {
		o.Now = func() time.Time { return clock.now.Add(elapsed) }
		o.Check(ctx, category.Scores{})
		require.True(t, o.IsActive(), elapsed)
	}
	o.Now = func() time.Time { return clock.now.Add(DefaultHoldTime) }
	o.Check(ctx, category.Scores{})
	assert.False(t, o.IsActive())
}

func TestApplyOverride(t *testing.T) {
	ctx := context.Background()
	o, clock := newTestOverride(t)
	user := gain.Vector{Speech: 0.5, Noise: 0.1, Events: 0.3}

	assert.Equal(t, user, o.ApplyOverride(ctx, user, category.Scores{category.Siren: 0.1}))

	got := o.ApplyOverride(ctx, user, category.Scores{category.Siren: 0.9})
	assert.InDelta(t, 0.1, got.Speech, 1e-9)
	assert.InDelta(t, 0.02, got.Noise, 1e-9)
	assert.Equal(t, 1.0, got.Events)

	clock.Advance(2 * time.Second)
	got = o.ApplyOverride(ctx, user, category.Scores{})
	assert.Equal(t, 1.0, got.Events)

	clock.Advance(DefaultHoldTime)
	assert.Equal(t, user, o.ApplyOverride(ctx, user, category.Scores{}))
}

func TestAlertsOncePerActivation(t *testing.T) {
	ctx := context.Background()
	o, clock := newTestOverride(t)
	var alerts []Status
	o.OnAlert(func(_ context.Context, s Status) { alerts = append(alerts, s) })

	o.Check(ctx, category.Scores{category.Siren: 0.9})
	clock.Advance(time.Second)
	o.Check(ctx, category.Scores{category.Siren: 0.95})
	require.Len(t, alerts, 1)
	assert.Equal(t, category.Siren, alerts[0].Category)

	clock.Advance(DefaultHoldTime)
	o.Check(ctx, category.Scores{})
	o.Check(ctx, category.Scores{category.Alarm: 0.8})
	require.Len(t, alerts, 2)
	assert.Equal(t, category.Alarm, alerts[1].Category)
}

func TestStatusStrings(t *testing.T) {
	ctx := context.Background()
	o, clock := newTestOverride(t)
	assert.Equal(t, "Normal", o.StatusString())
	assert.Nil(t, o.AlertInfo())

	o.Check(ctx, category.Scores{category.Siren: 0.85})
	assert.Equal(t, "SAFETY ALERT: SIREN detected (85%)", o.StatusString())
	info := o.AlertInfo()
	require.NotNil(t, info)
	assert.True(t, info.ShowBanner)

	clock.Advance(2500 * time.Millisecond)
	o.Check(ctx, category.Scores{})
	assert.Equal(t, "Safety override fading... (50%)", o.StatusString())
	assert.False(t, o.AlertInfo().ShowBanner)

	o.Reset()
	assert.Equal(t, StateNormal, o.State())
	assert.Equal(t, "OVERRIDE_FADING", StateOverrideFading.String())
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HoldTime = 0
	_, err := New(cfg, nil)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.DuckAmount = 2
	_, err = New(cfg, nil)
	assert.Error(t, err)
}
