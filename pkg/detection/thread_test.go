package detection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/classifier"
	"github.com/xaionaro-go/semanticmixer/pkg/stability"
)

type battery float64

func (b battery) BatteryPercent() (float64, bool) {
	if b < 0 {
		return 0, false
	}
	return float64(b), true
}

func newTestThread(
	t *testing.T,
	cls classifier.Classifier,
	source AudioSource,
	callback Callback,
) *Thread {
	d, err := NewDetector(cls, testMapping(t), stability.DefaultConfig(), nil)
	require.NoError(t, err)
	th, err := NewThread(d, source, callback, nil)
	require.NoError(t, err)
	th.BaseInterval = time.Millisecond
	return th
}

func TestThreadDeliversResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		locker  sync.Mutex
		results []*Result
	)
	th := newTestThread(t,
		classifier.NewStatic(category.Scores{category.Typing: 0.8}),
		func(context.Context) (audio.Frame, bool) { return testFrame(), true },
		func(_ context.Context, r *Result) {
			locker.Lock()
			defer locker.Unlock()
			results = append(results, r)
		},
	)
	require.NoError(t, th.Start(ctx))
	require.Error(t, th.Start(ctx))

	require.Eventually(t, func() bool {
		locker.Lock()
		defer locker.Unlock()
		return len(results) >= 3
	}, 5*time.Second, time.Millisecond)

	th.Stop()
	th.Stop()
	require.True(t, th.Wait(time.Second))

	locker.Lock()
	defer locker.Unlock()
	assert.Equal(t, 0.8, results[0].Raw[category.Typing])
	assert.True(t, results[len(results)-1].Stable[category.Typing])
}

func TestThreadSurvivesFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sourceCalls, callbacks atomic.Int64
	cls := classifier.NewStatic(category.Scores{category.Typing: 0.8})
	cls.Set(nil, errors.New("transient"))

	th := newTestThread(t, cls,
		func(context.Context) (audio.Frame, bool) {
			// no data on odd calls
			return testFrame(), sourceCalls.Add(1)%2 == 0
		},
		func(context.Context, *Result) {
			callbacks.Add(1)
			panic("callback failure")
		},
	)
	require.NoError(t, th.Start(ctx))

	require.Eventually(t, func() bool { return cls.Calls() >= 3 }, 5*time.Second, time.Millisecond)
	assert.Zero(t, callbacks.Load())

	cls.Set(category.Scores{category.Typing: 0.8}, nil)
	require.Eventually(t, func() bool { return callbacks.Load() >= 2 }, 5*time.Second, time.Millisecond)

	cancel()
	require.True(t, th.Wait(time.Second))
}

func TestThreadInterval(t *testing.T) {
	th := newTestThread(t, classifier.NewStatic(nil),
		func(context.Context) (audio.Frame, bool) { return audio.Frame{}, false },
		func(context.Context, *Result) {},
	)
	assert.Equal(t, time.Millisecond, th.Interval())

	dc, err := stability.NewAdaptiveDutyCycle(time.Second, 2*time.Second, 3*time.Second, battery(10))
	require.NoError(t, err)
	th.DutyCycle = dc
	assert.Equal(t, 3*time.Second, th.Interval())

	// no battery reading keeps the base interval, not the normal one
	dc.Battery = battery(-1)
	assert.Equal(t, time.Millisecond, th.Interval())

	assert.Nil(t, th.RunOnce(context.Background()))
	assert.True(t, th.Wait(time.Millisecond))
}
