package detection

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/stability"
)

const DefaultBaseInterval = 3 * time.Second

// AudioSource returns the latest audio window; ok is false if there is
// no data yet.
type AudioSource func(ctx context.Context) (frame audio.Frame, ok bool)

// Callback receives the results of every successful cycle.
type Callback func(ctx context.Context, result *Result)

// Thread periodically classifies the latest audio window in the background.
type Thread struct {
	Detector     *Detector
	Source       AudioSource
	Callback     Callback
	DutyCycle    *stability.AdaptiveDutyCycle
	BaseInterval time.Duration

	locker   sync.Mutex
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewThread(
	detector *Detector,
	source AudioSource,
	callback Callback,
	dutyCycle *stability.AdaptiveDutyCycle,
) (*Thread, error) {
	if detector == nil || source == nil || callback == nil {
		return nil, fmt.Errorf("the detector, the audio source and the callback are mandatory")
	}
	return &Thread{
		Detector:     detector,
		Source:       source,
		Callback:     callback,
		DutyCycle:    dutyCycle,
		BaseInterval: DefaultBaseInterval,
	}, nil
}

// Interval is the duty-cycle interval for the current battery level, or
// BaseInterval if there is no duty cycle or no battery information.
func (t *Thread) Interval() time.Duration {
	if t.DutyCycle == nil {
		return t.BaseInterval
	}
	interval, ok := t.DutyCycle.Interval()
	if !ok {
		return t.BaseInterval
	}
	return interval
}

func (t *Thread) Start(ctx context.Context) error {
	t.locker.Lock()
	defer t.locker.Unlock()
	if t.stopChan != nil {
		return fmt.Errorf("already started")
	}
	stopChan := make(chan struct{})
	doneChan := make(chan struct{})
	t.stopChan, t.doneChan = stopChan, doneChan

	observability.Go(ctx, func(ctx context.Context) {
		defer close(doneChan)
		logger.Debugf(ctx, "detection loop started")
		defer logger.Debugf(ctx, "detection loop finished")
		t.loop(ctx, stopChan)
	})
	return nil
}

func (t *Thread) loop(ctx context.Context, stopChan <-chan struct{}) {
	for {
		interval := t.Interval()
		if result := t.RunOnce(ctx); result != nil {
			t.notify(ctx, result)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stopChan:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RunOnce executes one detection cycle; it returns nil if there was no
// audio or the classification failed.
func (t *Thread) RunOnce(ctx context.Context) *Result {
	frame, ok := t.Source(ctx)
	if !ok {
		logger.Tracef(ctx, "no audio yet, skipping the cycle")
		return nil
	}
	result, err := t.Detector.Classify(ctx, frame)
	if err != nil {
		logger.Errorf(ctx, "classification failed: %v", err)
		return nil
	}
	return result
}

func (t *Thread) notify(ctx context.Context, result *Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "detection callback panicked: %v\n%s", r, debug.Stack())
		}
	}()
	t.Callback(ctx, result)
}

// Stop requests the loop to finish; an in-flight cycle is not interrupted.
func (t *Thread) Stop() {
	t.locker.Lock()
	defer t.locker.Unlock()
	if t.stopChan == nil {
		return
	}
	select {
	case <-t.stopChan:
	default:
		close(t.stopChan)
	}
}

// Wait blocks until the loop finishes or the timeout elapses; it returns
// false on timeout.
func (t *Thread) Wait(timeout time.Duration) bool {
	t.locker.Lock()
	doneChan := t.doneChan
	t.locker.Unlock()
	if doneChan == nil {
		return true
	}
	select {
	case <-doneChan:
		return true
	case <-time.After(timeout):
		return false
	}
}
