package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/gain"
	"github.com/xaionaro-go/semanticmixer/pkg/observe"
)

// DeviceFactory opens the audio device for a run of the worker.
type DeviceFactory func(ctx context.Context) (audio.Device, error)

// Mixer is the control-side handle of the AudioWorker: it starts and
// stops it, and talks to it only through the gain and telemetry channels.
type Mixer struct {
	Config    Config
	NewDevice DeviceFactory
	Processor Processor
	Metrics   *observe.Metrics

	gains     chan gain.Vector
	telemetry chan Telemetry

	locker  sync.Mutex
	worker  *AudioWorker
	device  audio.Device
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

func NewMixer(
	cfg Config,
	newDevice DeviceFactory,
	processor Processor,
	metrics *observe.Metrics,
) (*Mixer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if newDevice == nil {
		return nil, fmt.Errorf("the device factory is mandatory")
	}
	return &Mixer{
		Config:    cfg,
		NewDevice: newDevice,
		Processor: processor,
		Metrics:   metrics,
		gains:     make(chan gain.Vector, cfg.GainQueueSize),
		telemetry: make(chan Telemetry, cfg.TelemetryQueueSize),
	}, nil
}

// Start opens the device and runs a new worker in the background; it is
// a no-op if the worker is already running.
func (m *Mixer) Start(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Start")
	defer func() { logger.Debugf(ctx, "/Start: %v", _err) }()

	m.locker.Lock()
	defer m.locker.Unlock()
	if m.isRunningLocked() {
		return nil
	}

	device, err := m.NewDevice(ctx)
	if err != nil {
		return fmt.Errorf("unable to open the audio device: %w", err)
	}
	w, err := NewAudioWorker(m.Config, device, m.Processor, m.gains, m.telemetry, m.Metrics)
	if err != nil {
		_ = device.Close()
		return fmt.Errorf("unable to create the audio worker: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.worker, m.device, m.cancel, m.done, m.lastErr = w, device, cancel, done, nil
	observability.Go(ctx, func(ctx context.Context) {
		defer close(done)
		err := w.Run(ctx)
		if err != nil {
			logger.Errorf(ctx, "the audio worker stopped: %v", err)
		}
		m.locker.Lock()
		defer m.locker.Unlock()
		m.lastErr = err
	})
	return nil
}

// Stop stops the loops, waits for them up to the join timeout, and then
// closes the device.
func (m *Mixer) Stop(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Stop")
	defer func() { logger.Debugf(ctx, "/Stop: %v", _err) }()

	m.locker.Lock()
	cancel, done, device := m.cancel, m.done, m.device
	m.cancel, m.done, m.device, m.worker = nil, nil, nil, nil
	m.locker.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	var timeoutErr error
	t := time.NewTimer(m.Config.JoinTimeout)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
		timeoutErr = fmt.Errorf("the audio worker did not stop within %v", m.Config.JoinTimeout)
		logger.Warnf(ctx, "%v, closing the device anyway", timeoutErr)
	}

	if err := device.Close(); err != nil {
		return fmt.Errorf("unable to close the audio device: %w", err)
	}
	return timeoutErr
}

func (m *Mixer) IsRunning() bool {
	m.locker.Lock()
	defer m.locker.Unlock()
	return m.isRunningLocked()
}

func (m *Mixer) isRunningLocked() bool {
	if m.done == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

// Err returns the error the last run of the worker ended with.
func (m *Mixer) Err() error {
	m.locker.Lock()
	defer m.locker.Unlock()
	return m.lastErr
}

// SetGains queues new target gains without blocking; if the queue is full
// the oldest pending value is dropped.
func (m *Mixer) SetGains(ctx context.Context, gains gain.Vector) {
	gains = gains.Clamp()
	for {
		select {
		case m.gains <- gains:
			return
		default:
		}
		select {
		case <-m.gains:
			logger.Tracef(ctx, "gain channel is full, dropping the oldest value")
			m.Metrics.MessageDropped(ctx, "gains")
		default:
		}
	}
}

// Levels returns the next pending telemetry message, if any.
func (m *Mixer) Levels() (Telemetry, bool) {
	select {
	case t := <-m.telemetry:
		return t, true
	default:
		return Telemetry{}, false
	}
}

// Window returns the latest detection window of the captured audio; ok is
// false until enough audio is captured.
func (m *Mixer) Window(ctx context.Context) (audio.Frame, bool) {
	m.locker.Lock()
	w := m.worker
	m.locker.Unlock()
	if w == nil {
		return audio.Frame{}, false
	}
	samples, err := w.Window.Read(w.Window.Capacity())
	if err != nil {
		logger.Tracef(ctx, "the detection window is not full yet: %v", err)
		return audio.Frame{}, false
	}
	format := w.Device.Format()
	return audio.NewFrame(samples, format.Channels, format.SampleRate), true
}
