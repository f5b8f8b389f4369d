// Package worker runs the real-time audio path: capture, inference and
// playback loops connected through ring buffers, controlled through
// bounded channels only.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/gain"
	"github.com/xaionaro-go/semanticmixer/pkg/observe"
	"github.com/xaionaro-go/semanticmixer/pkg/ringbuffer"
	"golang.org/x/sync/errgroup"
)

// Processor transforms one block of captured audio. It must return a
// frame of the same shape and must not fail.
type Processor interface {
	ProcessAudio(ctx context.Context, frame audio.Frame) audio.Frame
}

// EventSeparator is optionally implemented by a Processor to split the
// safety-relevant events out of a processed frame, so that they follow
// the events bus instead of the speech bus.
type EventSeparator interface {
	SeparateEvents(ctx context.Context, frame audio.Frame) (audio.Frame, bool)
}

// AudioWorker owns the device, the ring buffers, the gain smoother and
// the inference call for one run.
type AudioWorker struct {
	Config    Config
	Device    audio.Device
	Processor Processor
	Metrics   *observe.Metrics

	Input    *ringbuffer.RingBuffer
	Output   *ringbuffer.RingBuffer
	Window   *ringbuffer.RingBuffer
	Smoother *gain.Smoother

	gains     <-chan gain.Vector
	telemetry chan<- Telemetry
}

func NewAudioWorker(
	cfg Config,
	device audio.Device,
	processor Processor,
	gains <-chan gain.Vector,
	telemetry chan<- Telemetry,
	metrics *observe.Metrics,
) (*AudioWorker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	format := device.Format()
	if err := audio.ValidateStreamFormat(format); err != nil {
		return nil, fmt.Errorf("invalid stream format: %w", err)
	}

	capacity := samplesFor(cfg.BufferDuration, uint32(format.SampleRate), uint32(format.Channels))
	if capacity < format.SamplesPerBuffer() {
		capacity = format.SamplesPerBuffer()
	}
	input, err := ringbuffer.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("unable to create the input buffer: %w", err)
	}
	output, err := ringbuffer.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("unable to create the output buffer: %w", err)
	}
	window, err := ringbuffer.New(samplesFor(cfg.WindowDuration, uint32(format.SampleRate), uint32(format.Channels)))
	if err != nil {
		return nil, fmt.Errorf("unable to create the detection window buffer: %w", err)
	}
	smoother, err := gain.NewSmoother(cfg.SmoothingAlpha, cfg.NoiseFloor)
	if err != nil {
		return nil, fmt.Errorf("unable to create the gain smoother: %w", err)
	}

	return &AudioWorker{
		Config:    cfg,
		Device:    device,
		Processor: processor,
		Metrics:   metrics,
		Input:     input,
		Output:    output,
		Window:    window,
		Smoother:  smoother,
		gains:     gains,
		telemetry: telemetry,
	}, nil
}

// Run starts the device and blocks until ctx is cancelled or a loop
// fails. It does not close the device.
func (w *AudioWorker) Run(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Run")
	defer func() { logger.Tracef(ctx, "/Run: %v", _err) }()

	if err := w.Device.Start(ctx); err != nil {
		return fmt.Errorf("unable to start the audio device: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.captureLoop(ctx)
	})
	g.Go(func() error {
		return w.inferenceLoop(ctx)
	})
	g.Go(func() error {
		return w.playbackLoop(ctx)
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *AudioWorker) captureLoop(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "captureLoop")
	defer func() { logger.Debugf(ctx, "/captureLoop: %v", _err) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := w.Device.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return fmt.Errorf("the audio device is closed: %w", err)
			}
			logger.Errorf(ctx, "unable to read from the audio device: %v", err)
			w.sleep(ctx)
			continue
		}
		if discarded := w.Input.Write(frame.Samples); discarded > 0 {
			logger.Tracef(ctx, "input buffer overrun: %d samples discarded", discarded)
		}
		w.Window.Write(frame.Samples)
	}
}

func (w *AudioWorker) playbackLoop(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "playbackLoop")
	defer func() { logger.Debugf(ctx, "/playbackLoop: %v", _err) }()

	format := w.Device.Format()
	frameSamples := format.SamplesPerBuffer()
	silence := make([]float32, frameSamples)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		samples, err := w.Output.Read(frameSamples)
		if err != nil {
			w.Metrics.Underrun(ctx, "playback")
			samples = silence
		}
		if err := w.Device.Write(ctx, audio.NewFrame(samples, format.Channels, format.SampleRate)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return fmt.Errorf("the audio device is closed: %w", err)
			}
			logger.Errorf(ctx, "unable to write to the audio device: %v", err)
			w.sleep(ctx)
		}
	}
}

func (w *AudioWorker) inferenceLoop(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "inferenceLoop")
	defer func() { logger.Debugf(ctx, "/inferenceLoop: %v", _err) }()

	format := w.Device.Format()
	frameSamples := format.SamplesPerBuffer()
	target := w.Smoother.Current()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		target = w.drainGains(target)
		gains := w.Smoother.Smooth(target)

		samples, err := w.Input.Read(frameSamples)
		if err != nil {
			w.Metrics.Underrun(ctx, "inference")
			w.sleep(ctx)
			continue
		}

		startedAt := time.Now()
		frame := audio.NewFrame(samples, format.Channels, format.SampleRate)
		processed := w.process(ctx, frame)
		mixed := Mix(frame, processed, w.events(ctx, processed, gains), gains, w.Config.ResidualBed)
		w.Output.Write(mixed.Samples)
		w.Metrics.ObserveInferenceFrame(ctx, time.Since(startedAt))

		w.pushTelemetry(ctx, Telemetry{
			RMS:       frame.RMS(),
			Gains:     gains,
			Timestamp: startedAt,
		})
	}
}

// drainGains returns the latest pending target, or the previous one.
func (w *AudioWorker) drainGains(target gain.Vector) gain.Vector {
	for {
		select {
		case v, ok := <-w.gains:
			if !ok {
				return target
			}
			target = v
		default:
			return target
		}
	}
}

func (w *AudioWorker) process(
	ctx context.Context,
	frame audio.Frame,
) (_ret audio.Frame) {
	if w.Processor == nil {
		return frame
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "the processor panicked: %v\n%s", r, debug.Stack())
			w.Metrics.PassedThrough(ctx, "worker")
			_ret = frame
		}
	}()
	out := w.Processor.ProcessAudio(ctx, frame)
	if !out.SameShape(frame) {
		logger.Errorf(ctx, "the processor returned %d samples instead of %d, passing through", len(out.Samples), len(frame.Samples))
		w.Metrics.PassedThrough(ctx, "worker")
		return frame
	}
	return out
}

// events returns the events stem of the processed frame, or an empty
// frame when the events bus does not differ from the speech bus.
func (w *AudioWorker) events(
	ctx context.Context,
	processed audio.Frame,
	gains gain.Vector,
) (_ret audio.Frame) {
	if gains.Events == gains.Speech {
		return audio.Frame{}
	}
	sep, ok := w.Processor.(EventSeparator)
	if !ok {
		return audio.Frame{}
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "the event separator panicked: %v\n%s", r, debug.Stack())
			_ret = audio.Frame{}
		}
	}()
	stem, ok := sep.SeparateEvents(ctx, processed)
	if !ok {
		return audio.Frame{}
	}
	if !stem.SameShape(processed) {
		logger.Errorf(ctx, "the event separator returned %d samples instead of %d, ignoring", len(stem.Samples), len(processed.Samples))
		return audio.Frame{}
	}
	return stem
}

func (w *AudioWorker) pushTelemetry(ctx context.Context, t Telemetry) {
	if w.telemetry == nil {
		return
	}
	select {
	case w.telemetry <- t:
	default:
		logger.Tracef(ctx, "telemetry channel is full, dropping")
		w.Metrics.MessageDropped(ctx, "telemetry")
	}
}

func (w *AudioWorker) sleep(ctx context.Context) {
	t := time.NewTimer(w.Config.UnderrunSleep)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
