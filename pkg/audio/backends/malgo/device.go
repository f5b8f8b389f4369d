// Package malgo implements a native duplex audio device on top of
// miniaudio.
package malgo

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gen2brain/malgo"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/types"
	"github.com/xaionaro-go/semanticmixer/pkg/ringbuffer"
)

const (
	// playbackQueueBuffers is how many buffers Write may queue ahead of the
	// device before it blocks.
	playbackQueueBuffers = 2
	captureQueueBuffers  = 8
)

// Device captures and plays float32 interleaved audio through one
// miniaudio duplex device. The device callback only touches the ring
// buffers.
type Device struct {
	format types.StreamFormat

	malgoContext *malgo.AllocatedContext
	device       *malgo.Device

	capture  *ringbuffer.RingBuffer
	playback *ringbuffer.RingBuffer

	captured chan struct{}
	consumed chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

var _ types.Device = (*Device)(nil)

func NewDevice(format types.StreamFormat) (*Device, error) {
	samplesPerBuffer := format.SamplesPerBuffer()
	if samplesPerBuffer == 0 || format.SampleRate == 0 {
		return nil, fmt.Errorf("invalid stream format: %#+v", format)
	}

	capture, err := ringbuffer.New(samplesPerBuffer * captureQueueBuffers)
	if err != nil {
		return nil, fmt.Errorf("unable to create the capture buffer: %w", err)
	}
	playback, err := ringbuffer.New(samplesPerBuffer * (playbackQueueBuffers + 1))
	if err != nil {
		return nil, fmt.Errorf("unable to create the playback buffer: %w", err)
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the miniaudio context: %w", err)
	}

	d := &Device{
		format:       format,
		malgoContext: malgoCtx,
		capture:      capture,
		playback:     playback,
		captured:     make(chan struct{}, 1),
		consumed:     make(chan struct{}, 1),
		closed:       make(chan struct{}),
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Duplex)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = uint32(format.Channels)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = uint32(format.Channels)
	cfg.SampleRate = uint32(format.SampleRate)
	cfg.PeriodSizeInFrames = format.FramesPerBuffer
	cfg.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(malgoCtx.Context, cfg, malgo.DeviceCallbacks{
		Data: d.onData,
	})
	if err != nil {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return nil, fmt.Errorf("unable to initialize the duplex device: %w", err)
	}
	d.device = device
	return d, nil
}

func (d *Device) onData(pOutput, pInput []byte, frameCount uint32) {
	if len(pInput) > 0 {
		d.capture.Write(types.PCMFormatFloat32LE.DecodeFloat32(pInput))
		signal(d.captured)
	}
	if len(pOutput) == 0 {
		return
	}

	samples := int(frameCount) * int(d.format.Channels)
	out, err := d.playback.Read(samples)
	if err != nil {
		// underrun: output silence and take what is there next time
		for idx := range pOutput {
			pOutput[idx] = 0
		}
	} else {
		copy(pOutput, types.PCMFormatFloat32LE.EncodeFloat32(out))
	}
	signal(d.consumed)
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (d *Device) Format() types.StreamFormat {
	return d.format
}

func (d *Device) Start(ctx context.Context) error {
	logger.Debugf(ctx, "starting the miniaudio duplex device: %#+v", d.format)
	if err := d.device.Start(); err != nil {
		return fmt.Errorf("unable to start the duplex device: %w", err)
	}
	return nil
}

func (d *Device) Read(ctx context.Context) (types.Frame, error) {
	n := d.format.SamplesPerBuffer()
	for {
		samples, err := d.capture.Read(n)
		if err == nil {
			return types.NewFrame(samples, d.format.Channels, d.format.SampleRate), nil
		}
		select {
		case <-ctx.Done():
			return types.Frame{}, ctx.Err()
		case <-d.closed:
			return types.Frame{}, io.EOF
		case <-d.captured:
		}
	}
}

func (d *Device) Write(ctx context.Context, frame types.Frame) error {
	if frame.Channels != d.format.Channels {
		return fmt.Errorf("expected %d channels, got %d", d.format.Channels, frame.Channels)
	}
	limit := d.format.SamplesPerBuffer() * playbackQueueBuffers
	for d.playback.Available() >= limit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.closed:
			return io.ErrClosedPipe
		case <-d.consumed:
		}
	}
	select {
	case <-d.closed:
		return io.ErrClosedPipe
	default:
	}
	d.playback.Write(frame.Samples)
	return nil
}

func (d *Device) Close() error {
	var mErr *multierror.Error
	d.closeOnce.Do(func() {
		close(d.closed)
		if err := d.device.Stop(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to stop the duplex device: %w", err))
		}
		d.device.Uninit()
		if err := d.malgoContext.Uninit(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to uninitialize the miniaudio context: %w", err))
		}
		d.malgoContext.Free()
	})
	return mErr.ErrorOrNil()
}
