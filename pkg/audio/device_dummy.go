package audio

import (
	"context"
	"io"
	"sync"
	"time"
)

// DeviceDummy is an in-memory Device: Read serves Input (then silence) and
// Write appends to Written.
type DeviceDummy struct {
	FormatValue StreamFormat
	// Realtime makes Read wait for the duration of one buffer.
	Realtime bool

	locker  sync.Mutex
	input   []float32
	written []Frame
	started bool
	closed  bool
}

var _ Device = (*DeviceDummy)(nil)

func NewDeviceDummy(format StreamFormat, input []float32) *DeviceDummy {
	return &DeviceDummy{
		FormatValue: format,
		input:       input,
	}
}

func (d *DeviceDummy) Format() StreamFormat {
	return d.FormatValue
}

func (d *DeviceDummy) Start(context.Context) error {
	d.locker.Lock()
	defer d.locker.Unlock()
	d.started = true
	return nil
}

func (d *DeviceDummy) Read(ctx context.Context) (Frame, error) {
	if err := d.waitBuffer(ctx); err != nil {
		return Frame{}, err
	}

	d.locker.Lock()
	defer d.locker.Unlock()
	if d.closed {
		return Frame{}, io.EOF
	}
	samples := make([]float32, d.FormatValue.SamplesPerBuffer())
	n := copy(samples, d.input)
	d.input = d.input[n:]
	return NewFrame(samples, d.FormatValue.Channels, d.FormatValue.SampleRate), nil
}

func (d *DeviceDummy) Write(ctx context.Context, frame Frame) error {
	if err := d.waitBuffer(ctx); err != nil {
		return err
	}
	d.locker.Lock()
	defer d.locker.Unlock()
	if d.closed {
		return io.ErrClosedPipe
	}
	d.written = append(d.written, frame.Clone())
	return nil
}

func (d *DeviceDummy) Written() []Frame {
	d.locker.Lock()
	defer d.locker.Unlock()
	return append([]Frame(nil), d.written...)
}

func (d *DeviceDummy) IsStarted() bool {
	d.locker.Lock()
	defer d.locker.Unlock()
	return d.started
}

func (d *DeviceDummy) IsClosed() bool {
	d.locker.Lock()
	defer d.locker.Unlock()
	return d.closed
}

func (d *DeviceDummy) Close() error {
	d.locker.Lock()
	defer d.locker.Unlock()
	d.closed = true
	return nil
}

func (d *DeviceDummy) waitBuffer(ctx context.Context) error {
	if !d.Realtime {
		return nil
	}
	bufDuration := time.Duration(d.FormatValue.FramesPerBuffer) * time.Second / time.Duration(d.FormatValue.SampleRate)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(bufDuration):
		return nil
	}
}
