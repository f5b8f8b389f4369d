package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/datacounter"
)

// PCMDevice pairs a Recorder and a Player into a duplex Device, exchanging
// PCM bytes with them through pipes.
type PCMDevice struct {
	Recorder  *Recorder
	Player    *Player
	PCMFormat PCMFormat
	Latency   time.Duration

	format         StreamFormat
	locker         sync.Mutex
	captureReader  *io.PipeReader
	captureWriter  *io.PipeWriter
	captureCounter *datacounter.WriterCounter
	playReader     *io.PipeReader
	playWriter     *io.PipeWriter
	recordStream   RecordStream
	playStream     PlayStream
	readBuf        []byte
}

var _ Device = (*PCMDevice)(nil)

func NewPCMDevice(
	recorder *Recorder,
	player *Player,
	format StreamFormat,
) *PCMDevice {
	return &PCMDevice{
		Recorder:  recorder,
		Player:    player,
		PCMFormat: PCMFormatFloat32LE,
		Latency:   BufferSize,
		format:    format,
	}
}

func (d *PCMDevice) Format() StreamFormat {
	return d.format
}

func (d *PCMDevice) Start(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Start")
	defer func() { logger.Tracef(ctx, "/Start: %v", _err) }()

	d.locker.Lock()
	defer d.locker.Unlock()
	if d.recordStream != nil {
		return fmt.Errorf("the device is already started")
	}

	d.captureReader, d.captureWriter = io.Pipe()
	d.captureCounter = datacounter.NewWriterCounter(d.captureWriter)
	d.playReader, d.playWriter = io.Pipe()
	d.readBuf = make([]byte, d.format.SamplesPerBuffer()*int(d.PCMFormat.Size()))

	recordStream, err := d.Recorder.RecordPCM(
		ctx,
		d.format.SampleRate,
		d.format.Channels,
		d.PCMFormat,
		d.captureCounter,
	)
	if err != nil {
		return fmt.Errorf("unable to start recording: %w", err)
	}
	d.recordStream = recordStream

	playStream, err := d.Player.PlayPCM(
		ctx,
		d.format.SampleRate,
		d.format.Channels,
		d.PCMFormat,
		d.Latency,
		d.playReader,
	)
	if err != nil {
		_ = recordStream.Close()
		d.recordStream = nil
		return fmt.Errorf("unable to start playback: %w", err)
	}
	d.playStream = playStream
	return nil
}

// Read blocks until a whole buffer is captured.
func (d *PCMDevice) Read(ctx context.Context) (Frame, error) {
	if _, err := io.ReadFull(d.captureReader, d.readBuf); err != nil {
		return Frame{}, fmt.Errorf("unable to read the captured audio: %w", err)
	}
	return NewFrame(
		d.PCMFormat.DecodeFloat32(d.readBuf),
		d.format.Channels,
		d.format.SampleRate,
	), nil
}

func (d *PCMDevice) Write(ctx context.Context, frame Frame) error {
	if frame.Channels != d.format.Channels || frame.SampleRate != d.format.SampleRate {
		return fmt.Errorf("frame format %d ch @ %d Hz does not match the device format %d ch @ %d Hz",
			frame.Channels, frame.SampleRate, d.format.Channels, d.format.SampleRate)
	}
	if _, err := d.playWriter.Write(d.PCMFormat.EncodeFloat32(frame.Samples)); err != nil {
		return fmt.Errorf("unable to queue the audio for playback: %w", err)
	}
	return nil
}

// CapturedBytes is the total amount of bytes received from the recorder.
func (d *PCMDevice) CapturedBytes() uint64 {
	d.locker.Lock()
	defer d.locker.Unlock()
	if d.captureCounter == nil {
		return 0
	}
	return d.captureCounter.Count()
}

func (d *PCMDevice) Close() error {
	d.locker.Lock()
	defer d.locker.Unlock()

	var mErr *multierror.Error
	if d.captureWriter != nil {
		_ = d.captureWriter.CloseWithError(io.EOF)
	}
	if d.playWriter != nil {
		_ = d.playWriter.Close()
	}
	if d.recordStream != nil {
		if err := d.recordStream.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close the record stream: %w", err))
		}
		d.recordStream = nil
	}
	if d.playStream != nil {
		if err := d.playStream.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close the play stream: %w", err))
		}
		d.playStream = nil
	}
	if err := d.Recorder.Close(); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("unable to close the recorder: %w", err))
	}
	if err := d.Player.Close(); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("unable to close the player: %w", err))
	}
	return mErr.ErrorOrNil()
}
