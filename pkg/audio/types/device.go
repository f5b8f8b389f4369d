package types

import (
	"context"
	"io"
)

type StreamFormat struct {
	SampleRate      SampleRate
	Channels        Channel
	FramesPerBuffer uint32
}

func (f StreamFormat) SamplesPerBuffer() int {
	return int(f.FramesPerBuffer) * int(f.Channels)
}

// Device is a duplex audio endpoint: Read returns the next captured block
// and Write queues a block for playback.
type Device interface {
	io.Closer
	Start(ctx context.Context) error
	Format() StreamFormat
	Read(ctx context.Context) (Frame, error)
	Write(ctx context.Context, frame Frame) error
}
