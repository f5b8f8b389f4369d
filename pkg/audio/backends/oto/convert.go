package oto

import (
	"fmt"
	"io"
	"time"

	"github.com/xaionaro-go/semanticmixer/pkg/audio/resampler"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/types"
)

const convertChunkDuration = 100 * time.Millisecond

// convertReader converts a PCM stream into the Float32LE format of the
// oto context chunk by chunk.
type convertReader struct {
	backend  io.Reader
	inPCM    types.PCMFormat
	in       resampler.Format
	out      resampler.Format
	inBuf    []byte
	pending  []byte
	finalErr error
}

var _ io.Reader = (*convertReader)(nil)

func newConvertReader(
	backend io.Reader,
	inPCM types.PCMFormat,
	in resampler.Format,
	out resampler.Format,
) (*convertReader, error) {
	if inPCM.Size() == 0 {
		return nil, fmt.Errorf("unsupported PCM format %s", inPCM)
	}
	if in.Channels == 0 || in.SampleRate == 0 {
		return nil, fmt.Errorf("invalid input format %#+v", in)
	}
	samples := int(int64(in.SampleRate) * int64(convertChunkDuration) / int64(time.Second))
	return &convertReader{
		backend: backend,
		inPCM:   inPCM,
		in:      in,
		out:     out,
		inBuf:   make([]byte, samples*int(in.Channels)*int(inPCM.Size())),
	}, nil
}

func (r *convertReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		if r.finalErr != nil {
			return 0, r.finalErr
		}
		if err := r.fill(); err != nil {
			r.finalErr = err
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *convertReader) fill() error {
	n, err := io.ReadFull(r.backend, r.inBuf)
	switch err {
	case nil:
	case io.ErrUnexpectedEOF:
		err = io.EOF
	default:
		if n == 0 {
			return err
		}
	}

	frameSize := int(r.in.Channels) * int(r.inPCM.Size())
	n -= n % frameSize
	if n > 0 {
		frame := types.NewFrame(r.inPCM.DecodeFloat32(r.inBuf[:n]), r.in.Channels, r.in.SampleRate)
		converted, convErr := resampler.Resample(frame, r.out)
		if convErr != nil {
			return fmt.Errorf("unable to convert: %w", convErr)
		}
		r.pending = Format.EncodeFloat32(converted.Samples)
	}
	return err
}
