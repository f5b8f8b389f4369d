//go:build rnnoise
// +build rnnoise

package rnnoise

import (
	"context"
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/planar"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/resampler"
	"github.com/xaionaro-go/semanticmixer/pkg/separator"
)

/*
#cgo pkg-config: rnnoise
#cgo CFLAGS: -march=native
#include <rnnoise.h>
*/
import "C"

var frameSize int

func init() {
	frameSize = int(C.rnnoise_get_frame_size())
}

type RNNoise struct {
	Locker        sync.Mutex
	DenoiseStates []*C.DenoiseState
}

var _ separator.Separator = (*RNNoise)(nil)

func New() (*RNNoise, error) {
	return &RNNoise{}, nil
}

func (s *RNNoise) Targets() []string {
	return Targets
}

func (s *RNNoise) Separate(
	ctx context.Context,
	frame audio.Frame,
	targets []string,
) (_ret audio.Frame, _err error) {
	logger.Tracef(ctx, "Separate(%v)", targets)
	defer func() { logger.Tracef(ctx, "/Separate(%v): %v", targets, _err) }()

	if err := separator.CheckTargets(Targets, targets); err != nil {
		return audio.Frame{}, err
	}
	origFormat := resampler.FormatOf(frame)
	input, err := resampler.Resample(frame, resampler.Format{Channels: frame.Channels, SampleRate: SampleRate})
	if err != nil {
		return audio.Frame{}, fmt.Errorf("unable to resample to %d Hz: %w", SampleRate, err)
	}
	planes, err := planar.PlanarizeFrame(input)
	if err != nil {
		return audio.Frame{}, err
	}

	s.Locker.Lock()
	defer s.Locker.Unlock()
	s.ensureStatesLocked(len(planes))

	speech := make([][]float32, len(planes))
	var wg sync.WaitGroup
	for ch, plane := range planes {
		denoiseState := s.DenoiseStates[ch]
		wg.Add(1)
		observability.Go(ctx, func(ctx context.Context) {
			defer wg.Done()
			speech[ch] = denoise(denoiseState, plane)
		})
	}
	wg.Wait()

	for ch := range planes {
		planes[ch], err = stems(planes[ch], speech[ch], targets)
		if err != nil {
			return audio.Frame{}, err
		}
	}
	samples, err := planar.Unplanarize(planes)
	if err != nil {
		return audio.Frame{}, err
	}
	return resampler.Resample(input.WithSamples(samples), origFormat)
}

func (s *RNNoise) ensureStatesLocked(channels int) {
	if len(s.DenoiseStates) == channels {
		return
	}
	s.destroyStatesLocked()
	for ch := 0; ch < channels; ch++ {
		s.DenoiseStates = append(s.DenoiseStates, C.rnnoise_create(nil))
	}
}

func (s *RNNoise) destroyStatesLocked() {
	for _, denoiseState := range s.DenoiseStates {
		C.rnnoise_destroy(denoiseState)
	}
	s.DenoiseStates = nil
}

// denoise runs one plane through the denoiser; the tail shorter than
// a denoiser frame is zero-padded.
func denoise(denoiseState *C.DenoiseState, plane []float32) []float32 {
	in := make([]float32, frameSize)
	out := make([]float32, frameSize)
	result := make([]float32, len(plane))
	for offset := 0; offset < len(plane); offset += frameSize {
		n := copy(in, plane[offset:])
		for idx := range in {
			if idx >= n {
				in[idx] = 0
				continue
			}
			in[idx] *= math.MaxInt16
		}
		C.rnnoise_process_frame(
			denoiseState,
			(*C.float)(unsafe.Pointer(unsafe.SliceData(out))),
			(*C.float)(unsafe.Pointer(unsafe.SliceData(in))),
		)
		for idx := 0; idx < n; idx++ {
			result[offset+idx] = out[idx] / math.MaxInt16
		}
	}
	return result
}

func (s *RNNoise) Close() error {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	s.destroyStatesLocked()
	return nil
}
