// Package spectralmask implements a model-free separator: a target is
// extracted by keeping only the FFT bins within the frequency bands of
// the target.
package spectralmask

import (
	"context"
	"fmt"
	"sort"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/mjibson/go-dsp/fft"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/planar"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/separator"
)

const (
	// BlockSize is the FFT length; a frame is processed in non-overlapping blocks.
	BlockSize = 1024
)

type SpectralMask struct {
	Bands     map[string][]category.Band
	BlockSize int
}

var _ separator.Separator = (*SpectralMask)(nil)

func New() *SpectralMask {
	return &SpectralMask{
		Bands:     DefaultBands,
		BlockSize: BlockSize,
	}
}

// NewForCategories builds a separator with one target per category of
// names that has a frequency band, named after the category. It returns
// the targets in the order of names.
func NewForCategories(mapping *category.Mapping, names []category.Name) (*SpectralMask, []string) {
	s := &SpectralMask{
		Bands:     map[string][]category.Band{},
		BlockSize: BlockSize,
	}
	var targets []string
	for _, name := range names {
		c, ok := mapping.Get(name)
		if !ok || c.Band == nil {
			continue
		}
		s.Bands[string(name)] = []category.Band{*c.Band}
		targets = append(targets, string(name))
	}
	return s, targets
}

func (s *SpectralMask) Targets() []string {
	result := make([]string, 0, len(s.Bands))
	for target := range s.Bands {
		result = append(result, target)
	}
	sort.Strings(result)
	return result
}

func (s *SpectralMask) Separate(
	ctx context.Context,
	frame audio.Frame,
	targets []string,
) (_ret audio.Frame, _err error) {
	logger.Tracef(ctx, "Separate(%v)", targets)
	defer func() { logger.Tracef(ctx, "/Separate(%v): %v", targets, _err) }()

	if err := separator.CheckTargets(s.Targets(), targets); err != nil {
		return audio.Frame{}, err
	}
	if err := frame.Validate(); err != nil {
		return audio.Frame{}, fmt.Errorf("invalid frame: %w", err)
	}

	var mask []category.Band
	for _, target := range targets {
		mask = append(mask, s.Bands[target]...)
	}

	planes, err := planar.PlanarizeFrame(frame)
	if err != nil {
		return audio.Frame{}, err
	}
	block := make([]float64, s.BlockSize)
	for _, plane := range planes {
		length := len(plane)
		for offset := 0; offset < length; offset += s.BlockSize {
			for idx := range block {
				block[idx] = 0
				if offset+idx < length {
					block[idx] = float64(plane[offset+idx])
				}
			}
			filtered := s.filterBlock(block, frame.SampleRate, mask)
			for idx := 0; idx < s.BlockSize && offset+idx < length; idx++ {
				plane[offset+idx] = float32(filtered[idx])
			}
		}
	}
	result, err := planar.Unplanarize(planes)
	if err != nil {
		return audio.Frame{}, err
	}

	return frame.WithSamples(result), nil
}

func (s *SpectralMask) filterBlock(
	block []float64,
	sampleRate audio.SampleRate,
	mask []category.Band,
) []float64 {
	n := len(block)
	coeffs := fft.FFTReal(block)
	for k := range coeffs {
		// bins above n/2 mirror the negative frequencies
		mirrored := k
		if k > n/2 {
			mirrored = n - k
		}
		hz := float64(mirrored) * float64(sampleRate) / float64(n)
		if !inBands(mask, hz) {
			coeffs[k] = 0
		}
	}
	timeDomain := fft.IFFT(coeffs)
	result := make([]float64, n)
	for idx, v := range timeDomain {
		result[idx] = real(v)
	}
	return result
}

func inBands(mask []category.Band, hz float64) bool {
	for _, b := range mask {
		if b.Contains(hz) {
			return true
		}
	}
	return false
}

func (*SpectralMask) Close() error {
	return nil
}
