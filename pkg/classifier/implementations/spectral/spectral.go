// Package spectral implements a lightweight classifier that needs no model:
// a category's confidence is the share of the signal energy within its
// frequency band, and voice categories are scored with a WebRTC VAD.
package spectral

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"github.com/brettbuddin/fourier"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/josharian/fvad"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/resampler"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/classifier"
)

const (
	SampleRate = audio.SampleRate(16000)

	// WindowSize is the FFT length; it must be a power of two.
	WindowSize = 1024

	// VADFrameSize is 20ms at SampleRate.
	VADFrameSize = 320

	// DefaultVADMode is the WebRTC VAD aggressiveness, 0..3.
	DefaultVADMode = 2

	silenceEnergy = 1e-10
)

type Classifier struct {
	Mapping *category.Mapping
	VADMode int

	locker sync.Mutex
	vad    *fvad.Detector
}

var _ classifier.Classifier = (*Classifier)(nil)

func New(mapping *category.Mapping) (*Classifier, error) {
	if mapping == nil {
		return nil, fmt.Errorf("the category mapping is mandatory")
	}

	vad := fvad.NewDetector()
	if vad == nil {
		return nil, fmt.Errorf("unable to initialize a VAD")
	}
	if err := vad.SetMode(DefaultVADMode); err != nil {
		return nil, fmt.Errorf("unable to set the VAD mode: %w", err)
	}
	if err := vad.SetSampleRate(int(SampleRate)); err != nil {
		return nil, fmt.Errorf("unable to set the VAD sample rate: %w", err)
	}

	return &Classifier{
		Mapping: mapping,
		VADMode: DefaultVADMode,
		vad:     vad,
	}, nil
}

func (c *Classifier) Close() error {
	return nil
}

func (c *Classifier) Classify(
	ctx context.Context,
	frame audio.Frame,
) (_ret category.Scores, _err error) {
	logger.Tracef(ctx, "Classify")
	defer func() { logger.Tracef(ctx, "/Classify: %v %v", _ret, _err) }()

	if frame.IsEmpty() {
		return nil, classifier.ErrEmptyInput
	}
	mono, err := resampler.Resample(frame, resampler.Format{Channels: 1, SampleRate: SampleRate})
	if err != nil {
		return nil, fmt.Errorf("unable to convert the audio to %d Hz mono: %w", SampleRate, err)
	}

	spectrum, err := powerSpectrum(mono.Samples)
	if err != nil {
		return nil, err
	}
	var total float64
	for _, p := range spectrum {
		total += p
	}

	var voiced float64
	categories := c.Mapping.All()
	for _, cat := range categories {
		if cat.VoiceActivity {
			voiced, err = c.voicedShare(mono.Samples)
			if err != nil {
				return nil, err
			}
			break
		}
	}

	scores := make(category.Scores, len(categories))
	for _, cat := range categories {
		switch {
		case cat.VoiceActivity:
			scores[cat.Name] = voiced
		case cat.Band != nil && total > silenceEnergy:
			scores[cat.Name] = bandShare(spectrum, total, *cat.Band)
		default:
			scores[cat.Name] = 0
		}
	}
	return scores, nil
}

// powerSpectrum averages the one-sided power spectrum over consecutive
// WindowSize-long windows; a short tail is zero-padded.
func powerSpectrum(samples []float32) ([]float64, error) {
	result := make([]float64, WindowSize/2)
	coeffs := make([]complex128, WindowSize)
	windows := 0
	for offset := 0; offset < len(samples); offset += WindowSize {
		for idx := range coeffs {
			v := 0.0
			if offset+idx < len(samples) {
				v = float64(samples[offset+idx])
			}
			coeffs[idx] = complex(v*hann(idx, WindowSize), 0)
		}
		if err := fourier.Forward(coeffs); err != nil {
			return nil, fmt.Errorf("unable to calculate FFT: %w", err)
		}
		for idx := range result {
			m := cmplx.Abs(coeffs[idx])
			result[idx] += m * m
		}
		windows++
	}
	for idx := range result {
		result[idx] /= float64(windows)
	}
	return result, nil
}

func hann(idx, size int) float64 {
	return 0.5 - 0.5*math.Cos(2*math.Pi*float64(idx)/float64(size-1))
}

func bandShare(spectrum []float64, total float64, band category.Band) float64 {
	var energy float64
	for idx, p := range spectrum {
		if band.Contains(binFrequency(idx)) {
			energy += p
		}
	}
	return math.Min(1, energy/total)
}

func binFrequency(idx int) float64 {
	return float64(idx) * float64(SampleRate) / WindowSize
}

func (c *Classifier) voicedShare(samples []float32) (float64, error) {
	c.locker.Lock()
	defer c.locker.Unlock()

	pcm := make([]int16, VADFrameSize)
	frames, voiced := 0, 0
	for offset := 0; offset+VADFrameSize <= len(samples); offset += VADFrameSize {
		for idx := range pcm {
			pcm[idx] = int16(math.Max(-1, math.Min(1, float64(samples[offset+idx]))) * math.MaxInt16)
		}
		isVoice, err := c.vad.Process(pcm)
		if err != nil {
			return 0, fmt.Errorf("unable to run the VAD: %w", err)
		}
		frames++
		if isVoice {
			voiced++
		}
	}
	if frames == 0 {
		return 0, nil
	}
	return float64(voiced) / float64(frames), nil
}
