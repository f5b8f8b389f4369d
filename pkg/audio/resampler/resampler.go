// Package resampler converts frames between sample rates and channel layouts.
package resampler

import (
	"fmt"
	"math"

	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/planar"
)

type Format struct {
	Channels   audio.Channel
	SampleRate audio.SampleRate
}

func FormatOf(frame audio.Frame) Format {
	return Format{
		Channels:   frame.Channels,
		SampleRate: frame.SampleRate,
	}
}

// Resample converts the frame into the given format. Channels are either
// averaged into mono, repeated from mono, or kept as is; the sample rate is
// converted with linear interpolation.
func Resample(in audio.Frame, out Format) (audio.Frame, error) {
	if err := in.Validate(); err != nil {
		return audio.Frame{}, fmt.Errorf("invalid input frame: %w", err)
	}
	if out.Channels == 0 || out.SampleRate == 0 {
		return audio.Frame{}, fmt.Errorf("invalid output format %#+v", out)
	}
	if FormatOf(in) == out {
		return in, nil
	}

	planes, err := remixChannels(in, out.Channels)
	if err != nil {
		return audio.Frame{}, err
	}

	if in.SampleRate != out.SampleRate {
		for idx, plane := range planes {
			planes[idx] = resamplePlane(plane, in.SampleRate, out.SampleRate)
		}
	}

	samples, err := planar.Unplanarize(planes)
	if err != nil {
		return audio.Frame{}, fmt.Errorf("unable to interleave: %w", err)
	}
	return audio.NewFrame(samples, out.Channels, out.SampleRate), nil
}

func remixChannels(in audio.Frame, outChannels audio.Channel) ([][]float32, error) {
	switch {
	case in.Channels == outChannels:
		return planar.Planarize(in.Channels, in.Samples)
	case outChannels == 1:
		return [][]float32{in.Mono().Samples}, nil
	case in.Channels == 1:
		planes := make([][]float32, outChannels)
		for idx := range planes {
			planes[idx] = append([]float32(nil), in.Samples...)
		}
		return planes, nil
	default:
		return nil, fmt.Errorf("do not know how to convert %d channels to %d", in.Channels, outChannels)
	}
}

func resamplePlane(in []float32, inRate, outRate audio.SampleRate) []float32 {
	if len(in) == 0 {
		return nil
	}
	ratio := float64(inRate) / float64(outRate)
	outLen := int(math.Round(float64(len(in)) / ratio))
	if outLen == 0 {
		outLen = 1
	}

	out := make([]float32, outLen)
	last := len(in) - 1
	for idx := range out {
		pos := float64(idx) * ratio
		left := int(pos)
		if left >= last {
			out[idx] = in[last]
			continue
		}
		frac := float32(pos - float64(left))
		out[idx] = in[left]*(1-frac) + in[left+1]*frac
	}
	return out
}
