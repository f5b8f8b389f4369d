package types

import (
	"fmt"
	"math"
	"time"
)

// Frame is a block of interleaved float samples with an explicit format.
type Frame struct {
	Samples    []float32
	Channels   Channel
	SampleRate SampleRate
}

func NewFrame(samples []float32, channels Channel, sampleRate SampleRate) Frame {
	return Frame{
		Samples:    samples,
		Channels:   channels,
		SampleRate: sampleRate,
	}
}

func NewSilentFrame(frames int, channels Channel, sampleRate SampleRate) Frame {
	return NewFrame(make([]float32, frames*int(channels)), channels, sampleRate)
}

func (f Frame) Validate() error {
	if f.Channels == 0 {
		return fmt.Errorf("channel count is zero")
	}
	if f.SampleRate == 0 {
		return fmt.Errorf("sample rate is zero")
	}
	if len(f.Samples)%int(f.Channels) != 0 {
		return fmt.Errorf("sample count %d is not a multiple of channel count %d", len(f.Samples), f.Channels)
	}
	return nil
}

// Len returns the amount of samples per channel.
func (f Frame) Len() int {
	if f.Channels == 0 {
		return 0
	}
	return len(f.Samples) / int(f.Channels)
}

func (f Frame) IsEmpty() bool {
	return len(f.Samples) == 0
}

func (f Frame) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(f.Len()) * time.Second / time.Duration(f.SampleRate)
}

// SameShape reports whether both frames carry the same amount of samples
// laid out in the same channels.
func (f Frame) SameShape(other Frame) bool {
	return len(f.Samples) == len(other.Samples) && f.Channels == other.Channels
}

func (f Frame) Clone() Frame {
	samples := make([]float32, len(f.Samples))
	copy(samples, f.Samples)
	return NewFrame(samples, f.Channels, f.SampleRate)
}

// WithSamples returns a frame of the same format carrying the given samples.
func (f Frame) WithSamples(samples []float32) Frame {
	return NewFrame(samples, f.Channels, f.SampleRate)
}

// Mono averages all channels into a single one.
func (f Frame) Mono() Frame {
	if f.Channels <= 1 {
		return f
	}
	channels := int(f.Channels)
	out := make([]float32, f.Len())
	for idx := range out {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += f.Samples[idx*channels+ch]
		}
		out[idx] = sum / float32(channels)
	}
	return NewFrame(out, 1, f.SampleRate)
}

func (f Frame) Peak() float64 {
	var peak float64
	for _, v := range f.Samples {
		if a := math.Abs(float64(v)); a > peak {
			peak = a
		}
	}
	return peak
}

func (f Frame) RMS() float64 {
	if len(f.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range f.Samples {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(f.Samples)))
}

// MeanAbs is the average absolute amplitude.
func (f Frame) MeanAbs() float64 {
	if len(f.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range f.Samples {
		sum += math.Abs(float64(v))
	}
	return sum / float64(len(f.Samples))
}
