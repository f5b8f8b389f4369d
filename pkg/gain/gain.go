package gain

import (
	"fmt"
	"math"
)

// Bus identifies one of the logical mixer buses.
type Bus string

const (
	BusSpeech = Bus("speech")
	BusNoise  = Bus("noise")
	BusEvents = Bus("events")
)

func (b Bus) String() string {
	return string(b)
}

// Vector is a gain per bus, each in [0, 1].
type Vector struct {
	Speech float64 `json:"speech" yaml:"speech"`
	Noise  float64 `json:"noise"  yaml:"noise"`
	Events float64 `json:"events" yaml:"events"`
}

// Unity passes everything through.
func Unity() Vector {
	return Vector{Speech: 1, Noise: 1, Events: 1}
}

func (v Vector) Get(bus Bus) (float64, error) {
	switch bus {
	case BusSpeech:
		return v.Speech, nil
	case BusNoise:
		return v.Noise, nil
	case BusEvents:
		return v.Events, nil
	default:
		return 0, fmt.Errorf("unknown bus '%s'", bus)
	}
}

// Clamp returns a copy with every gain limited to [0, 1]; NaN becomes 0.
func (v Vector) Clamp() Vector {
	return Vector{
		Speech: clamp01(v.Speech),
		Noise:  clamp01(v.Noise),
		Events: clamp01(v.Events),
	}
}

func (v Vector) Validate() error {
	for _, bus := range []Bus{BusSpeech, BusNoise, BusEvents} {
		g, _ := v.Get(bus)
		if math.IsNaN(g) || g < 0 || g > 1 {
			return fmt.Errorf("gain of bus '%s' is out of [0, 1]: %v", bus, g)
		}
	}
	return nil
}

// IsPassThrough reports whether all gains are effectively 1.
func (v Vector) IsPassThrough() bool {
	const threshold = 0.99
	return v.Speech > threshold && v.Noise > threshold && v.Events > threshold
}

func (v Vector) String() string {
	return fmt.Sprintf("speech=%.2f noise=%.2f events=%.2f", v.Speech, v.Noise, v.Events)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
