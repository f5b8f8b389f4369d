package gain

import (
	"fmt"
	"sync"
)

const (
	DefaultAlpha      = 0.9
	DefaultNoiseFloor = 0.1
)

// Smoother applies exponential smoothing to gain targets so that gains
// never jump between two consecutive blocks, and keeps the noise bus
// above a floor.
type Smoother struct {
	locker     sync.Mutex
	alpha      float64
	noiseFloor float64
	current    Vector
}

func NewSmoother(alpha, noiseFloor float64) (*Smoother, error) {
	if !(alpha >= 0 && alpha <= 1) {
		return nil, fmt.Errorf("alpha must be within [0, 1], got %v", alpha)
	}
	if !(noiseFloor >= 0 && noiseFloor <= 1) {
		return nil, fmt.Errorf("noise floor must be within [0, 1], got %v", noiseFloor)
	}
	return &Smoother{
		alpha:      alpha,
		noiseFloor: noiseFloor,
		current: Vector{
			Speech: 1,
			Noise:  noiseFloor,
			Events: 1,
		},
	}, nil
}

func (s *Smoother) Alpha() float64 {
	return s.alpha
}

func (s *Smoother) NoiseFloor() float64 {
	return s.noiseFloor
}

// Smooth moves the current gains towards target and returns the result.
func (s *Smoother) Smooth(target Vector) Vector {
	target = target.Clamp()

	s.locker.Lock()
	defer s.locker.Unlock()

	next := Vector{
		Speech: s.step(s.current.Speech, target.Speech),
		Noise:  s.step(s.current.Noise, target.Noise),
		Events: s.step(s.current.Events, target.Events),
	}
	if next.Noise < s.noiseFloor {
		next.Noise = s.noiseFloor
	}
	s.current = next
	return next
}

func (s *Smoother) step(old, target float64) float64 {
	return s.alpha*old + (1-s.alpha)*target
}

func (s *Smoother) Current() Vector {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.current
}

// Reset jumps straight to the given gains (the noise floor still applies).
func (s *Smoother) Reset(gains Vector) {
	gains = gains.Clamp()
	if gains.Noise < s.noiseFloor {
		gains.Noise = s.noiseFloor
	}

	s.locker.Lock()
	defer s.locker.Unlock()
	s.current = gains
}
