package stability

import (
	"github.com/xaionaro-go/semanticmixer/pkg/category"
)

type Config struct {
	Window              int     `yaml:"window"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	OnThreshold         float64 `yaml:"on_threshold"`
	OffThreshold        float64 `yaml:"off_threshold"`
	EnableMedian        bool    `yaml:"enable_median"`
	MedianWindow        int     `yaml:"median_window"`
}

func DefaultConfig() Config {
	return Config{
		Window:              DefaultWindow,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		OnThreshold:         DefaultOnThreshold,
		OffThreshold:        DefaultOffThreshold,
		EnableMedian:        false,
		MedianWindow:        DefaultWindow,
	}
}

// Stack chains the optional median smoothing, the confidence buffer and
// the Schmitt trigger.
type Stack struct {
	Median     *MedianSmoother
	Confidence *ConfidenceBuffer
	Schmitt    *SchmittTrigger
}

type Output struct {
	Smoothed category.Scores
	Stable   category.States
	States   category.States
}

func NewStack(cfg Config) (*Stack, error) {
	confidence, err := NewConfidenceBuffer(cfg.Window, cfg.ConfidenceThreshold)
	if err != nil {
		return nil, err
	}
	schmitt, err := NewSchmittTrigger(cfg.OnThreshold, cfg.OffThreshold)
	if err != nil {
		return nil, err
	}
	s := &Stack{
		Confidence: confidence,
		Schmitt:    schmitt,
	}
	if cfg.EnableMedian {
		s.Median, err = NewMedianSmoother(cfg.MedianWindow)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Stack) Apply(raw category.Scores) Output {
	smoothed := raw.Clone()
	if s.Median != nil {
		smoothed = s.Median.Smooth(raw)
	}
	return Output{
		Smoothed: smoothed,
		Stable:   s.Confidence.Update(smoothed),
		States:   s.Schmitt.UpdateAll(smoothed),
	}
}

func (s *Stack) Reset() {
	if s.Median != nil {
		s.Median.Reset()
	}
	s.Confidence.Reset()
	s.Schmitt.Reset()
}
