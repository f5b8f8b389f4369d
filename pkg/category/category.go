// Package category describes the semantic sound classes the mixer detects
// and may suppress, and loads their mapping configuration.
package category

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// Name is the label of a category, like "typing" or "siren".
type Name string

const (
	Speech       = Name("speech")
	Typing       = Name("typing")
	Chatter      = Name("chatter")
	Wind         = Name("wind")
	Traffic      = Name("traffic")
	Dog          = Name("dog")
	Music        = Name("music")
	Construction = Name("construction")
	Knock        = Name("knock")
	Cough        = Name("cough")
	Siren        = Name("siren")
	Alarm        = Name("alarm")
)

func (n Name) String() string {
	return string(n)
}

var ErrUnknownCategory = errors.New("unknown category")

type Priority string

const (
	PriorityLow      = Priority("low")
	PriorityMedium   = Priority("medium")
	PriorityHigh     = Priority("high")
	PriorityCritical = Priority("critical")
)

// Band is a frequency range used by the spectral implementations.
type Band struct {
	LowHz  float64 `yaml:"low_hz"`
	HighHz float64 `yaml:"high_hz"`
}

func (b Band) Validate() error {
	if b.LowHz < 0 || b.HighHz <= b.LowHz {
		return fmt.Errorf("invalid band [%v, %v] Hz", b.LowHz, b.HighHz)
	}
	return nil
}

func (b Band) Contains(hz float64) bool {
	return hz >= b.LowHz && hz < b.HighHz
}

type Config struct {
	// YAMNetIndices are the classifier output classes averaged into this category.
	YAMNetIndices []int    `yaml:"indices"`
	Priority      Priority `yaml:"priority"`
	Color         string   `yaml:"color"`
	// SafetyOverride marks the category as critical: it is never suppressed
	// and its detection bypasses all suppression.
	SafetyOverride bool `yaml:"safety_override"`
	// SeparatorTargets are the separator targets extracting this category.
	SeparatorTargets []string `yaml:"separator_targets"`
	// DetectionThreshold overrides the suppressor's default threshold;
	// a negative value forces suppression regardless of confidence.
	DetectionThreshold *float64 `yaml:"detection_threshold"`
	Band               *Band    `yaml:"band"`
	// VoiceActivity makes the spectral classifier score this category with a VAD.
	VoiceActivity bool `yaml:"voice_activity"`
}

type Category struct {
	Name Name
	Config
}

func (c Category) Validate() error {
	var mErr *multierror.Error
	if c.Name == "" {
		mErr = multierror.Append(mErr, fmt.Errorf("empty category name"))
	}
	switch c.Priority {
	case "", PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
	default:
		mErr = multierror.Append(mErr, fmt.Errorf("unknown priority '%s'", c.Priority))
	}
	if c.DetectionThreshold != nil && *c.DetectionThreshold > 1 {
		mErr = multierror.Append(mErr, fmt.Errorf("detection threshold %v is above 1", *c.DetectionThreshold))
	}
	if c.Band != nil {
		if err := c.Band.Validate(); err != nil {
			mErr = multierror.Append(mErr, err)
		}
	}
	for _, idx := range c.YAMNetIndices {
		if idx < 0 {
			mErr = multierror.Append(mErr, fmt.Errorf("negative classifier index %d", idx))
		}
	}
	for _, target := range c.SeparatorTargets {
		if target == "" {
			mErr = multierror.Append(mErr, fmt.Errorf("empty separator target"))
		}
	}
	return mErr.ErrorOrNil()
}

// Scores maps categories to confidences in [0, 1].
type Scores map[Name]float64

func (s Scores) Clone() Scores {
	out := make(Scores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Names returns the categories in lexicographic order.
func (s Scores) Names() []Name {
	names := make([]Name, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// States maps categories to a boolean state (stable/on).
type States map[Name]bool

func (s States) Clone() States {
	out := make(States, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
