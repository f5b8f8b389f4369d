// Package autocontrol recommends a profile for the detected sounds.
package autocontrol

import (
	"fmt"
	"math"
	"strings"

	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/profile"
)

const DefaultHysteresis = 0.1

type Recommendation struct {
	// Profile is nil if no profile has a matching trigger.
	Profile *profile.Profile
	Score   float64
	Reason  string
}

type Controller struct {
	Source     profile.Source
	Hysteresis float64
}

func New(source profile.Source) *Controller {
	return &Controller{
		Source:     source,
		Hysteresis: DefaultHysteresis,
	}
}

// Score is the sum of the confidences of the profile triggers that meet
// their thresholds.
func Score(p profile.Profile, scores category.Scores) float64 {
	var sum float64
	for _, t := range p.AutoTriggers {
		if confidence := scores[t.Category]; confidence >= t.Threshold {
			sum += confidence
		}
	}
	return sum
}

// Recommend returns the profile with the strictly highest positive score;
// on a tie the profile that comes first in the source wins.
func (c *Controller) Recommend(scores category.Scores) Recommendation {
	var (
		best      *profile.Profile
		bestScore float64
	)
	for _, p := range c.Source.Profiles() {
		if !p.HasAutoTriggers() {
			continue
		}
		score := Score(p, scores)
		if score > bestScore {
			p := p
			best, bestScore = &p, score
		}
	}
	if best == nil {
		return Recommendation{Reason: "No triggers matched"}
	}
	return Recommendation{
		Profile: best,
		Score:   bestScore,
		Reason:  Reason(*best, scores),
	}
}

// Reason describes the triggers of the profile that fired,
// like "Detected: Typing (70%)".
func Reason(p profile.Profile, scores category.Scores) string {
	var parts []string
	for _, t := range p.AutoTriggers {
		confidence := scores[t.Category]
		if confidence < t.Threshold {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%d%%)", capitalize(string(t.Category)), int(math.Round(confidence*100))))
	}
	return "Detected: " + strings.Join(parts, ", ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ShouldSwitch reports whether rec should replace the current profile:
// it must differ and beat the current profile's score on the same
// detections by more than the hysteresis.
func (c *Controller) ShouldSwitch(rec Recommendation, current *profile.Profile, scores category.Scores) bool {
	if rec.Profile == nil {
		return false
	}
	if current == nil {
		return true
	}
	if rec.Profile.ID == current.ID {
		return false
	}
	return rec.Score-Score(*current, scores) > c.Hysteresis
}
