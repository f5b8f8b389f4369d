// Package detection turns per-call classifier scores into stable category
// states and runs the periodic background classification.
package detection

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/classifier"
	"github.com/xaionaro-go/semanticmixer/pkg/observe"
	"github.com/xaionaro-go/semanticmixer/pkg/stability"
)

const DefaultTopN = 3

type Detection struct {
	Category   category.Name
	Confidence float64
}

type Result struct {
	// Raw are the classifier scores of the known categories.
	Raw category.Scores
	// Smoothed are Raw after the optional median smoothing.
	Smoothed category.Scores
	// Stable is the majority vote over the recent calls.
	Stable category.States
	// States are the Schmitt trigger states.
	States category.States

	Top            []Detection
	SafetyOverride bool
	Timestamp      time.Time
}

// Detector wraps a Classifier with the stability stack. It is safe for
// concurrent use, but concurrent calls share the temporal state.
type Detector struct {
	Classifier classifier.Classifier
	Mapping    *category.Mapping
	Metrics    *observe.Metrics
	TopN       int

	locker sync.Mutex
	stack  *stability.Stack
}

func NewDetector(
	cls classifier.Classifier,
	mapping *category.Mapping,
	cfg stability.Config,
	metrics *observe.Metrics,
) (*Detector, error) {
	if cls == nil {
		return nil, fmt.Errorf("the classifier is mandatory")
	}
	if mapping == nil {
		return nil, fmt.Errorf("the category mapping is mandatory")
	}
	stack, err := stability.NewStack(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the stability stack: %w", err)
	}
	return &Detector{
		Classifier: cls,
		Mapping:    mapping,
		Metrics:    metrics,
		TopN:       DefaultTopN,
		stack:      stack,
	}, nil
}

func (d *Detector) EnsureInitialized(ctx context.Context) error {
	return classifier.EnsureInitialized(ctx, d.Classifier)
}

func (d *Detector) Classify(
	ctx context.Context,
	frame audio.Frame,
) (_ret *Result, _err error) {
	logger.Tracef(ctx, "Classify")
	defer func() { logger.Tracef(ctx, "/Classify: %v", _err) }()

	startTS := time.Now()
	scores, err := d.Classifier.Classify(ctx, frame)
	d.Metrics.ObserveClassify(ctx, time.Since(startTS))
	if err != nil {
		return nil, fmt.Errorf("unable to classify: %w", err)
	}

	raw := make(category.Scores, len(scores))
	for name, confidence := range scores {
		if _, ok := d.Mapping.Get(name); !ok {
			logger.Debugf(ctx, "ignoring the unknown category '%s'", name)
			continue
		}
		raw[name] = confidence
	}

	d.locker.Lock()
	out := d.stack.Apply(raw)
	d.locker.Unlock()

	return &Result{
		Raw:            raw,
		Smoothed:       out.Smoothed,
		Stable:         out.Stable,
		States:         out.States,
		Top:            TopN(out.Smoothed, d.TopN),
		SafetyOverride: d.SafetyTriggered(out.States),
		Timestamp:      startTS,
	}, nil
}

// SafetyTriggered returns true if any safety-critical category is on.
func (d *Detector) SafetyTriggered(states category.States) bool {
	for _, name := range d.Mapping.SafetyCritical() {
		if states[name] {
			return true
		}
	}
	return false
}

func (d *Detector) Reset() {
	d.locker.Lock()
	defer d.locker.Unlock()
	d.stack.Reset()
}

func (d *Detector) Close() error {
	return d.Classifier.Close()
}

// TopN returns up to n categories with the highest scores; equal scores
// are ordered by name.
func TopN(scores category.Scores, n int) []Detection {
	result := make([]Detection, 0, len(scores))
	for name, confidence := range scores {
		result = append(result, Detection{Category: name, Confidence: confidence})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Confidence != result[j].Confidence {
			return result[i].Confidence > result[j].Confidence
		}
		return result[i].Category < result[j].Category
	})
	if n >= 0 && len(result) > n {
		result = result[:n]
	}
	return result
}
