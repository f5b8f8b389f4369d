// Package suppressor implements inverse separation: the unwanted categories
// are extracted by a Separator and subtracted from the original audio.
package suppressor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/resampler"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/detection"
	"github.com/xaionaro-go/semanticmixer/pkg/observe"
	"github.com/xaionaro-go/semanticmixer/pkg/separator"
)

const (
	DefaultThreshold      = 0.5
	DefaultAggressiveness = 1.0

	// DefaultDetectThreshold is the minimal confidence DetectCategories reports.
	DefaultDetectThreshold = 0.3

	silencePeak = 1e-8
)

type Options struct {
	Categories []category.Name
	// Threshold is the default detection threshold; categories may override it.
	Threshold float64
	// Aggressiveness multiplies the subtracted signal, at least 1.
	Aggressiveness float64
	// SafetyCheck bypasses the suppression while a safety-critical
	// category is on.
	SafetyCheck bool
}

func DefaultOptions(categories ...category.Name) Options {
	return Options{
		Categories:     categories,
		Threshold:      DefaultThreshold,
		Aggressiveness: DefaultAggressiveness,
		SafetyCheck:    true,
	}
}

type SemanticSuppressor struct {
	Detector  *detection.Detector
	Separator separator.Separator
	Mapping   *category.Mapping
	Metrics   *observe.Metrics
}

func New(
	detector *detection.Detector,
	sep separator.Separator,
	metrics *observe.Metrics,
) (*SemanticSuppressor, error) {
	if detector == nil {
		return nil, fmt.Errorf("the detector is mandatory")
	}
	if sep == nil {
		return nil, fmt.Errorf("the separator is mandatory")
	}
	return &SemanticSuppressor{
		Detector:  detector,
		Separator: sep,
		Mapping:   detector.Mapping,
		Metrics:   metrics,
	}, nil
}

// EnsureInitialized loads the models of the classifier and the separator.
func (s *SemanticSuppressor) EnsureInitialized(ctx context.Context) error {
	if err := s.Detector.EnsureInitialized(ctx); err != nil {
		return fmt.Errorf("unable to initialize the classifier: %w", err)
	}
	if err := separator.EnsureInitialized(ctx, s.Separator); err != nil {
		return fmt.Errorf("unable to initialize the separator: %w", err)
	}
	return nil
}

// Suppress returns the frame with the content of the requested categories
// subtracted; the output always has the same shape as the input.
func (s *SemanticSuppressor) Suppress(
	ctx context.Context,
	frame audio.Frame,
	opts Options,
) (_ret audio.Frame, _err error) {
	logger.Tracef(ctx, "Suppress(%v)", opts.Categories)
	defer func() { logger.Tracef(ctx, "/Suppress(%v): %v", opts.Categories, _err) }()
	defer func() {
		if r := recover(); r != nil {
			_err = fmt.Errorf("panic during the suppression: %v\n%s", r, debug.Stack())
		}
	}()

	if len(opts.Categories) == 0 {
		return frame, nil
	}
	if opts.Aggressiveness < 1 {
		return frame, fmt.Errorf("aggressiveness %v is less than 1", opts.Aggressiveness)
	}
	if err := frame.Validate(); err != nil {
		return frame, fmt.Errorf("invalid frame: %w", err)
	}

	startTS := time.Now()
	defer func() { s.Metrics.ObserveSuppress(ctx, time.Since(startTS)) }()

	result, err := s.Detector.Classify(ctx, frame)
	if err != nil {
		return frame, err
	}
	logger.Debugf(ctx, "detections: %v", result.Smoothed)

	if opts.SafetyCheck && result.SafetyOverride {
		logger.Warnf(ctx, "a safety-critical sound is detected, bypassing the suppression")
		return frame, nil
	}

	targets := s.targets(ctx, result.Smoothed, opts)
	if len(targets) == 0 {
		logger.Debugf(ctx, "nothing to suppress")
		return frame, nil
	}

	peak := frame.Peak()
	if peak < silencePeak {
		return frame, nil
	}
	scale := 1 / peak
	normalized := make([]float32, len(frame.Samples))
	for idx, v := range frame.Samples {
		normalized[idx] = float32(float64(v) * scale)
	}

	logger.Debugf(ctx, "separating %v", targets)
	sepStartTS := time.Now()
	unwanted, err := s.Separator.Separate(ctx, frame.WithSamples(normalized), targets)
	s.Metrics.ObserveSeparate(ctx, time.Since(sepStartTS))
	if err != nil {
		return frame, fmt.Errorf("unable to separate %v: %w", targets, err)
	}
	if unwanted.Channels != frame.Channels {
		return frame, fmt.Errorf("the separator returned %d channels instead of %d", unwanted.Channels, frame.Channels)
	}
	if unwanted.SampleRate != frame.SampleRate {
		unwanted, err = resampler.Resample(unwanted, resampler.FormatOf(frame))
		if err != nil {
			return frame, fmt.Errorf("unable to resample the separated audio: %w", err)
		}
	}

	return subtract(frame, unwanted, peak*opts.Aggressiveness), nil
}

// subtract returns original - factor*unwanted over the common length;
// the rest of original is kept as is.
func subtract(original, unwanted audio.Frame, factor float64) audio.Frame {
	out := make([]float32, len(original.Samples))
	copy(out, original.Samples)
	n := min(len(original.Samples), len(unwanted.Samples))
	for idx := 0; idx < n; idx++ {
		out[idx] = float32(float64(original.Samples[idx]) - factor*float64(unwanted.Samples[idx]))
	}
	return original.WithSamples(out)
}

func (s *SemanticSuppressor) targets(
	ctx context.Context,
	scores category.Scores,
	opts Options,
) []string {
	var supported map[string]struct{}
	if known := s.Separator.Targets(); known != nil {
		supported = make(map[string]struct{}, len(known))
		for _, t := range known {
			supported[t] = struct{}{}
		}
	}

	set := map[string]struct{}{}
	for _, name := range opts.Categories {
		cat, ok := s.Mapping.Get(name)
		if !ok {
			logger.Warnf(ctx, "unknown category '%s', skipping", name)
			continue
		}
		if cat.SafetyOverride {
			logger.Warnf(ctx, "category '%s' is safety-critical and cannot be suppressed", name)
			continue
		}
		if len(cat.SeparatorTargets) == 0 {
			logger.Debugf(ctx, "category '%s' has no separator targets, skipping", name)
			continue
		}

		confidence := scores[name]
		threshold := cat.EffectiveThreshold(opts.Threshold)
		switch {
		case cat.IsForced(opts.Threshold):
			logger.Debugf(ctx, "forcing the suppression of '%s'", name)
		case confidence >= threshold:
			logger.Debugf(ctx, "suppressing '%s' (confidence %.2f >= %.2f)", name, confidence, threshold)
		default:
			logger.Tracef(ctx, "skipping '%s' (confidence %.2f < %.2f)", name, confidence, threshold)
			continue
		}

		for _, target := range cat.SeparatorTargets {
			if supported != nil {
				if _, ok := supported[target]; !ok {
					logger.Warnf(ctx, "the separator does not support target '%s' of '%s', skipping", target, name)
					continue
				}
			}
			set[target] = struct{}{}
		}
	}

	result := make([]string, 0, len(set))
	for target := range set {
		result = append(result, target)
	}
	sort.Strings(result)
	return result
}

// DetectCategories returns the smoothed confidences of at least threshold.
func (s *SemanticSuppressor) DetectCategories(
	ctx context.Context,
	frame audio.Frame,
	threshold float64,
) (category.Scores, error) {
	result, err := s.Detector.Classify(ctx, frame)
	if err != nil {
		return nil, err
	}
	scores := category.Scores{}
	for name, confidence := range result.Smoothed {
		if confidence >= threshold {
			scores[name] = confidence
		}
	}
	return scores, nil
}

func (s *SemanticSuppressor) Close() error {
	return s.Separator.Close()
}
