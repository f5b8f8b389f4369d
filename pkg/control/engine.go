// Package control coordinates the profile, the mode, the safety override
// and the automatic profile selection, and runs the suppression.
package control

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/autocontrol"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/gain"
	"github.com/xaionaro-go/semanticmixer/pkg/observe"
	"github.com/xaionaro-go/semanticmixer/pkg/profile"
	"github.com/xaionaro-go/semanticmixer/pkg/safety"
	"github.com/xaionaro-go/semanticmixer/pkg/separator"
	"github.com/xaionaro-go/semanticmixer/pkg/suppressor"
	"github.com/xaionaro-go/semanticmixer/pkg/worker"
)

const (
	DefaultEventBufferSize  = 16
	DefaultSilenceThreshold = 0.01
)

var ErrNotFound = profile.ErrNotFound

type Suppressor interface {
	Suppress(ctx context.Context, frame audio.Frame, opts suppressor.Options) (audio.Frame, error)
}

// GainSink receives the gains decided by the engine; it must not block.
type GainSink interface {
	SetGains(ctx context.Context, gains gain.Vector)
}

type Config struct {
	Threshold      float64 `yaml:"threshold"`
	Aggressiveness float64 `yaml:"aggressiveness"`
	Hysteresis     float64 `yaml:"hysteresis"`
}

func DefaultConfig() Config {
	return Config{
		Threshold:      suppressor.DefaultThreshold,
		Aggressiveness: suppressor.DefaultAggressiveness,
		Hysteresis:     autocontrol.DefaultHysteresis,
	}
}

type State struct {
	Mode    Mode
	Profile profile.Profile
	// Gains are the effective gains, including the safety override.
	Gains          gain.Vector
	Safety         safety.Status
	LastDetections category.Scores
	// OverriddenProfile is the profile to restore after the safety override.
	OverriddenProfile *profile.Profile
}

type Engine struct {
	Config     Config
	Source     profile.Source
	Suppressor Suppressor
	Safety     *safety.Override
	Auto       *autocontrol.Controller
	Metrics    *observe.Metrics

	// EventSeparator extracts EventTargets from the suppressed audio, so
	// that safety-relevant events follow the events bus.
	EventSeparator separator.Separator
	EventTargets   []string

	locker         sync.Mutex
	mode           Mode
	current        *profile.Profile
	prior          *profile.Profile
	overridden     bool
	gains          gain.Vector
	effectiveGains gain.Vector
	lastDetections category.Scores
	gainSink       GainSink
	subscribers    []*subscriber
	droppedEvents  uint64
}

var (
	_ worker.Processor      = (*Engine)(nil)
	_ worker.EventSeparator = (*Engine)(nil)
)

func New(
	ctx context.Context,
	cfg Config,
	source profile.Source,
	sup Suppressor,
	safetyOverride *safety.Override,
	metrics *observe.Metrics,
) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("the profile source is mandatory")
	}
	if sup == nil {
		return nil, fmt.Errorf("the suppressor is mandatory")
	}
	if safetyOverride == nil {
		return nil, fmt.Errorf("the safety override is mandatory")
	}
	auto := autocontrol.New(source)
	auto.Hysteresis = cfg.Hysteresis

	e := &Engine{
		Config:         cfg,
		Source:         source,
		Suppressor:     sup,
		Safety:         safetyOverride,
		Auto:           auto,
		Metrics:        metrics,
		mode:           ModeManual,
		gains:          gain.Unity(),
		effectiveGains: gain.Unity(),
	}
	e.locker.Lock()
	defer e.locker.Unlock()
	e.applyProfileLocked(ctx, e.passThroughProfile(), "initial", "Initial profile")
	return e, nil
}

func (e *Engine) passThroughProfile() profile.Profile {
	if p, ok := e.Source.Profile(profile.PassThroughID); ok {
		return p
	}
	return profile.PassThrough()
}

// SetGainSink sets where the decided gains are pushed to and pushes the
// current ones.
func (e *Engine) SetGainSink(ctx context.Context, sink GainSink) {
	e.locker.Lock()
	defer e.locker.Unlock()
	e.gainSink = sink
	if sink != nil {
		sink.SetGains(ctx, e.effectiveGains)
	}
}

func (e *Engine) Mode() Mode {
	e.locker.Lock()
	defer e.locker.Unlock()
	return e.mode
}

func (e *Engine) SetMode(ctx context.Context, mode Mode) {
	e.locker.Lock()
	defer e.locker.Unlock()
	e.setModeLocked(ctx, mode)
}

func (e *Engine) setModeLocked(ctx context.Context, mode Mode) {
	if mode == e.mode {
		return
	}
	e.mode = mode
	if mode == ModeAuto && e.current == nil {
		e.applyProfileLocked(ctx, e.Source.Default(), "default", "Default profile")
	}
	logger.Infof(ctx, "mode switched to %s", mode)
	e.emitLocked(Event{Type: EventModeChanged, Mode: mode})
}

// SetProfile activates the profile. During a safety override the profile
// is activated only once the override is over.
func (e *Engine) SetProfile(ctx context.Context, p profile.Profile) {
	e.locker.Lock()
	defer e.locker.Unlock()
	if e.overridden {
		logger.Infof(ctx, "safety override is active, '%s' will be applied after it", p.ID)
		p := p.Clone()
		e.prior = &p
		e.gains = p.GainVector()
		e.pushGainsLocked(ctx)
		return
	}
	e.applyProfileLocked(ctx, p, "manual", "Selected manually")
}

func (e *Engine) SetProfileByID(ctx context.Context, id string) error {
	p, ok := e.Source.Profile(id)
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrNotFound, id)
	}
	e.SetProfile(ctx, p)
	return nil
}

// applyProfileLocked activates the profile; kind is a short metric label and
// reason is shown to the user.
func (e *Engine) applyProfileLocked(ctx context.Context, p profile.Profile, kind, reason string) {
	e.switchProfileLocked(ctx, p, kind, reason, true)
}

// switchProfileLocked keeps the user gains if resetGains is false; this is
// how the safety override swaps profiles back and forth.
func (e *Engine) switchProfileLocked(ctx context.Context, p profile.Profile, kind, reason string, resetGains bool) {
	p = p.Clone()
	e.current = &p
	if resetGains {
		e.gains = p.GainVector()
	}
	logger.Infof(ctx, "profile applied: '%s' (%s)", p.Name, reason)
	e.Metrics.ProfileSwitched(ctx, kind)
	e.emitLocked(Event{Type: EventProfileChanged, Profile: &p, Reason: reason})
	e.pushGainsLocked(ctx)
}

// SetGains sets the gains manually, switching to the manual mode.
func (e *Engine) SetGains(ctx context.Context, speech, noise, events float64) {
	gains := gain.Vector{Speech: speech, Noise: noise, Events: events}.Clamp()

	e.locker.Lock()
	defer e.locker.Unlock()
	e.setModeLocked(ctx, ModeManual)
	e.gains = gains
	logger.Debugf(ctx, "gains updated: %s", gains)
	e.pushGainsLocked(ctx)
}

func (e *Engine) pushGainsLocked(ctx context.Context) {
	effective := e.gains
	if e.overridden {
		effective = e.Safety.Duck(e.gains)
	}
	e.effectiveGains = effective
	if e.gainSink != nil {
		e.gainSink.SetGains(ctx, effective)
	}
	e.emitLocked(Event{Type: EventGainsChanged, Gains: effective})
}

// OnDetectionUpdate reacts to new detections: the safety override is
// evaluated first and regardless of the mode; then, in the auto mode,
// the profile may be switched.
func (e *Engine) OnDetectionUpdate(ctx context.Context, scores category.Scores) {
	logger.Tracef(ctx, "OnDetectionUpdate")
	defer func() { logger.Tracef(ctx, "/OnDetectionUpdate") }()

	scores = scores.Clone()
	status := e.Safety.Check(ctx, scores)

	e.locker.Lock()
	defer e.locker.Unlock()
	e.lastDetections = scores

	if status.Active {
		if !e.overridden {
			e.prior = e.current
			e.overridden = true
			e.switchProfileLocked(ctx, e.passThroughProfile(), "safety", statusReason(status), false)
		} else {
			e.pushGainsLocked(ctx)
		}
		e.emitLocked(Event{Type: EventSafetyAlert, Alert: e.Safety.AlertInfo()})
		e.emitLocked(Event{Type: EventDetectionsUpdated, Detections: scores})
		return
	}

	if e.overridden {
		e.overridden = false
		prior := e.prior
		e.prior = nil
		if prior == nil {
			p := e.passThroughProfile()
			prior = &p
		}
		e.switchProfileLocked(ctx, *prior, "restore", "Safety override cleared", false)
	}

	if e.mode == ModeAuto {
		rec := e.Auto.Recommend(scores)
		if e.Auto.ShouldSwitch(rec, e.current, scores) {
			logger.Infof(ctx, "auto-switching to '%s': %s", rec.Profile.Name, rec.Reason)
			e.applyProfileLocked(ctx, *rec.Profile, "auto", rec.Reason)
		}
	}

	e.emitLocked(Event{Type: EventDetectionsUpdated, Detections: scores})
}

// ProcessAudio suppresses the categories of the active profile. It never
// fails: on any error the input is returned unchanged.
func (e *Engine) ProcessAudio(ctx context.Context, frame audio.Frame) (_ret audio.Frame) {
	e.locker.Lock()
	var categories []category.Name
	if e.current != nil {
		categories = e.current.EnabledCategories()
	}
	e.locker.Unlock()

	if len(categories) == 0 {
		return frame
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "the suppression panicked: %v\n%s", r, debug.Stack())
			e.Metrics.PassedThrough(ctx, "panic")
			_ret = frame
		}
	}()

	out, err := e.Suppressor.Suppress(ctx, frame, suppressor.Options{
		Categories:     categories,
		Threshold:      e.Config.Threshold,
		Aggressiveness: e.Config.Aggressiveness,
		SafetyCheck:    true,
	})
	if err != nil {
		logger.Errorf(ctx, "unable to suppress %v, passing the audio through: %v", categories, err)
		e.Metrics.PassedThrough(ctx, "error")
		return frame
	}
	if !out.SameShape(frame) {
		logger.Errorf(ctx, "the suppressor changed the shape of the audio, passing it through")
		e.Metrics.PassedThrough(ctx, "shape")
		return frame
	}
	return out
}

// SeparateEvents returns the content of the event targets within frame.
// It reports false if there is no event separator or it failed.
func (e *Engine) SeparateEvents(ctx context.Context, frame audio.Frame) (audio.Frame, bool) {
	if e.EventSeparator == nil || len(e.EventTargets) == 0 {
		return audio.Frame{}, false
	}
	out, err := e.EventSeparator.Separate(ctx, frame, e.EventTargets)
	if err != nil {
		logger.Errorf(ctx, "unable to separate the events %v: %v", e.EventTargets, err)
		return audio.Frame{}, false
	}
	if !out.SameShape(frame) {
		logger.Errorf(ctx, "the event separator changed the shape of the audio")
		return audio.Frame{}, false
	}
	return out, true
}

func (e *Engine) State() State {
	e.locker.Lock()
	defer e.locker.Unlock()
	s := State{
		Mode:           e.mode,
		Gains:          e.effectiveGains,
		Safety:         e.Safety.Status(),
		LastDetections: e.lastDetections.Clone(),
	}
	if e.current != nil {
		s.Profile = e.current.Clone()
	}
	if e.overridden && e.prior != nil {
		p := e.prior.Clone()
		s.OverriddenProfile = &p
	}
	return s
}

func statusReason(status safety.Status) string {
	return fmt.Sprintf("Safety override: %s (%.0f%%)", status.Category, status.Confidence*100)
}

// DroppedEvents returns how many events were dropped on full subscriber
// channels.
func (e *Engine) DroppedEvents() uint64 {
	e.locker.Lock()
	defer e.locker.Unlock()
	return e.droppedEvents
}

// ShouldBypassModel reports whether the gains pass everything through.
// The audio path does not skip ProcessAudio on it, since the profile may
// still suppress categories at unity gains.
func ShouldBypassModel(gains gain.Vector) bool {
	return gains.IsPassThrough()
}

// IsSilent reports whether the mean absolute amplitude is below threshold.
func IsSilent(frame audio.Frame, threshold float64) bool {
	return frame.MeanAbs() < threshold
}
