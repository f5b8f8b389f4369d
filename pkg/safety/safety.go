// Package safety guarantees that critical sounds like sirens and alarms
// always pass through: once such a sound is detected, the suppression is
// bypassed and the event bus is boosted for at least the hold time.
package safety

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/gain"
	"github.com/xaionaro-go/semanticmixer/pkg/observe"
)

const (
	DefaultThreshold  = 0.7
	DefaultDuckAmount = 0.2
	DefaultHoldTime   = 5 * time.Second
)

type State int

const (
	StateNormal = State(iota)
	StateOverrideActive
	StateOverrideFading
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateOverrideActive:
		return "OVERRIDE_ACTIVE"
	case StateOverrideFading:
		return "OVERRIDE_FADING"
	default:
		return fmt.Sprintf("unknown_state_%d", int(s))
	}
}

// Status is the outcome of the latest Check. Category is empty while fading.
type Status struct {
	Active     bool
	State      State
	Category   category.Name
	Confidence float64
	Timestamp  time.Time
}

type AlertInfo struct {
	Category   category.Name
	Confidence float64
	Message    string
	// ShowBanner is true for a live detection and false while fading.
	ShowBanner bool
}

// AlertSink is notified once per activation.
type AlertSink func(ctx context.Context, status Status)

type Config struct {
	Threshold          float64         `yaml:"threshold"`
	DuckAmount         float64         `yaml:"duck_amount"`
	HoldTime           time.Duration   `yaml:"hold_time"`
	CriticalCategories []category.Name `yaml:"critical_categories"`
}

func DefaultConfig() Config {
	return Config{
		Threshold:          DefaultThreshold,
		DuckAmount:         DefaultDuckAmount,
		HoldTime:           DefaultHoldTime,
		CriticalCategories: []category.Name{category.Siren, category.Alarm},
	}
}

func (cfg Config) Validate() error {
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		return fmt.Errorf("the threshold %v is out of (0, 1]", cfg.Threshold)
	}
	if cfg.DuckAmount < 0 || cfg.DuckAmount > 1 {
		return fmt.Errorf("the duck amount %v is out of [0, 1]", cfg.DuckAmount)
	}
	if cfg.HoldTime <= 0 {
		return fmt.Errorf("the hold time must be positive, got %v", cfg.HoldTime)
	}
	if len(cfg.CriticalCategories) == 0 {
		return fmt.Errorf("no critical categories")
	}
	return nil
}

type Override struct {
	Config  Config
	Metrics *observe.Metrics
	// Now is the clock; it may be replaced before the first Check.
	Now func() time.Time

	locker        sync.Mutex
	status        Status
	lastDetection time.Time
	alerted       bool
	sinks         []AlertSink
}

func New(cfg Config, metrics *observe.Metrics) (*Override, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid safety config: %w", err)
	}
	return &Override{
		Config:  cfg,
		Metrics: metrics,
		Now:     time.Now,
	}, nil
}

func (o *Override) OnAlert(sink AlertSink) {
	o.locker.Lock()
	defer o.locker.Unlock()
	o.sinks = append(o.sinks, sink)
}

// Check updates the state machine with the latest detections.
func (o *Override) Check(ctx context.Context, scores category.Scores) Status {
	o.locker.Lock()
	status, sinks := o.checkLocked(ctx, scores)
	o.locker.Unlock()

	for _, sink := range sinks {
		sink(ctx, status)
	}
	return status
}

func (o *Override) checkLocked(ctx context.Context, scores category.Scores) (Status, []AlertSink) {
	now := o.Now()

	var (
		found   category.Name
		highest float64
	)
	for _, name := range o.Config.CriticalCategories {
		confidence := scores[name]
		if confidence >= o.Config.Threshold && confidence > highest {
			found, highest = name, confidence
		}
	}

	if found != "" {
		o.lastDetection = now
		o.status = Status{
			Active:     true,
			State:      StateOverrideActive,
			Category:   found,
			Confidence: highest,
			Timestamp:  now,
		}
		if o.alerted {
			return o.status, nil
		}
		o.alerted = true
		logger.Warnf(ctx, "safety override triggered: %s (%.0f%%)", found, highest*100)
		o.Metrics.SafetyActivated(ctx, string(found))
		return o.status, append([]AlertSink(nil), o.sinks...)
	}

	if o.lastDetection.IsZero() {
		o.status = Status{State: StateNormal, Timestamp: now}
		return o.status, nil
	}

	elapsed := now.Sub(o.lastDetection)
	if elapsed < o.Config.HoldTime {
		o.status = Status{
			Active:     true,
			State:      StateOverrideFading,
			Confidence: 1 - float64(elapsed)/float64(o.Config.HoldTime),
			Timestamp:  now,
		}
		return o.status, nil
	}

	if o.status.State != StateNormal {
		logger.Infof(ctx, "safety override released")
	}
	o.lastDetection = time.Time{}
	o.alerted = false
	o.status = Status{State: StateNormal, Timestamp: now}
	return o.status, nil
}

// ApplyOverride checks the detections and, while the override is active,
// returns gains with the event bus at 1 and the other buses ducked.
// The input gains are never modified, so they apply again once the state
// is back to normal.
func (o *Override) ApplyOverride(ctx context.Context, gains gain.Vector, scores category.Scores) gain.Vector {
	status := o.Check(ctx, scores)
	if !status.Active {
		return gains
	}
	return o.Duck(gains)
}

func (o *Override) Duck(gains gain.Vector) gain.Vector {
	return gain.Vector{
		Speech: gains.Speech * o.Config.DuckAmount,
		Noise:  gains.Noise * o.Config.DuckAmount,
		Events: 1,
	}
}

func (o *Override) Status() Status {
	o.locker.Lock()
	defer o.locker.Unlock()
	return o.status
}

func (o *Override) State() State {
	return o.Status().State
}

func (o *Override) IsActive() bool {
	return o.Status().Active
}

func (o *Override) IsCritical(name category.Name) bool {
	for _, c := range o.Config.CriticalCategories {
		if c == name {
			return true
		}
	}
	return false
}

func (o *Override) StatusString() string {
	return statusString(o.Status())
}

func statusString(status Status) string {
	switch {
	case !status.Active:
		return "Normal"
	case status.Category != "":
		return fmt.Sprintf("SAFETY ALERT: %s detected (%.0f%%)", strings.ToUpper(string(status.Category)), status.Confidence*100)
	default:
		return fmt.Sprintf("Safety override fading... (%.0f%%)", status.Confidence*100)
	}
}

// AlertInfo returns nil if the override is not active.
func (o *Override) AlertInfo() *AlertInfo {
	status := o.Status()
	if !status.Active {
		return nil
	}
	return &AlertInfo{
		Category:   status.Category,
		Confidence: status.Confidence,
		Message:    statusString(status),
		ShowBanner: status.Category != "",
	}
}

func (o *Override) Reset() {
	o.locker.Lock()
	defer o.locker.Unlock()
	o.status = Status{State: StateNormal, Timestamp: o.Now()}
	o.lastDetection = time.Time{}
	o.alerted = false
}
