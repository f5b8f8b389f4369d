// Package observe provides the OpenTelemetry metrics of the mixer.
//
// Every method of *Metrics is safe to call on a nil receiver, so components
// may be constructed without metrics.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/xaionaro-go/semanticmixer"

type Metrics struct {
	ClassifyDuration       metric.Float64Histogram
	SeparateDuration       metric.Float64Histogram
	SuppressDuration       metric.Float64Histogram
	InferenceFrameDuration metric.Float64Histogram

	SafetyActivations metric.Int64Counter
	ProfileSwitches   metric.Int64Counter
	DroppedMessages   metric.Int64Counter
	PassThroughs      metric.Int64Counter
	Underruns         metric.Int64Counter
}

// latencyBuckets are in seconds; an audio block is tens of milliseconds
// while a classification may take a second.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ClassifyDuration, err = m.Float64Histogram("semanticmixer.classify.duration",
		metric.WithDescription("Latency of a classification call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SeparateDuration, err = m.Float64Histogram("semanticmixer.separate.duration",
		metric.WithDescription("Latency of a separation call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SuppressDuration, err = m.Float64Histogram("semanticmixer.suppress.duration",
		metric.WithDescription("Latency of a whole suppression call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InferenceFrameDuration, err = m.Float64Histogram("semanticmixer.inference_frame.duration",
		metric.WithDescription("Time to process one block in the inference loop."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.SafetyActivations, err = m.Int64Counter("semanticmixer.safety.activations",
		metric.WithDescription("Safety override activations by category."),
	); err != nil {
		return nil, err
	}
	if met.ProfileSwitches, err = m.Int64Counter("semanticmixer.profile.switches",
		metric.WithDescription("Profile switches by reason."),
	); err != nil {
		return nil, err
	}
	if met.DroppedMessages, err = m.Int64Counter("semanticmixer.channel.dropped",
		metric.WithDescription("Messages dropped on full channels."),
	); err != nil {
		return nil, err
	}
	if met.PassThroughs, err = m.Int64Counter("semanticmixer.passthrough",
		metric.WithDescription("Audio passed through unchanged because of an error."),
	); err != nil {
		return nil, err
	}
	if met.Underruns, err = m.Int64Counter("semanticmixer.underruns",
		metric.WithDescription("Ring buffer underruns by loop."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

func (m *Metrics) ObserveClassify(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.ClassifyDuration.Record(ctx, d.Seconds())
}

func (m *Metrics) ObserveSeparate(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.SeparateDuration.Record(ctx, d.Seconds())
}

func (m *Metrics) ObserveSuppress(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.SuppressDuration.Record(ctx, d.Seconds())
}

func (m *Metrics) ObserveInferenceFrame(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.InferenceFrameDuration.Record(ctx, d.Seconds())
}

func (m *Metrics) SafetyActivated(ctx context.Context, category string) {
	if m == nil {
		return
	}
	m.SafetyActivations.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
}

func (m *Metrics) ProfileSwitched(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.ProfileSwitches.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) MessageDropped(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	m.DroppedMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", channel)))
}

func (m *Metrics) PassedThrough(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.PassThroughs.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *Metrics) Underrun(ctx context.Context, loop string) {
	if m == nil {
		return
	}
	m.Underruns.Add(ctx, 1, metric.WithAttributes(attribute.String("loop", loop)))
}
