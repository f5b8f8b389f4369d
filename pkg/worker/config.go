package worker

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/semanticmixer/pkg/gain"
)

const (
	DefaultBufferDuration     = 300 * time.Millisecond
	DefaultWindowDuration     = 3 * time.Second
	DefaultJoinTimeout        = time.Second
	DefaultUnderrunSleep      = time.Millisecond
	DefaultGainQueueSize      = 8
	DefaultTelemetryQueueSize = 16
	DefaultResidualBed        = 0.0
)

type Config struct {
	// BufferDuration sizes the input and output ring buffers.
	BufferDuration time.Duration `yaml:"buffer_duration"`
	// WindowDuration is the length of the audio window kept for detection.
	WindowDuration time.Duration `yaml:"window_duration"`
	JoinTimeout    time.Duration `yaml:"join_timeout"`
	UnderrunSleep  time.Duration `yaml:"underrun_sleep"`

	SmoothingAlpha float64 `yaml:"smoothing_alpha"`
	NoiseFloor     float64 `yaml:"noise_floor"`
	// ResidualBed is the share of the suppressed content let back in,
	// scaled by the noise bus; zero removes it completely.
	ResidualBed float64 `yaml:"residual_bed"`

	GainQueueSize      int `yaml:"gain_queue_size"`
	TelemetryQueueSize int `yaml:"telemetry_queue_size"`
}

func DefaultConfig() Config {
	return Config{
		BufferDuration:     DefaultBufferDuration,
		WindowDuration:     DefaultWindowDuration,
		JoinTimeout:        DefaultJoinTimeout,
		UnderrunSleep:      DefaultUnderrunSleep,
		SmoothingAlpha:     gain.DefaultAlpha,
		NoiseFloor:         gain.DefaultNoiseFloor,
		ResidualBed:        DefaultResidualBed,
		GainQueueSize:      DefaultGainQueueSize,
		TelemetryQueueSize: DefaultTelemetryQueueSize,
	}
}

func (cfg Config) Validate() error {
	var mErr *multierror.Error
	if cfg.BufferDuration <= 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("buffer duration must be positive, got %v", cfg.BufferDuration))
	}
	if cfg.WindowDuration <= 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("window duration must be positive, got %v", cfg.WindowDuration))
	}
	if cfg.JoinTimeout <= 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("join timeout must be positive, got %v", cfg.JoinTimeout))
	}
	if cfg.UnderrunSleep <= 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("underrun sleep must be positive, got %v", cfg.UnderrunSleep))
	}
	if _, err := gain.NewSmoother(cfg.SmoothingAlpha, cfg.NoiseFloor); err != nil {
		mErr = multierror.Append(mErr, err)
	}
	if cfg.ResidualBed < 0 || cfg.ResidualBed > 1 {
		mErr = multierror.Append(mErr, fmt.Errorf("residual bed must be within [0, 1], got %v", cfg.ResidualBed))
	}
	if cfg.GainQueueSize <= 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("gain queue size must be positive, got %d", cfg.GainQueueSize))
	}
	if cfg.TelemetryQueueSize <= 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("telemetry queue size must be positive, got %d", cfg.TelemetryQueueSize))
	}
	return mErr.ErrorOrNil()
}

func samplesFor(d time.Duration, rate uint32, channels uint32) int {
	return int(int64(d) * int64(rate) * int64(channels) / int64(time.Second))
}
