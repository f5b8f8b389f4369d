// Package config describes the configuration file of the semantic mixer.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/semanticmixer/pkg/control"
	"github.com/xaionaro-go/semanticmixer/pkg/detection"
	"github.com/xaionaro-go/semanticmixer/pkg/safety"
	"github.com/xaionaro-go/semanticmixer/pkg/stability"
	"github.com/xaionaro-go/semanticmixer/pkg/worker"
	"gopkg.in/yaml.v3"
)

const (
	ClassifierSpectral = "spectral"
	ClassifierYAMNet   = "yamnet"

	SeparatorSpectralMask = "spectralmask"
	SeparatorWaveformer   = "waveformer"
	SeparatorRNNoise      = "rnnoise"
)

type Stream struct {
	SampleRate      uint32 `yaml:"sample_rate"`
	Channels        uint32 `yaml:"channels"`
	FramesPerBuffer uint32 `yaml:"frames_per_buffer"`
}

type Detection struct {
	BaseInterval     time.Duration    `yaml:"base_interval"`
	NormalInterval   time.Duration    `yaml:"normal_interval"`
	SavingInterval   time.Duration    `yaml:"saving_interval"`
	CriticalInterval time.Duration    `yaml:"critical_interval"`
	UseBattery       bool             `yaml:"use_battery"`
	TopN             int              `yaml:"top_n"`
	Stability        stability.Config `yaml:"stability"`
}

type Safety struct {
	safety.Config `yaml:",inline"`
	// AlertSound is an Ogg/Vorbis file played once per activation.
	AlertSound string `yaml:"alert_sound"`
}

type Models struct {
	Classifier     string `yaml:"classifier"`
	YAMNetPath     string `yaml:"yamnet_path"`
	Separator      string `yaml:"separator"`
	WaveformerPath string `yaml:"waveformer_path"`
}

type Config struct {
	Stream     Stream         `yaml:"stream"`
	Worker     worker.Config  `yaml:"worker"`
	Detection  Detection      `yaml:"detection"`
	Safety     Safety         `yaml:"safety"`
	Control    control.Config `yaml:"control"`
	Models     Models         `yaml:"models"`
	Categories string         `yaml:"categories"`
	Profiles   string         `yaml:"profiles"`
	Mode       string         `yaml:"mode"`
	Profile    string         `yaml:"profile"`
}

func Default() Config {
	return Config{
		Stream: Stream{
			SampleRate:      48000,
			Channels:        1,
			FramesPerBuffer: 480,
		},
		Worker: worker.DefaultConfig(),
		Detection: Detection{
			BaseInterval:     detection.DefaultBaseInterval,
			NormalInterval:   stability.DefaultNormalInterval,
			SavingInterval:   stability.DefaultSavingInterval,
			CriticalInterval: stability.DefaultCriticalInterval,
			UseBattery:       true,
			TopN:             detection.DefaultTopN,
			Stability:        stability.DefaultConfig(),
		},
		Safety: Safety{
			Config: safety.DefaultConfig(),
		},
		Control: control.DefaultConfig(),
		Models: Models{
			Classifier: ClassifierSpectral,
			Separator:  SeparatorSpectralMask,
		},
		Mode: control.ModeManual.String(),
	}
}

// Load overlays the YAML file at path over the defaults. Unknown keys are
// an error.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("unable to parse '%s': %w", path, err)
	}
	return cfg, nil
}

func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("unable to decode YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (cfg Config) Validate() error {
	var mErr *multierror.Error
	if cfg.Stream.SampleRate == 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("stream: sample rate is zero"))
	}
	if cfg.Stream.Channels == 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("stream: channel count is zero"))
	}
	if cfg.Stream.FramesPerBuffer == 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("stream: frames per buffer is zero"))
	}
	if err := cfg.Worker.Validate(); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("worker: %w", err))
	}
	if cfg.Detection.BaseInterval <= 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("detection: base interval must be positive"))
	}
	if _, err := stability.NewAdaptiveDutyCycle(cfg.Detection.NormalInterval, cfg.Detection.SavingInterval, cfg.Detection.CriticalInterval, nil); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("detection: %w", err))
	}
	if cfg.Detection.TopN <= 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("detection: top_n must be positive"))
	}
	if _, err := stability.NewStack(cfg.Detection.Stability); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("detection: stability: %w", err))
	}
	if err := cfg.Safety.Config.Validate(); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("safety: %w", err))
	}
	if cfg.Control.Threshold < 0 || cfg.Control.Threshold > 1 {
		mErr = multierror.Append(mErr, fmt.Errorf("control: threshold %v is out of [0, 1]", cfg.Control.Threshold))
	}
	if cfg.Control.Aggressiveness < 1 {
		mErr = multierror.Append(mErr, fmt.Errorf("control: aggressiveness must be at least 1, got %v", cfg.Control.Aggressiveness))
	}
	if cfg.Control.Hysteresis < 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("control: hysteresis must not be negative, got %v", cfg.Control.Hysteresis))
	}
	switch cfg.Models.Classifier {
	case ClassifierSpectral:
	case ClassifierYAMNet:
		if cfg.Models.YAMNetPath == "" {
			mErr = multierror.Append(mErr, fmt.Errorf("models: yamnet_path is required for the '%s' classifier", ClassifierYAMNet))
		}
	default:
		mErr = multierror.Append(mErr, fmt.Errorf("models: unknown classifier '%s'", cfg.Models.Classifier))
	}
	switch cfg.Models.Separator {
	case SeparatorSpectralMask, SeparatorRNNoise:
	case SeparatorWaveformer:
		if cfg.Models.WaveformerPath == "" {
			mErr = multierror.Append(mErr, fmt.Errorf("models: waveformer_path is required for the '%s' separator", SeparatorWaveformer))
		}
	default:
		mErr = multierror.Append(mErr, fmt.Errorf("models: unknown separator '%s'", cfg.Models.Separator))
	}
	if _, err := control.ParseMode(cfg.Mode); err != nil {
		mErr = multierror.Append(mErr, err)
	}
	return mErr.ErrorOrNil()
}
