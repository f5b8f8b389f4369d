// Package pipeline assembles the components of the semantic mixer from
// the configuration.
package pipeline

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/semanticmixer/internal/config"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/classifier"
	"github.com/xaionaro-go/semanticmixer/pkg/classifier/implementations/spectral"
	"github.com/xaionaro-go/semanticmixer/pkg/classifier/implementations/yamnet"
	"github.com/xaionaro-go/semanticmixer/pkg/control"
	"github.com/xaionaro-go/semanticmixer/pkg/detection"
	"github.com/xaionaro-go/semanticmixer/pkg/observe"
	"github.com/xaionaro-go/semanticmixer/pkg/profile"
	"github.com/xaionaro-go/semanticmixer/pkg/safety"
	"github.com/xaionaro-go/semanticmixer/pkg/separator"
	"github.com/xaionaro-go/semanticmixer/pkg/separator/implementations/rnnoise"
	"github.com/xaionaro-go/semanticmixer/pkg/separator/implementations/spectralmask"
	"github.com/xaionaro-go/semanticmixer/pkg/separator/implementations/waveformer"
	"github.com/xaionaro-go/semanticmixer/pkg/suppressor"
)

type Pipeline struct {
	Config     config.Config
	Mapping    *category.Mapping
	Profiles   *profile.Manager
	Classifier classifier.Classifier
	Separator  separator.Separator
	// Detector feeds the detection thread; the suppressor has its own,
	// so that both keep independent temporal state.
	Detector   *detection.Detector
	Suppressor *suppressor.SemanticSuppressor
	Safety     *safety.Override
	Engine     *control.Engine
	Metrics    *observe.Metrics
}

func New(
	ctx context.Context,
	cfg config.Config,
	metrics *observe.Metrics,
) (_ret *Pipeline, _err error) {
	logger.Debugf(ctx, "pipeline.New")
	defer func() { logger.Debugf(ctx, "/pipeline.New: %v", _err) }()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	p := &Pipeline{
		Config:  cfg,
		Metrics: metrics,
	}
	defer func() {
		if _err != nil {
			_ = p.Close()
		}
	}()

	var err error
	p.Mapping, err = LoadMapping(cfg.Categories)
	if err != nil {
		return nil, err
	}
	p.Profiles, err = LoadProfiles(cfg.Profiles)
	if err != nil {
		return nil, err
	}
	p.Classifier, err = NewClassifier(cfg.Models, p.Mapping)
	if err != nil {
		return nil, err
	}
	p.Separator, err = NewSeparator(cfg.Models)
	if err != nil {
		return nil, err
	}

	p.Detector, err = detection.NewDetector(p.Classifier, p.Mapping, cfg.Detection.Stability, metrics)
	if err != nil {
		return nil, fmt.Errorf("unable to create the detector: %w", err)
	}
	p.Detector.TopN = cfg.Detection.TopN
	suppressorDetector, err := detection.NewDetector(p.Classifier, p.Mapping, cfg.Detection.Stability, metrics)
	if err != nil {
		return nil, fmt.Errorf("unable to create the detector of the suppressor: %w", err)
	}
	p.Suppressor, err = suppressor.New(suppressorDetector, p.Separator, metrics)
	if err != nil {
		return nil, fmt.Errorf("unable to create the suppressor: %w", err)
	}
	if err := p.Suppressor.EnsureInitialized(ctx); err != nil {
		return nil, fmt.Errorf("unable to load the models: %w", err)
	}

	p.Safety, err = safety.New(cfg.Safety.Config, metrics)
	if err != nil {
		return nil, fmt.Errorf("unable to create the safety override: %w", err)
	}
	p.Engine, err = control.New(ctx, cfg.Control, p.Profiles, p.Suppressor, p.Safety, metrics)
	if err != nil {
		return nil, fmt.Errorf("unable to create the control engine: %w", err)
	}
	p.Engine.EventSeparator, p.Engine.EventTargets = spectralmask.NewForCategories(p.Mapping, p.Mapping.SafetyCritical())

	mode, err := control.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	if cfg.Profile != "" {
		if err := p.Engine.SetProfileByID(ctx, cfg.Profile); err != nil {
			return nil, fmt.Errorf("unable to select the initial profile: %w", err)
		}
	}
	p.Engine.SetMode(ctx, mode)
	return p, nil
}

func LoadMapping(path string) (*category.Mapping, error) {
	if path == "" {
		return category.DefaultMapping(), nil
	}
	m, err := category.LoadMapping(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load the category mapping: %w", err)
	}
	return m, nil
}

func LoadProfiles(path string) (*profile.Manager, error) {
	if path == "" {
		return profile.DefaultManager(), nil
	}
	m, err := profile.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load the profiles: %w", err)
	}
	return m, nil
}

func NewClassifier(cfg config.Models, mapping *category.Mapping) (classifier.Classifier, error) {
	switch cfg.Classifier {
	case config.ClassifierSpectral:
		c, err := spectral.New(mapping)
		if err != nil {
			return nil, fmt.Errorf("unable to create the spectral classifier: %w", err)
		}
		return c, nil
	case config.ClassifierYAMNet:
		c, err := yamnet.New(cfg.YAMNetPath, mapping)
		if err != nil {
			return nil, fmt.Errorf("unable to create the YAMNet classifier: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown classifier '%s'", cfg.Classifier)
	}
}

func NewSeparator(cfg config.Models) (separator.Separator, error) {
	switch cfg.Separator {
	case config.SeparatorSpectralMask:
		return spectralmask.New(), nil
	case config.SeparatorWaveformer:
		s, err := waveformer.New(cfg.WaveformerPath)
		if err != nil {
			return nil, fmt.Errorf("unable to create the Waveformer separator: %w", err)
		}
		return s, nil
	case config.SeparatorRNNoise:
		s, err := rnnoise.New()
		if err != nil {
			return nil, fmt.Errorf("unable to create the RNNoise separator: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown separator '%s'", cfg.Separator)
	}
}

func (p *Pipeline) Close() error {
	var mErr *multierror.Error
	if p.Classifier != nil {
		if err := p.Classifier.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close the classifier: %w", err))
		}
	}
	if p.Separator != nil {
		if err := p.Separator.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close the separator: %w", err))
		}
	}
	return mErr.ErrorOrNil()
}
