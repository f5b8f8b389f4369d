//go:build onnxruntime
// +build onnxruntime

// Package yamnet runs the YAMNet AudioSet classifier through ONNX Runtime.
package yamnet

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/classifier"
	"github.com/xaionaro-go/semanticmixer/pkg/onnxenv"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	inputName  = "waveform"
	outputName = "scores"
)

type YAMNet struct {
	ModelPath string
	Mapping   *category.Mapping

	locker  sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

var (
	_ classifier.Classifier  = (*YAMNet)(nil)
	_ classifier.Initializer = (*YAMNet)(nil)
)

func New(modelPath string, mapping *category.Mapping) (*YAMNet, error) {
	if mapping == nil {
		return nil, fmt.Errorf("the category mapping is mandatory")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("unable to access the model file '%s': %w", modelPath, err)
	}
	return &YAMNet{
		ModelPath: modelPath,
		Mapping:   mapping,
	}, nil
}

func (y *YAMNet) EnsureInitialized(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "EnsureInitialized")
	defer func() { logger.Tracef(ctx, "/EnsureInitialized: %v", _err) }()

	y.locker.Lock()
	defer y.locker.Unlock()
	return y.initLocked(ctx)
}

func (y *YAMNet) initLocked(ctx context.Context) (_err error) {
	if y.session != nil {
		return nil
	}
	if err := onnxenv.Ensure(); err != nil {
		return err
	}

	opts, err := onnxenv.SessionOptions(0)
	if err != nil {
		return err
	}
	defer opts.Destroy()

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(WindowSamples)))
	if err != nil {
		return fmt.Errorf("unable to allocate the input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(NumPatches), NumClasses))
	if err != nil {
		input.Destroy()
		return fmt.Errorf("unable to allocate the output tensor: %w", err)
	}
	session, err := ort.NewAdvancedSession(
		y.ModelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.Value{input},
		[]ort.Value{output},
		opts,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return fmt.Errorf("unable to load the model '%s': %w", y.ModelPath, err)
	}

	logger.Debugf(ctx, "loaded the YAMNet model from '%s'", y.ModelPath)
	y.session, y.input, y.output = session, input, output
	return nil
}

func (y *YAMNet) Classify(
	ctx context.Context,
	frame audio.Frame,
) (_ret category.Scores, _err error) {
	logger.Tracef(ctx, "Classify")
	defer func() { logger.Tracef(ctx, "/Classify: %v %v", _ret, _err) }()

	if frame.IsEmpty() {
		return nil, classifier.ErrEmptyInput
	}

	y.locker.Lock()
	defer y.locker.Unlock()
	if err := y.initLocked(ctx); err != nil {
		return nil, fmt.Errorf("unable to initialize: %w", err)
	}

	if err := prepareInput(frame, y.input.GetData()); err != nil {
		return nil, err
	}
	if err := y.session.Run(); err != nil {
		return nil, fmt.Errorf("unable to run the inference: %w", err)
	}
	return categoryScores(y.Mapping, y.output.GetData())
}

func (y *YAMNet) Close() error {
	y.locker.Lock()
	defer y.locker.Unlock()
	if y.session == nil {
		return nil
	}
	err := y.session.Destroy()
	y.input.Destroy()
	y.output.Destroy()
	y.session, y.input, y.output = nil, nil, nil
	return err
}
