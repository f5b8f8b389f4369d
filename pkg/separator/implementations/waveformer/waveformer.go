//go:build onnxruntime
// +build onnxruntime

// Package waveformer runs the Waveformer target sound extraction model
// through ONNX Runtime.
package waveformer

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/resampler"
	"github.com/xaionaro-go/semanticmixer/pkg/onnxenv"
	"github.com/xaionaro-go/semanticmixer/pkg/separator"
	ort "github.com/yalue/onnxruntime_go"
)

type Waveformer struct {
	ModelPath string

	locker  sync.Mutex
	session *ort.AdvancedSession
	audioIn *ort.Tensor[float32]
	queryIn *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

var (
	_ separator.Separator   = (*Waveformer)(nil)
	_ separator.Initializer = (*Waveformer)(nil)
)

func New(modelPath string) (*Waveformer, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("unable to access the model file '%s': %w", modelPath, err)
	}
	return &Waveformer{
		ModelPath: modelPath,
	}, nil
}

func (w *Waveformer) Targets() []string {
	return separator.WaveformerTargets
}

func (w *Waveformer) EnsureInitialized(ctx context.Context) error {
	w.locker.Lock()
	defer w.locker.Unlock()
	return w.initLocked(ctx)
}

func (w *Waveformer) initLocked(ctx context.Context) (_err error) {
	if w.session != nil {
		return nil
	}
	logger.Tracef(ctx, "initLocked")
	defer func() { logger.Tracef(ctx, "/initLocked: %v", _err) }()

	if err := onnxenv.Ensure(); err != nil {
		return err
	}
	opts, err := onnxenv.SessionOptions(0)
	if err != nil {
		return err
	}
	defer opts.Destroy()

	var tensors []*ort.Tensor[float32]
	destroyTensors := func() {
		for _, t := range tensors {
			t.Destroy()
		}
	}
	for _, shape := range []ort.Shape{
		ort.NewShape(1, 1, int64(ChunkSamples)),
		ort.NewShape(1, int64(len(separator.WaveformerTargets))),
		ort.NewShape(1, 1, int64(ChunkSamples)),
	} {
		t, err := ort.NewEmptyTensor[float32](shape)
		if err != nil {
			destroyTensors()
			return fmt.Errorf("unable to allocate a tensor of shape %v: %w", shape, err)
		}
		tensors = append(tensors, t)
	}

	session, err := ort.NewAdvancedSession(
		w.ModelPath,
		[]string{"audio_input", "query_vector"},
		[]string{"separated_audio"},
		[]ort.Value{tensors[0], tensors[1]},
		[]ort.Value{tensors[2]},
		opts,
	)
	if err != nil {
		destroyTensors()
		return fmt.Errorf("unable to load the model '%s': %w", w.ModelPath, err)
	}

	logger.Debugf(ctx, "loaded the Waveformer model from '%s'", w.ModelPath)
	w.session = session
	w.audioIn, w.queryIn, w.output = tensors[0], tensors[1], tensors[2]
	return nil
}

func (w *Waveformer) Separate(
	ctx context.Context,
	frame audio.Frame,
	targets []string,
) (_ret audio.Frame, _err error) {
	logger.Tracef(ctx, "Separate(%v)", targets)
	defer func() { logger.Tracef(ctx, "/Separate(%v): %v", targets, _err) }()

	query, err := queryVector(targets)
	if err != nil {
		return audio.Frame{}, err
	}

	in, err := resampler.Resample(frame, resampler.Format{Channels: frame.Channels, SampleRate: SampleRate})
	if err != nil {
		return audio.Frame{}, fmt.Errorf("unable to resample to %d Hz: %w", SampleRate, err)
	}

	w.locker.Lock()
	defer w.locker.Unlock()
	if err := w.initLocked(ctx); err != nil {
		return audio.Frame{}, fmt.Errorf("unable to initialize: %w", err)
	}
	copy(w.queryIn.GetData(), query)

	planes := deinterleave(in)
	for ch, plane := range planes {
		planes[ch], err = forEachChunk(plane, func(chunkIn, chunkOut []float32) error {
			copy(w.audioIn.GetData(), chunkIn)
			if err := w.session.Run(); err != nil {
				return fmt.Errorf("unable to run the inference: %w", err)
			}
			copy(chunkOut, w.output.GetData())
			return nil
		})
		if err != nil {
			return audio.Frame{}, err
		}
	}

	out := audio.NewFrame(interleave(planes), in.Channels, SampleRate)
	return resampler.Resample(out, resampler.FormatOf(frame))
}

func (w *Waveformer) Close() error {
	w.locker.Lock()
	defer w.locker.Unlock()
	if w.session == nil {
		return nil
	}
	err := w.session.Destroy()
	w.audioIn.Destroy()
	w.queryIn.Destroy()
	w.output.Destroy()
	w.session = nil
	return err
}
