package audio

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/registry"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/types"
)

type Recorder struct {
	RecorderPCM
}

func NewRecorder(recorderPCM RecorderPCM) *Recorder {
	return &Recorder{
		RecorderPCM: recorderPCM,
	}
}

var lastSuccessfulRecorderFactory lastSuccessful[registry.RecorderPCMFactory]

func NewRecorderAuto(
	ctx context.Context,
) *Recorder {
	recorder, err := autoSelect(
		ctx, "PCM recorder",
		&lastSuccessfulRecorderFactory,
		registry.RecorderFactories(),
		func(f registry.RecorderPCMFactory) (types.RecorderPCM, error) { return f.NewRecorderPCM() },
	)
	if err != nil {
		logger.Infof(ctx, "was unable to initialize any PCM recorder: %v", err)
		return NewRecorder(RecorderPCMDummy{})
	}
	return NewRecorder(recorder)
}
