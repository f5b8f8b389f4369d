//go:build !onnxruntime
// +build !onnxruntime

package waveformer

import (
	"github.com/xaionaro-go/semanticmixer/pkg/onnxenv"
	"github.com/xaionaro-go/semanticmixer/pkg/separator"
)

type Waveformer = separator.Func

func New(modelPath string) (*Waveformer, error) {
	return nil, onnxenv.ErrNotSupported
}
