//go:build !onnxruntime
// +build !onnxruntime

package yamnet

import (
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/classifier"
	"github.com/xaionaro-go/semanticmixer/pkg/onnxenv"
)

type YAMNet = classifier.Static

func New(modelPath string, mapping *category.Mapping) (*YAMNet, error) {
	return nil, onnxenv.ErrNotSupported
}
