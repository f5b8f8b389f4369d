//go:build !rnnoise
// +build !rnnoise

package rnnoise

import (
	"github.com/xaionaro-go/semanticmixer/pkg/separator"
)

type RNNoise = separator.Func

func New() (*RNNoise, error) {
	return nil, ErrNotSupported
}
