//go:build !onnxruntime
// +build !onnxruntime

package onnxenv

import (
	"errors"
)

const EnvLibraryPath = "ONNXRUNTIME_LIB"

var ErrNotSupported = errors.New("built without tag 'onnxruntime'")

func Ensure() error {
	return ErrNotSupported
}
