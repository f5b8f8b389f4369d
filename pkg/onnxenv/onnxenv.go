//go:build onnxruntime
// +build onnxruntime

// Package onnxenv initializes the process-wide ONNX Runtime environment.
package onnxenv

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// EnvLibraryPath names the environment variable with the path to the
// onnxruntime shared library.
const EnvLibraryPath = "ONNXRUNTIME_LIB"

var (
	initOnce sync.Once
	initErr  error
)

// Ensure initializes the environment once per process; every later call
// returns the result of the first one.
func Ensure() error {
	initOnce.Do(func() {
		if libPath := os.Getenv(EnvLibraryPath); libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		} else if runtime.GOOS == "darwin" {
			ort.SetSharedLibraryPath("/opt/homebrew/lib/libonnxruntime.dylib")
		}
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = fmt.Errorf("unable to initialize the ONNX runtime: %w", err)
		}
	})
	return initErr
}

// SessionOptions returns CPU options limited to the given amount of threads;
// the caller must Destroy them.
func SessionOptions(intraOpThreads int) (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("unable to create session options: %w", err)
	}
	if intraOpThreads <= 0 {
		intraOpThreads = max(1, runtime.NumCPU()/2)
	}
	if err := opts.SetIntraOpNumThreads(intraOpThreads); err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("unable to set intra-op threads: %w", err)
	}
	if err := opts.SetInterOpNumThreads(1); err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("unable to set inter-op threads: %w", err)
	}
	return opts, nil
}
