package classifier

import (
	"context"
	"errors"
	"io"

	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
)

var ErrEmptyInput = errors.New("the audio buffer is empty")

// Classifier estimates the confidence of each category in a block of audio.
// Implementations must return ErrEmptyInput on an empty frame rather than
// a set of zeros.
type Classifier interface {
	io.Closer

	Classify(ctx context.Context, frame audio.Frame) (category.Scores, error)
}

// Initializer is implemented by classifiers that load heavy resources lazily.
type Initializer interface {
	EnsureInitialized(ctx context.Context) error
}

// EnsureInitialized initializes the classifier if it supports lazy initialization.
func EnsureInitialized(ctx context.Context, c Classifier) error {
	if i, ok := c.(Initializer); ok {
		return i.EnsureInitialized(ctx)
	}
	return nil
}
