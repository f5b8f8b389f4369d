package classifier

import (
	"context"
	"sync"

	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
)

// Static always reports the configured scores (or error).
type Static struct {
	locker sync.Mutex
	scores category.Scores
	err    error
	calls  int
}

var _ Classifier = (*Static)(nil)

func NewStatic(scores category.Scores) *Static {
	return &Static{
		scores: scores,
	}
}

func (c *Static) Set(scores category.Scores, err error) {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.scores, c.err = scores, err
}

func (c *Static) Calls() int {
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.calls
}

func (c *Static) Classify(_ context.Context, frame audio.Frame) (category.Scores, error) {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.calls++
	if frame.IsEmpty() {
		return nil, ErrEmptyInput
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.scores.Clone(), nil
}

func (*Static) Close() error {
	return nil
}

// Func adapts a function to Classifier.
type Func func(ctx context.Context, frame audio.Frame) (category.Scores, error)

var _ Classifier = Func(nil)

func (f Func) Classify(ctx context.Context, frame audio.Frame) (category.Scores, error) {
	return f(ctx, frame)
}

func (Func) Close() error {
	return nil
}
