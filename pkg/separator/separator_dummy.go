package separator

import (
	"context"

	"github.com/xaionaro-go/semanticmixer/pkg/audio"
)

// Func adapts a function to Separator; it accepts any of KnownTargets,
// or any target at all if KnownTargets is nil.
type Func struct {
	KnownTargets []string
	Fn           func(ctx context.Context, frame audio.Frame, targets []string) (audio.Frame, error)
}

var _ Separator = (*Func)(nil)

func (f *Func) Targets() []string {
	return f.KnownTargets
}

func (f *Func) Separate(ctx context.Context, frame audio.Frame, targets []string) (audio.Frame, error) {
	if f.KnownTargets != nil {
		if err := CheckTargets(f.KnownTargets, targets); err != nil {
			return audio.Frame{}, err
		}
	}
	return f.Fn(ctx, frame, targets)
}

func (*Func) Close() error {
	return nil
}
