// Package separator describes source separation: extracting the content of
// the requested targets from a mixture.
package separator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/xaionaro-go/semanticmixer/pkg/audio"
)

var ErrUnknownTarget = errors.New("unknown separator target")

// Separator returns audio of the same channel count and approximately the
// same length as the input that contains only the requested targets.
type Separator interface {
	io.Closer

	Targets() []string
	Separate(ctx context.Context, frame audio.Frame, targets []string) (audio.Frame, error)
}

// Initializer is implemented by separators that load heavy resources lazily.
type Initializer interface {
	EnsureInitialized(ctx context.Context) error
}

func EnsureInitialized(ctx context.Context, s Separator) error {
	if i, ok := s.(Initializer); ok {
		return i.EnsureInitialized(ctx)
	}
	return nil
}

// BackgroundNoiseTarget is the stationary noise left after removing
// speech; it is not a Waveformer target.
const BackgroundNoiseTarget = "Background_noise"

// WaveformerTargets are the target identifiers of the Waveformer model,
// in the order of its query vector.
var WaveformerTargets = []string{
	"Acoustic_guitar", "Applause", "Bark", "Bass_drum", "Burping_or_eructation",
	"Bus", "Cello", "Chime", "Clarinet", "Computer_keyboard",
	"Cough", "Cowbell", "Double_bass", "Drawer_open_or_close", "Electric_piano",
	"Fart", "Finger_snapping", "Fireworks", "Flute", "Glockenspiel",
	"Gong", "Gunshot_or_gunfire", "Harmonica", "Hi-hat", "Keys_jangling",
	"Knock", "Laughter", "Meow", "Microwave_oven", "Oboe",
	"Saxophone", "Scissors", "Shatter", "Snare_drum", "Squeak",
	"Tambourine", "Tearing", "Telephone", "Trumpet", "Violin_or_fiddle",
	"Writing",
}

// CheckTargets returns ErrUnknownTarget if any of targets is not in known,
// or if targets is empty.
func CheckTargets(known []string, targets []string) error {
	if len(targets) == 0 {
		return fmt.Errorf("no targets requested")
	}
	set := make(map[string]struct{}, len(known))
	for _, t := range known {
		set[t] = struct{}{}
	}
	var unknown []string
	for _, t := range targets {
		if _, ok := set[t]; !ok {
			unknown = append(unknown, t)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %v", ErrUnknownTarget, unknown)
	}
	return nil
}
