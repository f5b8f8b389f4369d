package suppressor

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/classifier"
	"github.com/xaionaro-go/semanticmixer/pkg/detection"
	"github.com/xaionaro-go/semanticmixer/pkg/separator"
	"github.com/xaionaro-go/semanticmixer/pkg/stability"
)

func ptr[T any](v T) *T {
	return &v
}

type recordingSeparator struct {
	locker sync.Mutex
	calls  [][]string
	inputs []audio.Frame
	scale  float32
	err    error
}

func (s *recordingSeparator) separator() *separator.Func {
	return &separator.Func{
		KnownTargets: separator.WaveformerTargets,
		Fn: func(_ context.Context, frame audio.Frame, targets []string) (audio.Frame, error) {
			s.locker.Lock()
			defer s.locker.Unlock()
			s.calls = append(s.calls, targets)
			s.inputs = append(s.inputs, frame)
			if s.err != nil {
				return audio.Frame{}, s.err
			}
			out := make([]float32, len(frame.Samples))
			for idx, v := range frame.Samples {
				out[idx] = v * s.scale
			}
			return frame.WithSamples(out), nil
		},
	}
}

type fixture struct {
	cls *classifier.Static
	sep *recordingSeparator
	s   *SemanticSuppressor
}

func newFixture(t *testing.T, scores category.Scores) *fixture {
	mapping, err := category.NewMapping(
		category.Category{Name: category.Typing, Config: category.Config{SeparatorTargets: []string{"Computer_keyboard"}}},
		category.Category{Name: category.Music, Config: category.Config{SeparatorTargets: []string{"Violin_or_fiddle", "Computer_keyboard"}}},
		category.Category{Name: category.Dog, Config: category.Config{
			SeparatorTargets:   []string{"Bark"},
			DetectionThreshold: ptr(-1.0),
		}},
		category.Category{Name: category.Wind},
		category.Category{Name: category.Traffic, Config: category.Config{SeparatorTargets: []string{"Vuvuzela"}}},
		category.Category{Name: category.Siren, Config: category.Config{
			SafetyOverride:   true,
			SeparatorTargets: []string{"Telephone"},
		}},
	)
	require.NoError(t, err)

	cls := classifier.NewStatic(scores)
	d, err := detection.NewDetector(cls, mapping, stability.DefaultConfig(), nil)
	require.NoError(t, err)
	rs := &recordingSeparator{scale: 0.5}
	s, err := New(d, rs.separator(), nil)
	require.NoError(t, err)
	return &fixture{cls: cls, sep: rs, s: s}
}

func randomFrame(n int, channels audio.Channel) audio.Frame {
	rng := rand.New(rand.NewSource(1))
	samples := make([]float32, n*int(channels))
	for idx := range samples {
		samples[idx] = rng.Float32()*2 - 1
	}
	return audio.NewFrame(samples, channels, 44100)
}

func TestSuppressBypassOnEmptyCategories(t *testing.T) {
	f := newFixture(t, category.Scores{category.Typing: 0.9})
	for _, channels := range []audio.Channel{1, 2} {
		in := randomFrame(512, channels)
		orig := in.Clone()
		out, err := f.s.Suppress(context.Background(), in, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, orig, out)
	}
	assert.Zero(t, f.cls.Calls())
}

func TestSuppressEndToEnd(t *testing.T) {
	f := newFixture(t, category.Scores{category.Typing: 0.8})
	in := audio.NewFrame([]float32{1, -0.5, 0.25, 0}, 1, 44100)

	opts := DefaultOptions(category.Typing)
	opts.Aggressiveness = 1.5
	out, err := f.s.Suppress(context.Background(), in, opts)
	require.NoError(t, err)

	require.Len(t, f.sep.calls, 1)
	assert.Equal(t, []string{"Computer_keyboard"}, f.sep.calls[0])
	// the peak is 1, so separated = 0.5*in
	expected := []float32{1 - 1.5*0.5, -0.5 + 1.5*0.25, 0.25 - 1.5*0.125, 0}
	require.Len(t, out.Samples, len(expected))
	for idx := range expected {
		assert.InDelta(t, expected[idx], out.Samples[idx], 1e-6)
	}
}

func TestSuppressNormalizesQuietInput(t *testing.T) {
	f := newFixture(t, category.Scores{category.Typing: 0.8})
	in := audio.NewFrame([]float32{0.01, -0.02}, 1, 44100)

	out, err := f.s.Suppress(context.Background(), in, DefaultOptions(category.Typing))
	require.NoError(t, err)
	require.Len(t, f.sep.inputs, 1)
	assert.InDelta(t, 0.5, f.sep.inputs[0].Samples[0], 1e-6)
	assert.InDelta(t, -1, f.sep.inputs[0].Samples[1], 1e-6)
	assert.InDelta(t, 0.005, out.Samples[0], 1e-6)
	assert.InDelta(t, -0.01, out.Samples[1], 1e-6)
}

func TestSuppressSafetyInvariant(t *testing.T) {
	f := newFixture(t, category.Scores{category.Typing: 0.9, category.Siren: 0.95})
	in := randomFrame(256, 2)
	orig := in.Clone()

	out, err := f.s.Suppress(context.Background(), in, DefaultOptions(category.Typing, category.Dog, category.Music))
	require.NoError(t, err)
	assert.Equal(t, orig, out)
	assert.Empty(t, f.sep.calls)
}

func TestSuppressSkips(t *testing.T) {
	f := newFixture(t, category.Scores{category.Typing: 0.3, category.Wind: 0.9})
	in := randomFrame(128, 1)
	orig := in.Clone()

	opts := DefaultOptions(category.Typing, category.Wind, category.Siren, "vuvuzela", category.Traffic)
	opts.SafetyCheck = false
	out, err := f.s.Suppress(context.Background(), in, opts)
	require.NoError(t, err)
	assert.Equal(t, orig, out)
	assert.Empty(t, f.sep.calls)
}

func TestSuppressForcedAndDeduplicated(t *testing.T) {
	f := newFixture(t, category.Scores{category.Music: 0.6, category.Typing: 0.7})
	_, err := f.s.Suppress(context.Background(), randomFrame(64, 1), DefaultOptions(category.Dog, category.Music, category.Typing))
	require.NoError(t, err)
	require.Len(t, f.sep.calls, 1)
	assert.Equal(t, []string{"Bark", "Computer_keyboard", "Violin_or_fiddle"}, f.sep.calls[0])
}

func TestSuppressSilence(t *testing.T) {
	f := newFixture(t, category.Scores{category.Typing: 0.9})
	in := audio.NewSilentFrame(100, 1, 44100)
	out, err := f.s.Suppress(context.Background(), in, DefaultOptions(category.Typing))
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Empty(t, f.sep.calls)
}

func TestSuppressShorterSeparatorOutput(t *testing.T) {
	mapping, err := category.NewMapping(
		category.Category{Name: category.Typing, Config: category.Config{SeparatorTargets: []string{"Computer_keyboard"}}},
	)
	require.NoError(t, err)
	d, err := detection.NewDetector(classifier.NewStatic(category.Scores{category.Typing: 1}), mapping, stability.DefaultConfig(), nil)
	require.NoError(t, err)
	s, err := New(d, &separator.Func{Fn: func(_ context.Context, frame audio.Frame, _ []string) (audio.Frame, error) {
		return frame.WithSamples([]float32{1, 1}), nil
	}}, nil)
	require.NoError(t, err)

	in := audio.NewFrame([]float32{1, 1, 1, 1}, 1, 44100)
	out, err := s.Suppress(context.Background(), in, DefaultOptions(category.Typing))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1, 1}, out.Samples)
}

func TestSuppressErrors(t *testing.T) {
	f := newFixture(t, category.Scores{category.Typing: 0.9})
	in := randomFrame(64, 1)

	f.sep.err = errors.New("separator failure")
	out, err := f.s.Suppress(context.Background(), in, DefaultOptions(category.Typing))
	assert.ErrorIs(t, err, f.sep.err)
	assert.Equal(t, in, out)

	f.cls.Set(nil, errors.New("classifier failure"))
	_, err = f.s.Suppress(context.Background(), in, DefaultOptions(category.Typing))
	assert.Error(t, err)

	opts := DefaultOptions(category.Typing)
	opts.Aggressiveness = 0.5
	_, err = f.s.Suppress(context.Background(), in, opts)
	assert.Error(t, err)
}

func TestSuppressRecoversPanics(t *testing.T) {
	mapping, err := category.NewMapping(
		category.Category{Name: category.Typing, Config: category.Config{SeparatorTargets: []string{"Computer_keyboard"}}},
	)
	require.NoError(t, err)
	d, err := detection.NewDetector(classifier.NewStatic(category.Scores{category.Typing: 1}), mapping, stability.DefaultConfig(), nil)
	require.NoError(t, err)
	s, err := New(d, &separator.Func{Fn: func(context.Context, audio.Frame, []string) (audio.Frame, error) {
		panic("boom")
	}}, nil)
	require.NoError(t, err)

	_, err = s.Suppress(context.Background(), randomFrame(8, 1), DefaultOptions(category.Typing))
	assert.Error(t, err)
}

func TestDetectCategories(t *testing.T) {
	f := newFixture(t, category.Scores{category.Typing: 0.5, category.Wind: 0.1, category.Music: 0.3})
	scores, err := f.s.DetectCategories(context.Background(), randomFrame(64, 1), DefaultDetectThreshold)
	require.NoError(t, err)
	assert.Equal(t, category.Scores{category.Typing: 0.5, category.Music: 0.3}, scores)
}
