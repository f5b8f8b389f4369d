package batch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/suppressor"
)

type suppressFunc func(ctx context.Context, frame audio.Frame, opts suppressor.Options) (audio.Frame, error)

func (fn suppressFunc) Suppress(ctx context.Context, frame audio.Frame, opts suppressor.Options) (audio.Frame, error) {
	return fn(ctx, frame, opts)
}

func constantFrame(n int, v float32) audio.Frame {
	samples := make([]float32, n)
	for idx := range samples {
		samples[idx] = v
	}
	return audio.NewFrame(samples, 2, 1000)
}

func TestProcessChunks(t *testing.T) {
	var sizes []int
	sup := suppressFunc(func(_ context.Context, frame audio.Frame, opts suppressor.Options) (audio.Frame, error) {
		assert.Equal(t, []category.Name{category.Typing}, opts.Categories)
		sizes = append(sizes, len(frame.Samples))
		out := frame.Clone()
		for idx := range out.Samples {
			out.Samples[idx] *= 0.1
		}
		return out, nil
	})

	// 2.5 s of stereo at 1 kHz
	input := constantFrame(5000, 0.5)
	out, stats, err := Process(context.Background(), sup, input, suppressor.DefaultOptions(category.Typing), time.Second)
	require.NoError(t, err)

	assert.Equal(t, []int{2000, 2000, 1000}, sizes)
	assert.Equal(t, 3, stats.Chunks)
	assert.Equal(t, 2500*time.Millisecond, stats.Duration)
	require.Len(t, out.Samples, 5000)
	assert.InDelta(t, 0.05, out.Samples[4999], 1e-6)
	assert.InDelta(t, 0.5, stats.OriginalRMS, 1e-6)
	assert.InDelta(t, 0.05, stats.CleanedRMS, 1e-6)
	assert.InDelta(t, -20, stats.RMSReductionDB, 1e-3)
}

func TestProcessKeepsFailedChunks(t *testing.T) {
	calls := 0
	sup := suppressFunc(func(_ context.Context, frame audio.Frame, _ suppressor.Options) (audio.Frame, error) {
		calls++
		if calls == 1 {
			return audio.Frame{}, fmt.Errorf("boom")
		}
		return frame.WithSamples(make([]float32, len(frame.Samples))), nil
	})

	input := constantFrame(4000, 0.5)
	out, _, err := Process(context.Background(), sup, input, suppressor.DefaultOptions(category.Typing), time.Second)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), out.Samples[0])
	assert.Equal(t, float32(0), out.Samples[3999])
}

func TestProcessInvalidInput(t *testing.T) {
	_, _, err := Process(context.Background(), nil, audio.Frame{}, suppressor.Options{}, time.Second)
	require.Error(t, err)
}
