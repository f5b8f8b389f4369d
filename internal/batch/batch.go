// Package batch suppresses categories in recorded audio offline.
package batch

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/suppressor"
)

const DefaultChunkDuration = 10 * time.Second

type Suppressor interface {
	Suppress(ctx context.Context, frame audio.Frame, opts suppressor.Options) (audio.Frame, error)
}

type Stats struct {
	Duration       time.Duration
	Chunks         int
	OriginalRMS    float64
	CleanedRMS     float64
	RMSReductionDB float64
}

// Process suppresses the audio chunk by chunk. A chunk that fails is kept
// as is and logged.
func Process(
	ctx context.Context,
	sup Suppressor,
	input audio.Frame,
	opts suppressor.Options,
	chunkDuration time.Duration,
) (audio.Frame, Stats, error) {
	if err := input.Validate(); err != nil {
		return audio.Frame{}, Stats{}, fmt.Errorf("invalid input: %w", err)
	}
	if chunkDuration <= 0 {
		chunkDuration = DefaultChunkDuration
	}
	channels := int(input.Channels)
	chunkSamples := int(int64(chunkDuration)*int64(input.SampleRate)/int64(time.Second)) * channels
	if chunkSamples <= 0 {
		return audio.Frame{}, Stats{}, fmt.Errorf("the chunk duration %v is too short", chunkDuration)
	}

	out := make([]float32, 0, len(input.Samples))
	stats := Stats{Duration: input.Duration()}
	for offset := 0; offset < len(input.Samples); offset += chunkSamples {
		if err := ctx.Err(); err != nil {
			return audio.Frame{}, Stats{}, err
		}
		end := offset + chunkSamples
		if end > len(input.Samples) {
			end = len(input.Samples)
		}
		chunk := input.WithSamples(input.Samples[offset:end])
		cleaned, err := sup.Suppress(ctx, chunk, opts)
		if err != nil || !cleaned.SameShape(chunk) {
			logger.Errorf(ctx, "unable to process chunk #%d, keeping it as is: %v", stats.Chunks, err)
			cleaned = chunk
		}
		out = append(out, cleaned.Samples...)
		stats.Chunks++
	}

	result := input.WithSamples(out)
	stats.OriginalRMS = input.RMS()
	stats.CleanedRMS = result.RMS()
	stats.RMSReductionDB = 20 * math.Log10((stats.CleanedRMS+1e-8)/(stats.OriginalRMS+1e-8))
	return result, stats, nil
}
