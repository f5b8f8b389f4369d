// Package stability turns noisy per-call classifier confidences into stable
// per-category states.
package stability

import (
	"fmt"
	"sync"

	"github.com/xaionaro-go/semanticmixer/pkg/category"
)

const (
	DefaultWindow              = 3
	DefaultConfidenceThreshold = 0.5
	minStableHits              = 2
)

// ConfidenceBuffer reports a category as stable only if its confidence was
// above the threshold in at least 2 of the last Window observations.
type ConfidenceBuffer struct {
	locker    sync.Mutex
	window    int
	threshold float64
	history   map[category.Name][]bool
}

func NewConfidenceBuffer(window int, threshold float64) (*ConfidenceBuffer, error) {
	if window < minStableHits {
		return nil, fmt.Errorf("the window must be at least %d, got %d", minStableHits, window)
	}
	if !(threshold >= 0 && threshold <= 1) {
		return nil, fmt.Errorf("the threshold must be within [0, 1], got %v", threshold)
	}
	return &ConfidenceBuffer{
		window:    window,
		threshold: threshold,
		history:   map[category.Name][]bool{},
	}, nil
}

func (b *ConfidenceBuffer) Update(scores category.Scores) category.States {
	b.locker.Lock()
	defer b.locker.Unlock()

	result := make(category.States, len(scores))
	for name, confidence := range scores {
		h := append(b.history[name], confidence > b.threshold)
		if len(h) > b.window {
			h = h[len(h)-b.window:]
		}
		b.history[name] = h

		hits := 0
		for _, hit := range h {
			if hit {
				hits++
			}
		}
		result[name] = hits >= minStableHits
	}
	return result
}

func (b *ConfidenceBuffer) Reset() {
	b.locker.Lock()
	defer b.locker.Unlock()
	b.history = map[category.Name][]bool{}
}
