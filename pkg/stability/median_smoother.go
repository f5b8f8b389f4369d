package stability

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xaionaro-go/semanticmixer/pkg/category"
)

// MedianSmoother replaces each confidence with the median of its last
// Window values.
type MedianSmoother struct {
	locker  sync.Mutex
	window  int
	history map[category.Name][]float64
}

func NewMedianSmoother(window int) (*MedianSmoother, error) {
	if window < 1 {
		return nil, fmt.Errorf("the window must be positive, got %d", window)
	}
	return &MedianSmoother{
		window:  window,
		history: map[category.Name][]float64{},
	}, nil
}

func (s *MedianSmoother) Smooth(scores category.Scores) category.Scores {
	s.locker.Lock()
	defer s.locker.Unlock()

	result := make(category.Scores, len(scores))
	for name, confidence := range scores {
		h := append(s.history[name], confidence)
		if len(h) > s.window {
			h = h[len(h)-s.window:]
		}
		s.history[name] = h
		result[name] = median(h)
	}
	return result
}

func (s *MedianSmoother) Reset() {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.history = map[category.Name][]float64{}
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
