package stability

import (
	"fmt"
	"sync"

	"github.com/xaionaro-go/semanticmixer/pkg/category"
)

const (
	DefaultOnThreshold  = 0.7
	DefaultOffThreshold = 0.4
)

// SchmittTrigger is a per-category two-threshold switch: it turns on above
// On and turns off only below Off.
type SchmittTrigger struct {
	locker sync.Mutex
	on     float64
	off    float64
	states map[category.Name]bool
}

func NewSchmittTrigger(on, off float64) (*SchmittTrigger, error) {
	if !(on > off) {
		return nil, fmt.Errorf("the 'on' threshold (%v) must be above the 'off' threshold (%v)", on, off)
	}
	if off < 0 || on > 1 {
		return nil, fmt.Errorf("thresholds must be within [0, 1], got on=%v off=%v", on, off)
	}
	return &SchmittTrigger{
		on:     on,
		off:    off,
		states: map[category.Name]bool{},
	}, nil
}

func (t *SchmittTrigger) Update(name category.Name, confidence float64) bool {
	t.locker.Lock()
	defer t.locker.Unlock()

	state := t.states[name]
	switch {
	case state && confidence < t.off:
		state = false
	case !state && confidence > t.on:
		state = true
	}
	t.states[name] = state
	return state
}

func (t *SchmittTrigger) UpdateAll(scores category.Scores) category.States {
	result := make(category.States, len(scores))
	for name, confidence := range scores {
		result[name] = t.Update(name, confidence)
	}
	return result
}

func (t *SchmittTrigger) State(name category.Name) bool {
	t.locker.Lock()
	defer t.locker.Unlock()
	return t.states[name]
}

func (t *SchmittTrigger) Reset() {
	t.locker.Lock()
	defer t.locker.Unlock()
	t.states = map[category.Name]bool{}
}
