package control

import (
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/gain"
	"github.com/xaionaro-go/semanticmixer/pkg/profile"
	"github.com/xaionaro-go/semanticmixer/pkg/safety"
)

type EventType int

const (
	EventProfileChanged = EventType(iota)
	EventGainsChanged
	EventModeChanged
	EventSafetyAlert
	EventDetectionsUpdated
)

func (t EventType) String() string {
	switch t {
	case EventProfileChanged:
		return "profile_changed"
	case EventGainsChanged:
		return "gains_changed"
	case EventModeChanged:
		return "mode_changed"
	case EventSafetyAlert:
		return "safety_alert"
	case EventDetectionsUpdated:
		return "detections_updated"
	default:
		return "unknown"
	}
}

// Event notifies observers about a change; only the fields relevant to
// Type are set.
type Event struct {
	Type       EventType
	Profile    *profile.Profile
	Reason     string
	Gains      gain.Vector
	Mode       Mode
	Alert      *safety.AlertInfo
	Detections category.Scores
}

type subscriber struct {
	ch chan Event
}

// Subscribe returns a channel of events and a function to unsubscribe.
// Events are dropped if the channel is full.
func (e *Engine) Subscribe(bufferSize int) (<-chan Event, func()) {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}
	sub := &subscriber{ch: make(chan Event, bufferSize)}

	e.locker.Lock()
	defer e.locker.Unlock()
	e.subscribers = append(e.subscribers, sub)

	return sub.ch, func() {
		e.locker.Lock()
		defer e.locker.Unlock()
		for idx, s := range e.subscribers {
			if s == sub {
				e.subscribers = append(e.subscribers[:idx], e.subscribers[idx+1:]...)
				close(sub.ch)
				return
			}
		}
	}
}

func (e *Engine) emitLocked(ev Event) {
	for _, sub := range e.subscribers {
		select {
		case sub.ch <- ev:
		default:
			e.droppedEvents++
		}
	}
}
