package worker

import (
	"time"

	"github.com/xaionaro-go/semanticmixer/pkg/gain"
)

// Telemetry is the level information the worker emits per processed block.
// Delivery is best effort.
type Telemetry struct {
	RMS       float64
	Gains     gain.Vector
	Timestamp time.Time
}
