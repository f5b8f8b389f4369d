// Package battery reads the battery charge level of the host.
package battery

import (
	distbattery "github.com/distatus/battery"
	"github.com/xaionaro-go/semanticmixer/pkg/stability"
)

// Host reports the combined charge of all the batteries of the host.
type Host struct {
	GetAll func() ([]*distbattery.Battery, error)
}

var _ stability.BatteryProvider = (*Host)(nil)

func NewHost() *Host {
	return &Host{GetAll: distbattery.GetAll}
}

// BatteryPercent returns false if no battery reports its capacity.
// Batteries which failed partially are still counted if their charge is
// known.
func (h *Host) BatteryPercent() (float64, bool) {
	batteries, err := h.GetAll()
	if err != nil && len(batteries) == 0 {
		return 0, false
	}

	var current, full float64
	for _, b := range batteries {
		if b == nil || b.Full <= 0 || b.Current < 0 {
			continue
		}
		current += b.Current
		full += b.Full
	}
	if full <= 0 {
		return 0, false
	}
	percent := current / full * 100
	if percent > 100 {
		percent = 100
	}
	return percent, true
}

// Fixed reports a constant level; Percent < 0 means no battery.
type Fixed struct {
	Percent float64
}

var _ stability.BatteryProvider = Fixed{}

func (f Fixed) BatteryPercent() (float64, bool) {
	if f.Percent < 0 {
		return 0, false
	}
	return f.Percent, true
}
