package stability

import (
	"fmt"
	"time"
)

const (
	DefaultNormalInterval   = 3 * time.Second
	DefaultSavingInterval   = 8 * time.Second
	DefaultCriticalInterval = 15 * time.Second
)

// BatteryProvider reports the remaining battery charge in percent.
// ok is false if there is no battery information.
type BatteryProvider interface {
	BatteryPercent() (percent float64, ok bool)
}

// AdaptiveDutyCycle chooses how often to classify depending on the battery:
// above 50% the normal interval, from 20% to 50% the saving interval,
// below 20% the critical one.
type AdaptiveDutyCycle struct {
	Normal   time.Duration
	Saving   time.Duration
	Critical time.Duration
	Battery  BatteryProvider
}

func NewAdaptiveDutyCycle(
	normal, saving, critical time.Duration,
	battery BatteryProvider,
) (*AdaptiveDutyCycle, error) {
	if normal <= 0 || saving <= 0 || critical <= 0 {
		return nil, fmt.Errorf("intervals must be positive: %s/%s/%s", normal, saving, critical)
	}
	return &AdaptiveDutyCycle{
		Normal:   normal,
		Saving:   saving,
		Critical: critical,
		Battery:  battery,
	}, nil
}

func (d *AdaptiveDutyCycle) IntervalFor(batteryPercent float64) time.Duration {
	switch {
	case batteryPercent > 50:
		return d.Normal
	case batteryPercent >= 20:
		return d.Saving
	default:
		return d.Critical
	}
}

// Interval consults the battery provider. ok is false if there is no
// battery information, and the caller is to keep its own interval.
func (d *AdaptiveDutyCycle) Interval() (_ time.Duration, ok bool) {
	if d.Battery == nil {
		return 0, false
	}
	percent, ok := d.Battery.BatteryPercent()
	if !ok {
		return 0, false
	}
	return d.IntervalFor(percent), true
}
