package battery

import (
	"errors"
	"testing"
	"time"

	distbattery "github.com/distatus/battery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/semanticmixer/pkg/stability"
)

func hostWith(batteries []*distbattery.Battery, err error) *Host {
	return &Host{GetAll: func() ([]*distbattery.Battery, error) {
		return batteries, err
	}}
}

func TestHost(t *testing.T) {
	_, ok := hostWith(nil, nil).BatteryPercent()
	assert.False(t, ok)

	_, ok = hostWith(nil, errors.New("no power supply")).BatteryPercent()
	assert.False(t, ok)

	percent, ok := hostWith([]*distbattery.Battery{{Current: 21000, Full: 50000}}, nil).BatteryPercent()
	require.True(t, ok)
	assert.InDelta(t, 42, percent, 1e-9)

	// two batteries are weighted by their capacity
	percent, ok = hostWith([]*distbattery.Battery{
		{Current: 10000, Full: 20000},
		{Current: 0, Full: 30000},
	}, nil).BatteryPercent()
	require.True(t, ok)
	assert.InDelta(t, 20, percent, 1e-9)
}

func TestHostPartialFailure(t *testing.T) {
	percent, ok := hostWith([]*distbattery.Battery{
		{Current: 30000, Full: 40000},
		{},
	}, distbattery.Errors{nil, distbattery.ErrPartial{Full: errors.New("unreadable")}}).BatteryPercent()
	require.True(t, ok)
	assert.InDelta(t, 75, percent, 1e-9)

	_, ok = hostWith([]*distbattery.Battery{{Current: 100}}, nil).BatteryPercent()
	assert.False(t, ok)

	percent, ok = hostWith([]*distbattery.Battery{{Current: 51000, Full: 50000}}, nil).BatteryPercent()
	require.True(t, ok)
	assert.Equal(t, 100.0, percent)
}

func TestDutyCycleWithBattery(t *testing.T) {
	d, err := stability.NewAdaptiveDutyCycle(3*time.Second, 8*time.Second, 15*time.Second, Fixed{Percent: 10})
	require.NoError(t, err)
	interval, ok := d.Interval()
	require.True(t, ok)
	assert.Equal(t, 15*time.Second, interval)

	d.Battery = hostWith([]*distbattery.Battery{{Current: 35, Full: 100}}, nil)
	interval, ok = d.Interval()
	require.True(t, ok)
	assert.Equal(t, 8*time.Second, interval)

	d.Battery = Fixed{Percent: -1}
	_, ok = d.Interval()
	assert.False(t, ok)
}
