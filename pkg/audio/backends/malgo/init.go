package malgo

import (
	"github.com/xaionaro-go/semanticmixer/pkg/audio/registry"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/types"
)

const (
	Priority = 120
)

func init() {
	registry.RegisterDeviceFactory(Priority, DeviceFactory{})
}

type DeviceFactory struct{}

func (DeviceFactory) NewDevice(format types.StreamFormat) (types.Device, error) {
	d, err := NewDevice(format)
	if err != nil {
		return nil, err
	}
	return d, nil
}
