package registry

import (
	"github.com/xaionaro-go/semanticmixer/pkg/audio/types"
)

type PlayerPCMFactory interface {
	NewPlayerPCM() (types.PlayerPCM, error)
}

type RecorderPCMFactory interface {
	NewRecorderPCM() (types.RecorderPCM, error)
}

// DeviceFactory opens a duplex device natively (without pairing
// a recorder with a player).
type DeviceFactory interface {
	NewDevice(format types.StreamFormat) (types.Device, error)
}

var (
	players   = newFactoryRegistry[PlayerPCMFactory]("PlayerPCM")
	recorders = newFactoryRegistry[RecorderPCMFactory]("RecorderPCM")
	devices   = newFactoryRegistry[DeviceFactory]("Device")
)

func RegisterPlayerFactory(priority int, factory PlayerPCMFactory) {
	players.register(priority, factory)
}

func RegisterRecorderFactory(priority int, factory RecorderPCMFactory) {
	recorders.register(priority, factory)
}

func RegisterDeviceFactory(priority int, factory DeviceFactory) {
	devices.register(priority, factory)
}

func PlayerFactories() []PlayerPCMFactory {
	return players.list()
}

func RecorderFactories() []RecorderPCMFactory {
	return recorders.list()
}

func DeviceFactories() []DeviceFactory {
	return devices.list()
}
