package audio

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/registry"
)

// NewDeviceAuto opens the highest priority native duplex device, falling
// back to a recorder/player pair selected with NewRecorderAuto and NewPlayerAuto.
func NewDeviceAuto(
	ctx context.Context,
	format StreamFormat,
) Device {
	for _, factory := range registry.DeviceFactories() {
		device, err := factory.NewDevice(format)
		logger.Debugf(ctx, "initializing device %T result is %v", factory, err)
		if err == nil {
			return device
		}
	}

	logger.Debugf(ctx, "no native duplex device is available, pairing a recorder with a player")
	return NewPCMDevice(NewRecorderAuto(ctx), NewPlayerAuto(ctx), format)
}

func ValidateStreamFormat(format StreamFormat) error {
	switch {
	case format.SampleRate == 0:
		return fmt.Errorf("sample rate is zero")
	case format.Channels == 0:
		return fmt.Errorf("channel count is zero")
	case format.FramesPerBuffer == 0:
		return fmt.Errorf("frames per buffer is zero")
	}
	return nil
}
