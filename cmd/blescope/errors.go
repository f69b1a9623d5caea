package main

import (
	"errors"

	"github.com/srg/blescope/internal/device"
	"github.com/srg/blescope/pkg/config"
)

// FormatUserError turns known failures into actionable text
func FormatUserError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is turned off. Turn it on and try again."
	case errors.Is(err, device.ErrNotFound):
		return "Device not found. Make sure it is powered on, advertising and in range."
	case errors.Is(err, device.ErrUnsupported):
		return "The selected BLE backend is not supported on this platform; choose another one with " + config.BackendEnv + "."
	case device.IsConnectionState(err, device.NotConnected):
		return "Device disconnected: " + err.Error()
	case device.IsConnectionState(err, device.AlreadyConnected):
		return "Device is already connected to another client: " + err.Error()
	default:
		return err.Error()
	}
}
