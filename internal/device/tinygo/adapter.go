package tinygo

import (
	"tinygo.org/x/bluetooth"
)

// Adapter is the part of *bluetooth.Adapter this backend drives.
type Adapter interface {
	Enable() error
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
	Connect(address bluetooth.Address, params bluetooth.ConnectionParams) (bluetooth.Device, error)
}

// Peripheral is the part of bluetooth.Device this backend drives.
type Peripheral interface {
	DiscoverServices(uuids []bluetooth.UUID) ([]bluetooth.DeviceService, error)
	Disconnect() error
}

// AdapterFactory returns the adapter to use (can be overridden in tests)
var AdapterFactory = func() Adapter {
	return bluetooth.DefaultAdapter
}

// wrapPeripheral lets tests replace how a connected bluetooth.Device is driven
var wrapPeripheral = func(d bluetooth.Device) Peripheral {
	return d
}
