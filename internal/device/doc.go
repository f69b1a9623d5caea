// Package device defines the contract between blescope and a platform BLE stack.
//
// A Backend offers exactly what the console needs:
//   - time-boxed advertisement scanning (Scanner)
//   - dialing a peripheral by address (Dialer)
//   - connection state and GATT service listing on the open Client
//
// Concrete backends live in the goble, tinygo and bluez subpackages and are
// selected by name through the devicefactory package.
package device
