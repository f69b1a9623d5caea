package goble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blescope/internal/device"
)

// Name is the backend name accepted by BLESCOPE_BACKEND
const Name = "go-ble"

// Radio is the part of ble.Device this backend drives. Every ble.Device satisfies it.
type Radio interface {
	Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error
	Dial(ctx context.Context, a ble.Addr) (ble.Client, error)
}

// DeviceFactory opens the platform HCI/CoreBluetooth device (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking as goble.DeviceFactory
var DeviceFactory = defaultRadio

// Backend implements device.Backend on top of go-ble.
// The platform device is opened lazily on first use and shared by all operations.
type Backend struct {
	logger *logrus.Logger

	mu    sync.Mutex
	radio Radio
}

// NewBackend creates a go-ble backend. The radio is not touched until the first Scan or Dial.
func NewBackend(logger *logrus.Logger) *Backend {
	if logger == nil {
		logger = logrus.New()
	}
	return &Backend{logger: logger}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) device() (Radio, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.radio != nil {
		return b.radio, nil
	}
	r, err := DeviceFactory()
	if err != nil {
		b.logger.WithError(err).Error("Failed to open BLE device")
		return nil, fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	b.radio = r
	return r, nil
}

// Scan wraps the raw ble.Device.Scan to convert ble.Advertisement to the device.Advertisement
func (b *Backend) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	r, err := b.device()
	if err != nil {
		return err
	}

	// Adapter: convert a handler expecting a device.Advertisement to the one expecting ble.Advertisement
	bleHandler := func(adv ble.Advertisement) {
		handler(NewBLEAdvertisement(adv))
	}
	err = r.Scan(ctx, allowDup, bleHandler)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return NormalizeError(err)
	}
	return nil
}

// Dial connects to the peripheral with the given address
func (b *Backend) Dial(ctx context.Context, address string) (device.Client, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("device address is empty")
	}

	r, err := b.device()
	if err != nil {
		return nil, err
	}

	b.logger.WithField("address", address).Debug("Dialing BLE device...")
	cli, err := r.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		b.logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Error("Failed to dial BLE device")
		return nil, fmt.Errorf("failed to connect to device with address %q: %w", address, NormalizeError(err))
	}

	return newClient(address, cli, b.logger), nil
}
