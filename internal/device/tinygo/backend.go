package tinygo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/blescope/internal/device"
	"tinygo.org/x/bluetooth"
)

// Name is the backend name accepted by BLESCOPE_BACKEND
const Name = "tinygo"

// lookupScanTimeout bounds the scan Dial runs for an address it has not seen yet
var lookupScanTimeout = 10 * time.Second

const stopRetryInterval = 50 * time.Millisecond

// ErrScanInProgress is returned when a second scan is started on the shared adapter
var ErrScanInProgress = errors.New("a scan is already in progress")

type advertisement struct {
	name string
	addr string
	rssi int
}

func (a *advertisement) LocalName() string { return a.name }
func (a *advertisement) Addr() string      { return a.addr }
func (a *advertisement) RSSI() int         { return a.rssi }

// Backend implements device.Backend on top of tinygo.org/x/bluetooth.
//
// tinygo addresses are platform-specific values (MAC on Linux and Windows,
// CoreBluetooth UUID on macOS), so every address seen during a scan is cached
// and Dial resolves the textual address through that cache.
type Backend struct {
	logger *logrus.Logger

	enableOnce sync.Once
	enableErr  error

	scanMu   sync.Mutex
	scanning bool

	seen *hashmap.Map[string, bluetooth.Address]
}

// NewBackend creates a tinygo backend. The adapter is enabled on first use.
func NewBackend(logger *logrus.Logger) *Backend {
	if logger == nil {
		logger = logrus.New()
	}
	return &Backend{
		logger: logger,
		seen:   hashmap.New[string, bluetooth.Address](),
	}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) adapter() (Adapter, error) {
	a := AdapterFactory()
	b.enableOnce.Do(func() {
		if err := a.Enable(); err != nil {
			b.enableErr = fmt.Errorf("failed to enable BLE adapter: %w", device.NormalizeError(err))
		}
	})
	if b.enableErr != nil {
		return nil, b.enableErr
	}
	return a, nil
}

// Scan reports advertisements until ctx is done
func (b *Backend) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	a, err := b.adapter()
	if err != nil {
		return err
	}

	b.scanMu.Lock()
	if b.scanning {
		b.scanMu.Unlock()
		return ErrScanInProgress
	}
	b.scanning = true
	b.scanMu.Unlock()
	defer func() {
		b.scanMu.Lock()
		b.scanning = false
		b.scanMu.Unlock()
	}()

	reported := hashmap.New[string, struct{}]()
	stopped := make(chan struct{})
	defer close(stopped)

	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		// StopScan fails until the adapter has actually started scanning
		ticker := time.NewTicker(stopRetryInterval)
		defer ticker.Stop()
		for a.StopScan() != nil {
			select {
			case <-stopped:
				return
			case <-ticker.C:
			}
		}
	}()

	err = a.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		addr := result.Address.String()
		b.seen.Set(strings.ToUpper(addr), result.Address)

		if !allowDup {
			if _, dup := reported.GetOrInsert(addr, struct{}{}); dup {
				return
			}
		}
		handler(&advertisement{
			name: result.LocalName(),
			addr: addr,
			rssi: int(result.RSSI),
		})
	})
	if err != nil {
		return device.NormalizeError(err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return nil
}

// resolve finds the platform address for a textual address, scanning for it when needed
func (b *Backend) resolve(ctx context.Context, address string) (bluetooth.Address, error) {
	key := strings.ToUpper(address)
	if addr, ok := b.seen.Get(key); ok {
		return addr, nil
	}

	b.logger.WithField("address", address).Debug("Address not cached, scanning for it")
	lookupCtx, cancel := context.WithTimeout(ctx, lookupScanTimeout)
	defer cancel()

	err := b.Scan(lookupCtx, false, func(adv device.Advertisement) {
		if strings.EqualFold(adv.Addr(), address) {
			cancel()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return bluetooth.Address{}, err
	}

	if addr, ok := b.seen.Get(key); ok {
		return addr, nil
	}
	return bluetooth.Address{}, fmt.Errorf("%w: %s", device.ErrNotFound, address)
}

// Dial connects to the peripheral with the given address
func (b *Backend) Dial(ctx context.Context, address string) (device.Client, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("device address is empty")
	}

	a, err := b.adapter()
	if err != nil {
		return nil, err
	}

	addr, err := b.resolve(ctx, address)
	if err != nil {
		return nil, err
	}

	b.logger.WithField("address", address).Debug("Dialing BLE device...")
	dev, err := a.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		b.logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Error("Failed to dial BLE device")
		return nil, fmt.Errorf("failed to connect to device with address %q: %w", address, device.NormalizeError(err))
	}

	return &Client{address: address, dev: wrapPeripheral(dev), logger: b.logger}, nil
}
