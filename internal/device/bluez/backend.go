package bluez

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/srg/blescope/internal/device"
)

// Name is the backend name accepted by BLESCOPE_BACKEND
const Name = "bluez"

const (
	signalBuffer          = 64
	servicesPollInterval  = 100 * time.Millisecond
	servicesResolveBudget = 15 * time.Second
)

// ConnectBus opens a private system bus connection (can be overridden in tests)
var ConnectBus = func() (*dbus.Conn, error) {
	return dbus.ConnectSystemBus()
}

type advertisement struct {
	name string
	addr string
	rssi int
}

func (a *advertisement) LocalName() string { return a.name }
func (a *advertisement) Addr() string      { return a.addr }
func (a *advertisement) RSSI() int         { return a.rssi }

// Backend implements device.Backend by talking to BlueZ over D-Bus directly.
type Backend struct {
	logger      *logrus.Logger
	adapterPath dbus.ObjectPath

	mu   sync.Mutex
	conn *dbus.Conn
}

// NewBackend creates a BlueZ backend for the first adapter (hci0).
// The bus is not touched until the first Scan or Dial.
func NewBackend(logger *logrus.Logger) *Backend {
	if logger == nil {
		logger = logrus.New()
	}
	return &Backend{logger: logger, adapterPath: defaultAdapterPath}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) bus() (*dbus.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return b.conn, nil
	}

	conn, err := ConnectBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	// Quick check that BlueZ is on the bus.
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == busName {
			found = true
			break
		}
	}
	if !found {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: org.bluez not found on system bus, is bluetooth.service running?", device.ErrUnsupported)
	}

	b.conn = conn
	return conn, nil
}

// Close releases the bus connection
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

func scanMatchOptions(adapter dbus.ObjectPath) [][]dbus.MatchOption {
	return [][]dbus.MatchOption{
		{
			dbus.WithMatchInterface(objectManagerIface),
			dbus.WithMatchMember("InterfacesAdded"),
		},
		{
			dbus.WithMatchInterface(propsIface),
			dbus.WithMatchMember("PropertiesChanged"),
			dbus.WithMatchPathNamespace(adapter),
		},
	}
}

// Scan runs BlueZ LE discovery until ctx is done
func (b *Backend) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	conn, err := b.bus()
	if err != nil {
		return err
	}
	adapter := conn.Object(busName, b.adapterPath)

	filter := map[string]dbus.Variant{"Transport": dbus.MakeVariant("le")}
	if err := adapter.CallWithContext(ctx, adapterIface+".SetDiscoveryFilter", 0, filter).Err; err != nil {
		return normalizeError(err)
	}

	for _, opts := range scanMatchOptions(b.adapterPath) {
		if err := conn.AddMatchSignal(opts...); err != nil {
			return fmt.Errorf("add signal match: %w", err)
		}
		defer func(opts []dbus.MatchOption) { _ = conn.RemoveMatchSignal(opts...) }(opts)
	}
	signals := make(chan *dbus.Signal, signalBuffer)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	if err := adapter.CallWithContext(ctx, adapterIface+".StartDiscovery", 0).Err; err != nil {
		return normalizeError(err)
	}
	defer func() {
		if err := adapter.Call(adapterIface+".StopDiscovery", 0).Err; err != nil {
			b.logger.WithError(err).Debug("StopDiscovery failed")
		}
	}()

	known := hashmap.New[dbus.ObjectPath, *advertisement]()
	reported := hashmap.New[dbus.ObjectPath, struct{}]()
	report := func(path dbus.ObjectPath, adv *advertisement) {
		if !allowDup {
			if _, dup := reported.GetOrInsert(path, struct{}{}); dup {
				return
			}
		}
		snapshot := *adv
		handler(&snapshot)
	}

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil
			}
			return ctx.Err()

		case sig, ok := <-signals:
			if !ok {
				return fmt.Errorf("%w: system bus connection closed", device.ErrNotConnected)
			}
			switch sig.Name {
			case interfacesAddedSignal:
				path, props, ok := parseInterfacesAdded(sig)
				if !ok || macFromPath(b.adapterPath, path) == "" {
					continue
				}
				adv := advertisementFromProps(path, b.adapterPath, props)
				known.Set(path, adv)
				report(path, adv)

			case propertiesChangedSignal:
				changed, ok := parsePropertiesChanged(sig)
				if !ok || macFromPath(b.adapterPath, sig.Path) == "" {
					continue
				}
				adv, exists := known.Get(sig.Path)
				if !exists {
					adv = b.fetchAdvertisement(ctx, conn, sig.Path)
					known.Set(sig.Path, adv)
				}
				adv.merge(changed)
				report(sig.Path, adv)
			}
		}
	}
}

func parseInterfacesAdded(sig *dbus.Signal) (dbus.ObjectPath, map[string]dbus.Variant, bool) {
	if len(sig.Body) < 2 {
		return "", nil, false
	}
	path, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok {
		return "", nil, false
	}
	ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
	if !ok {
		return "", nil, false
	}
	props, ok := ifaces[deviceIface]
	return path, props, ok
}

func parsePropertiesChanged(sig *dbus.Signal) (map[string]dbus.Variant, bool) {
	if len(sig.Body) < 2 {
		return nil, false
	}
	if iface, ok := sig.Body[0].(string); !ok || iface != deviceIface {
		return nil, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	return changed, ok
}

// fetchAdvertisement reads all Device1 properties for a cached device BlueZ only reports changes for
func (b *Backend) fetchAdvertisement(ctx context.Context, conn *dbus.Conn, path dbus.ObjectPath) *advertisement {
	var props map[string]dbus.Variant
	err := conn.Object(busName, path).CallWithContext(ctx, propsIface+".GetAll", 0, deviceIface).Store(&props)
	if err != nil {
		b.logger.WithFields(logrus.Fields{"path": path, "error": err}).Debug("GetAll on device failed")
	}
	return advertisementFromProps(path, b.adapterPath, props)
}

// Dial asks BlueZ to connect to the device with the given address
func (b *Backend) Dial(ctx context.Context, address string) (device.Client, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("device address is empty")
	}
	conn, err := b.bus()
	if err != nil {
		return nil, err
	}

	path := deviceObjectPath(b.adapterPath, address)
	b.logger.WithFields(logrus.Fields{"address": address, "path": path}).Debug("Dialing BLE device...")
	if err := conn.Object(busName, path).CallWithContext(ctx, deviceIface+".Connect", 0).Err; err != nil {
		b.logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Error("Failed to dial BLE device")
		return nil, fmt.Errorf("failed to connect to device with address %q: %w", address, normalizeError(err))
	}

	return &Client{address: address, path: path, conn: conn, logger: b.logger}, nil
}

// normalizeError maps BlueZ D-Bus error names to structured device errors
func normalizeError(err error) error {
	if name := dbusErrorName(err); name != "" {
		switch name {
		case "org.freedesktop.DBus.Error.UnknownObject", "org.bluez.Error.DoesNotExist":
			return fmt.Errorf("%w: %v", device.ErrNotFound, err)
		case "org.bluez.Error.AlreadyConnected":
			return fmt.Errorf("%w: %v", device.ErrAlreadyConnected, err)
		case "org.bluez.Error.NotConnected":
			return fmt.Errorf("%w: %v", device.ErrNotConnected, err)
		}
	}
	return device.NormalizeError(err)
}

func dbusErrorName(err error) string {
	var ptr *dbus.Error
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Name
	}
	var val dbus.Error
	if errors.As(err, &val) {
		return val.Name
	}
	return ""
}
