package devicefactory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/srg/blescope/internal/device"
	"github.com/srg/blescope/internal/device/bluez"
	"github.com/srg/blescope/internal/device/goble"
	"github.com/srg/blescope/internal/device/tinygo"
)

// DefaultBackend is used when no backend is configured
const DefaultBackend = goble.Name

var constructors = map[string]func(*logrus.Logger) device.Backend{
	goble.Name:  func(l *logrus.Logger) device.Backend { return goble.NewBackend(l) },
	tinygo.Name: func(l *logrus.Logger) device.Backend { return tinygo.NewBackend(l) },
	bluez.Name:  func(l *logrus.Logger) device.Backend { return bluez.NewBackend(l) },
}

// Backends returns the names of all known backends, sorted
func Backends() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsKnown reports whether name selects a backend
func IsKnown(name string) bool {
	_, ok := constructors[normalize(name)]
	return ok
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultBackend
	}
	return name
}

// BackendFactory creates the device.Backend for the given name.
// This is a variable so that it can be overridden in tests.
var BackendFactory = func(name string, logger *logrus.Logger) (device.Backend, error) {
	ctor, ok := constructors[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("unknown BLE backend %q (available: %s)", name, strings.Join(Backends(), ", "))
	}
	return ctor(logger), nil
}

// NewBackend creates the backend selected by name; an empty name selects DefaultBackend.
func NewBackend(name string, logger *logrus.Logger) (device.Backend, error) {
	return BackendFactory(name, logger)
}
