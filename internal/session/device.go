package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/srg/blescope/internal/device"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// UnknownName labels devices that did not advertise a name
const UnknownName = "Unknown"

// DiscoveredDevice is one entry of a scan result
type DiscoveredDevice struct {
	Address string `json:"address" yaml:"address"`
	Name    string `json:"name" yaml:"name"`
}

// NewDiscoveredDevice builds a device, substituting UnknownName for an absent name
func NewDiscoveredDevice(address, name string) DiscoveredDevice {
	name = strings.TrimSpace(name)
	if name == "" {
		name = UnknownName
	}
	return DiscoveredDevice{Address: address, Name: name}
}

// Label is how the device is shown in the device list: "name [address]"
func (d DiscoveredDevice) Label() string {
	return fmt.Sprintf("%s [%s]", d.Name, d.Address)
}

type collected struct {
	dev   DiscoveredDevice
	named bool
}

// collector folds a stream of advertisements into one entry per address,
// in first-seen order. A later advertisement may supply a name the first lacked.
type collector struct {
	mu      sync.Mutex
	devices *orderedmap.OrderedMap[string, collected]
}

func newCollector() *collector {
	return &collector{devices: orderedmap.New[string, collected]()}
}

func (c *collector) add(adv device.Advertisement) {
	addr := adv.Addr()
	if addr == "" {
		return
	}
	name := strings.TrimSpace(adv.LocalName())

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.devices.Get(addr)
	switch {
	case !exists:
		c.devices.Set(addr, collected{dev: NewDiscoveredDevice(addr, name), named: name != ""})
	case !entry.named && name != "":
		entry.dev.Name = name
		entry.named = true
		c.devices.Set(addr, entry)
	}
}

func (c *collector) list() []DiscoveredDevice {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]DiscoveredDevice, 0, c.devices.Len())
	for pair := c.devices.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value.dev)
	}
	return result
}
