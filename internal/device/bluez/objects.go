package bluez

import (
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	busName            = "org.bluez"
	defaultAdapterPath = dbus.ObjectPath("/org/bluez/hci0")
	adapterIface       = "org.bluez.Adapter1"
	deviceIface        = "org.bluez.Device1"
	gattServiceIface   = "org.bluez.GattService1"
	propsIface         = "org.freedesktop.DBus.Properties"
	objectManagerIface = "org.freedesktop.DBus.ObjectManager"

	interfacesAddedSignal   = objectManagerIface + ".InterfacesAdded"
	propertiesChangedSignal = propsIface + ".PropertiesChanged"
)

// managedObjects is the GetManagedObjects reply: path -> interface -> property -> value
type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// deviceObjectPath converts a MAC address like "AA:BB:CC:DD:EE:FF" to
// "<adapter>/dev_AA_BB_CC_DD_EE_FF".
func deviceObjectPath(adapter dbus.ObjectPath, addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(addr)), ":", "_")
	return dbus.ObjectPath(string(adapter) + "/dev_" + escaped)
}

// macFromPath extracts a MAC address from a BlueZ device object path.
// Paths below the device (services, characteristics) yield "".
func macFromPath(adapter dbus.ObjectPath, path dbus.ObjectPath) string {
	prefix := string(adapter) + "/dev_"
	s := string(path)
	if !strings.HasPrefix(s, prefix) {
		return ""
	}
	rest := s[len(prefix):]
	if strings.Contains(rest, "/") {
		return ""
	}
	return strings.ReplaceAll(rest, "_", ":")
}

func stringProp(props map[string]dbus.Variant, name string) string {
	if v, ok := props[name]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

func boolProp(props map[string]dbus.Variant, name string) bool {
	if v, ok := props[name]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

func int16Prop(props map[string]dbus.Variant, name string) (int16, bool) {
	if v, ok := props[name]; ok {
		if n, ok := v.Value().(int16); ok {
			return n, true
		}
	}
	return 0, false
}

// advertisementFromProps builds an advertisement from Device1 properties.
// Name is only set when the peripheral advertised one; Alias is not used
// because BlueZ fills it with the address when no name is known.
func advertisementFromProps(path dbus.ObjectPath, adapter dbus.ObjectPath, props map[string]dbus.Variant) *advertisement {
	addr := stringProp(props, "Address")
	if addr == "" {
		addr = macFromPath(adapter, path)
	}
	adv := &advertisement{addr: addr, name: stringProp(props, "Name")}
	if rssi, ok := int16Prop(props, "RSSI"); ok {
		adv.rssi = int(rssi)
	}
	return adv
}

// merge applies changed Device1 properties to a known advertisement
func (a *advertisement) merge(changed map[string]dbus.Variant) {
	if name := stringProp(changed, "Name"); name != "" {
		a.name = name
	}
	if rssi, ok := int16Prop(changed, "RSSI"); ok {
		a.rssi = int(rssi)
	}
}

// servicesUnder returns the sorted UUIDs of the GATT services exported below devPath
func servicesUnder(objects managedObjects, devPath dbus.ObjectPath) []string {
	prefix := string(devPath) + "/"
	var uuids []string
	for path, ifaces := range objects {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		props, ok := ifaces[gattServiceIface]
		if !ok {
			continue
		}
		uuids = append(uuids, stringProp(props, "UUID"))
	}
	sort.Strings(uuids)
	return uuids
}
