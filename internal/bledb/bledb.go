// Package bledb names well-known Bluetooth SIG GATT services.
package bledb

import "github.com/srg/blescope/internal/device"

// services maps 16-bit SIG service UUIDs to their assigned names
var services = map[string]string{
	"1800": "Generic Access",
	"1801": "Generic Attribute",
	"1802": "Immediate Alert",
	"1803": "Link Loss",
	"1804": "Tx Power",
	"1805": "Current Time Service",
	"1808": "Glucose",
	"1809": "Health Thermometer",
	"180a": "Device Information",
	"180d": "Heart Rate",
	"180f": "Battery Service",
	"1810": "Blood Pressure",
	"1812": "Human Interface Device",
	"1814": "Running Speed and Cadence",
	"1816": "Cycling Speed and Cadence",
	"1818": "Cycling Power",
	"1819": "Location and Navigation",
	"181a": "Environmental Sensing",
	"181c": "User Data",
	"181d": "Weight Scale",
	"1822": "Pulse Oximeter",
	"1826": "Fitness Machine",
	"fe59": "Nordic Secure DFU",
	"fd6f": "Exposure Notification",
}

// LookupService returns the SIG name of a service UUID in any common
// notation, or "" when the UUID is not a known service.
func LookupService(uuid string) string {
	return services[device.NormalizeUUID(uuid)]
}
