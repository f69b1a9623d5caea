//go:build !linux && !darwin

package goble

import (
	"fmt"
	"runtime"

	"github.com/srg/blescope/internal/device"
)

func defaultRadio() (Radio, error) {
	return nil, fmt.Errorf("%w: go-ble has no %s support, try BLESCOPE_BACKEND=tinygo", device.ErrUnsupported, runtime.GOOS)
}
