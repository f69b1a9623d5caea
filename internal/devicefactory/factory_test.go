package devicefactory

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackends(t *testing.T) {
	assert.Equal(t, []string{"bluez", "go-ble", "tinygo"}, Backends())
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantName string
	}{
		{name: "empty selects default", input: "", wantName: "go-ble"},
		{name: "go-ble", input: "go-ble", wantName: "go-ble"},
		{name: "case and spaces are ignored", input: "  TinyGo ", wantName: "tinygo"},
		{name: "bluez", input: "bluez", wantName: "bluez"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBackend(tt.input, logrus.New())
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, b.Name())
			assert.True(t, IsKnown(tt.input))
		})
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := NewBackend("winrt", logrus.New())

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown BLE backend "winrt"`)
	assert.Contains(t, err.Error(), "bluez, go-ble, tinygo")
	assert.False(t, IsKnown("winrt"))
}
