package device

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionError(t *testing.T) {
	t.Run("message includes state and detail", func(t *testing.T) {
		err := &ConnectionError{State: NotConnected, Msg: "link dropped"}
		assert.Equal(t, "not_connected: link dropped", err.Error())
	})

	t.Run("bare state", func(t *testing.T) {
		assert.Equal(t, "already_connected", ErrAlreadyConnected.Error())
	})

	t.Run("nil receiver", func(t *testing.T) {
		var err *ConnectionError
		assert.Equal(t, "<nil>", err.Error())
		assert.False(t, err.Is(ErrNotConnected))
	})

	t.Run("errors.Is compares by state", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", &ConnectionError{State: NotConnected, Msg: "x"})
		assert.ErrorIs(t, err, ErrNotConnected)
		assert.NotErrorIs(t, err, ErrAlreadyConnected)
		assert.True(t, IsConnectionState(err, NotConnected))
		assert.False(t, IsConnectionState(errors.New("plain"), NotConnected))
	})
}

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		expectIs error
	}{
		{name: "darwin powered-off message", input: errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?"), expectIs: ErrBluetoothOff},
		{name: "bluez not powered", input: errors.New("org.bluez.Error.NotReady: Resource Not Ready (not powered)"), expectIs: ErrBluetoothOff},
		{name: "device not connected", input: errors.New("device not connected"), expectIs: ErrNotConnected},
		{name: "disconnected", input: errors.New("peripheral disconnected"), expectIs: ErrNotConnected},
		{name: "already connected", input: errors.New("device already connected"), expectIs: ErrAlreadyConnected},
		{name: "not initialized", input: errors.New("connection is not initialized"), expectIs: ErrNotInitialized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NormalizeError(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expectIs)
			assert.Contains(t, err.Error(), tt.input.Error(), "original text MUST be preserved")
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, NormalizeError(nil))
	})

	t.Run("unknown errors pass through", func(t *testing.T) {
		orig := errors.New("some other error")
		assert.Same(t, orig, NormalizeError(orig))
	})

	t.Run("context errors pass through", func(t *testing.T) {
		assert.ErrorIs(t, NormalizeError(context.Canceled), context.Canceled)
	})

	t.Run("already normalized errors are not wrapped twice", func(t *testing.T) {
		once := NormalizeError(errors.New("bluetooth is turned off"))
		assert.Equal(t, once, NormalizeError(once))
	})
}
