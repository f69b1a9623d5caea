package goble

import (
	"context"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blescope/internal/device"
)

// BLEService implements device.Service for a discovered ble.Service
type BLEService struct {
	uuid string
}

func (s *BLEService) UUID() string { return s.uuid }

// Client is a live go-ble connection
type Client struct {
	address string
	logger  *logrus.Logger

	mu  sync.Mutex
	cli ble.Client
}

func newClient(address string, cli ble.Client, logger *logrus.Logger) *Client {
	return &Client{address: address, cli: cli, logger: logger}
}

func (c *Client) Address() string { return c.address }

// IsConnected reports whether the link is still up. go-ble closes the
// Disconnected channel when the peripheral drops the link.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cli == nil {
		return false
	}
	select {
	case <-c.cli.Disconnected():
		return false
	default:
		return true
	}
}

// Services discovers the primary GATT services of the peripheral
func (c *Client) Services(ctx context.Context) ([]device.Service, error) {
	c.mu.Lock()
	cli := c.cli
	c.mu.Unlock()

	if cli == nil {
		return nil, device.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.logger.WithField("address", c.address).Debug("Discovering services...")
	svcs, err := cli.DiscoverServices(nil)
	if err != nil {
		return nil, NormalizeError(err)
	}

	result := make([]device.Service, 0, len(svcs))
	for _, s := range svcs {
		result = append(result, &BLEService{uuid: s.UUID.String()})
	}
	return result, nil
}

// Disconnect closes the connection and clears live handles
func (c *Client) Disconnect() error {
	c.mu.Lock()
	cli := c.cli
	c.cli = nil
	c.mu.Unlock()

	if cli == nil {
		c.logger.Debug("Disconnect called but already disconnected")
		return nil
	}

	if err := cli.CancelConnection(); err != nil {
		c.logger.WithField("error", err).Warn("BLE device disconnected with errors")
		return NormalizeError(err)
	}
	c.logger.WithField("address", c.address).Info("BLE device disconnected successfully")
	return nil
}
