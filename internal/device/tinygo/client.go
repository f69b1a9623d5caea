package tinygo

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/blescope/internal/device"
)

type service struct {
	uuid string
}

func (s *service) UUID() string { return s.uuid }

// Client is a live tinygo connection
type Client struct {
	address string
	logger  *logrus.Logger

	mu  sync.Mutex
	dev Peripheral
}

func (c *Client) Address() string { return c.address }

// IsConnected reports whether Disconnect has not been called yet.
// tinygo has no portable link-state query.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dev != nil
}

func (c *Client) Services(ctx context.Context) ([]device.Service, error) {
	c.mu.Lock()
	dev := c.dev
	c.mu.Unlock()

	if dev == nil {
		return nil, device.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	svcs, err := dev.DiscoverServices(nil)
	if err != nil {
		return nil, device.NormalizeError(err)
	}
	result := make([]device.Service, 0, len(svcs))
	for i := range svcs {
		result = append(result, &service{uuid: svcs[i].UUID().String()})
	}
	return result, nil
}

func (c *Client) Disconnect() error {
	c.mu.Lock()
	dev := c.dev
	c.dev = nil
	c.mu.Unlock()

	if dev == nil {
		return nil
	}
	if err := dev.Disconnect(); err != nil {
		c.logger.WithField("error", err).Warn("BLE device disconnected with errors")
		return device.NormalizeError(err)
	}
	c.logger.WithField("address", c.address).Info("BLE device disconnected successfully")
	return nil
}
