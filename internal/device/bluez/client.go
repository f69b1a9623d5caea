package bluez

import (
	"context"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/srg/blescope/internal/device"
)

type service struct {
	uuid string
}

func (s *service) UUID() string { return s.uuid }

// Client is a BlueZ device object the backend asked to connect
type Client struct {
	address string
	path    dbus.ObjectPath
	conn    *dbus.Conn
	logger  *logrus.Logger

	mu     sync.Mutex
	closed bool
}

func (c *Client) Address() string { return c.address }

func (c *Client) prop(ctx context.Context, name string) (dbus.Variant, error) {
	var v dbus.Variant
	err := c.conn.Object(busName, c.path).CallWithContext(ctx, propsIface+".Get", 0, deviceIface, name).Store(&v)
	return v, err
}

// IsConnected reads the Connected property of the device
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}

	v, err := c.prop(context.Background(), "Connected")
	if err != nil {
		c.logger.WithError(err).Debug("Reading Connected failed")
		return false
	}
	connected, _ := v.Value().(bool)
	return connected
}

// Services waits for BlueZ to resolve the GATT database and lists the exported services
func (c *Client) Services(ctx context.Context) ([]device.Service, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, device.ErrNotConnected
	}

	resolveCtx, cancel := context.WithTimeout(ctx, servicesResolveBudget)
	defer cancel()
	if err := c.waitServicesResolved(resolveCtx); err != nil {
		return nil, err
	}

	var objects managedObjects
	err := c.conn.Object(busName, "/").CallWithContext(ctx, objectManagerIface+".GetManagedObjects", 0).Store(&objects)
	if err != nil {
		return nil, normalizeError(err)
	}

	uuids := servicesUnder(objects, c.path)
	result := make([]device.Service, 0, len(uuids))
	for _, u := range uuids {
		result = append(result, &service{uuid: u})
	}
	return result, nil
}

func (c *Client) waitServicesResolved(ctx context.Context) error {
	ticker := time.NewTicker(servicesPollInterval)
	defer ticker.Stop()

	for {
		v, err := c.prop(ctx, "ServicesResolved")
		if err != nil {
			return normalizeError(err)
		}
		if resolved, _ := v.Value().(bool); resolved {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Disconnect asks BlueZ to drop the link. Safe to call more than once.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if err := c.conn.Object(busName, c.path).Call(deviceIface+".Disconnect", 0).Err; err != nil {
		c.logger.WithField("error", err).Warn("BLE device disconnected with errors")
		return normalizeError(err)
	}
	c.logger.WithField("address", c.address).Info("BLE device disconnected successfully")
	return nil
}
