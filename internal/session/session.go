package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"github.com/srg/blescope/internal/device"
)

// DefaultScanTimeout is the discovery window when none is configured
const DefaultScanTimeout = 5 * time.Second

// Options configures a Session
type Options struct {
	ScanTimeout    time.Duration
	ConnectTimeout time.Duration // 0 means no timeout
}

// Session runs scan and connect-and-inspect operations against one backend.
// A Session holds no per-operation state; operations may run concurrently.
type Session struct {
	backend device.Backend
	logger  *logrus.Logger
	opts    Options
}

// New creates a Session
func New(backend device.Backend, logger *logrus.Logger, opts Options) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = DefaultScanTimeout
	}
	return &Session{backend: backend, logger: logger, opts: opts}
}

// BackendName returns the name of the backend in use
func (s *Session) BackendName() string { return s.backend.Name() }

// ScanTimeout returns the discovery window
func (s *Session) ScanTimeout() time.Duration { return s.opts.ScanTimeout }

// Scan listens for advertisements for the configured window and returns
// every device seen, in first-seen order.
func (s *Session) Scan(ctx context.Context) (devices []DiscoveredDevice, err error) {
	log := s.logger.WithFields(logrus.Fields{
		"op_id":    ulid.Make().String(),
		"backend":  s.backend.Name(),
		"duration": s.opts.ScanTimeout,
	})
	log.Info("Starting BLE scan...")

	defer func() {
		if r := recover(); r != nil {
			devices = nil
			err = &ScanError{Err: fmt.Errorf("panic: %v", r)}
			log.WithField("panic", r).Error("BLE scan panicked")
		}
	}()

	scanCtx, cancel := context.WithTimeout(ctx, s.opts.ScanTimeout)
	defer cancel()

	c := newCollector()
	// Duplicates are let through so a scan response can fill in a missing name.
	scanErr := s.backend.Scan(scanCtx, true, c.add)

	switch {
	case ctx.Err() != nil:
		return nil, &ScanError{Err: ctx.Err()}
	case scanErr != nil && !errors.Is(scanErr, context.DeadlineExceeded) && !errors.Is(scanErr, context.Canceled):
		log.WithError(scanErr).Error("BLE scan failed")
		return nil, &ScanError{Err: scanErr}
	}

	devices = c.list()
	log.WithField("device_count", len(devices)).Info("BLE scan completed")
	return devices, nil
}

// ConnectAndInspect connects to dev, checks the link and lists its GATT
// services. progress receives human-readable lines as the attempt advances.
// The connection is always released before returning. A failure is returned
// as *ConnectError together with the outcome observed so far.
func (s *Session) ConnectAndInspect(ctx context.Context, dev DiscoveredDevice, progress func(string)) (outcome ConnectOutcome, err error) {
	if progress == nil {
		progress = func(string) {}
	}
	log := s.logger.WithFields(logrus.Fields{
		"op_id":   ulid.Make().String(),
		"backend": s.backend.Name(),
		"address": dev.Address,
	})

	outcome.Device = dev
	enter := func(st ConnState) {
		outcome.Trace = append(outcome.Trace, st)
		log.WithField("state", st).Debug("Connection state changed")
	}
	enter(StateIdle)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Connect-and-inspect panicked")
			if outcome.Final() != StateDisconnected {
				enter(StateDisconnected)
			}
			err = &ConnectError{Device: dev, Op: OpPanic, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	progress(fmt.Sprintf("Connecting to %s...", dev.Label()))
	enter(StateConnecting)

	dialCtx := ctx
	if s.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, s.opts.ConnectTimeout)
		defer cancel()
	}

	cli, dialErr := s.backend.Dial(dialCtx, dev.Address)
	if dialErr != nil {
		enter(StateConnectFailed)
		enter(StateDisconnected)
		return outcome, &ConnectError{Device: dev, Op: OpDial, Err: dialErr}
	}

	defer func() {
		if derr := cli.Disconnect(); derr != nil {
			log.WithError(derr).Warn("Disconnect failed")
		}
		enter(StateDisconnected)
	}()

	if !cli.IsConnected() {
		log.Warn("Dial returned but the link is down")
		enter(StateConnectFailed)
		return outcome, nil
	}
	enter(StateConnected)
	outcome.Connected = true

	enter(StateInspecting)
	svcs, svcErr := cli.Services(dialCtx)
	if svcErr != nil {
		log.WithError(svcErr).Error("Service discovery failed")
		return outcome, &ConnectError{Device: dev, Op: OpServices, Err: svcErr}
	}

	outcome.Services = make([]string, 0, len(svcs))
	for _, svc := range svcs {
		outcome.Services = append(outcome.Services, device.NormalizeUUID(svc.UUID()))
	}
	log.WithField("services", len(outcome.Services)).Info("BLE device inspected")
	return outcome, nil
}
