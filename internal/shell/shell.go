// Package shell is the interactive console: a log panel, the device list of
// the last scan and the scan and connect actions.
//
// Shell holds the console state and is only touched from the Bubble Tea
// Update loop. Background work runs on per-action worker goroutines that talk
// back exclusively through Program.Send.
package shell

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/srg/blescope/internal/groutine"
	"github.com/srg/blescope/internal/session"
)

// Session is the BLE work the console drives
type Session interface {
	BackendName() string
	ScanTimeout() time.Duration
	Scan(ctx context.Context) ([]session.DiscoveredDevice, error)
	ConnectAndInspect(ctx context.Context, dev session.DiscoveredDevice, progress func(string)) (session.ConnectOutcome, error)
}

// Sender posts messages to the UI goroutine; *tea.Program implements it
type Sender interface {
	Send(msg tea.Msg)
}

// Dispatcher starts fn on a new worker goroutine and calls done when it returns
type Dispatcher func(ctx context.Context, name string, fn func(ctx context.Context) error, done func(error))

// GoroutineDispatcher runs every worker on a fresh named goroutine
func GoroutineDispatcher(ctx context.Context, name string, fn func(ctx context.Context) error, done func(error)) {
	groutine.Go(ctx, name, fn, done)
}

// Shell is the console state
type Shell struct {
	ctx      context.Context
	session  Session
	logger   *logrus.Logger
	dispatch Dispatcher
	sender   Sender

	devices  []session.DiscoveredDevice
	items    []string // visible list labels, aligned with devices
	selected int      // -1 when nothing is selected
	listGen  int      // bumped whenever items is replaced
	lines    []string
}

// New creates the console state and logs the startup line.
// Workers started by the shell inherit ctx.
func New(ctx context.Context, sess Session, logger *logrus.Logger, dispatch Dispatcher) *Shell {
	if logger == nil {
		logger = logrus.New()
	}
	if dispatch == nil {
		dispatch = GoroutineDispatcher
	}
	s := &Shell{
		ctx:      ctx,
		session:  sess,
		logger:   logger,
		dispatch: dispatch,
		selected: -1,
	}
	s.Log("Ready.")
	return s
}

// SetProgramSender wires the program that owns the UI goroutine.
// Messages sent before it is set are dropped.
func (s *Shell) SetProgramSender(sender Sender) {
	s.sender = sender
}

func (s *Shell) send(msg tea.Msg) {
	if s.sender != nil {
		s.sender.Send(msg)
	}
}

// Title is the window title
func (s *Shell) Title() string {
	return fmt.Sprintf("BLE %s backend - Scan & Connect", s.session.BackendName())
}

// Log appends a line to the log panel and mirrors it to the logger
func (s *Shell) Log(line string) {
	s.lines = append(s.lines, line)
	s.logger.WithField("component", "shell").Info(line)
}

// OnError reports a failure; it is shown like any other line
func (s *Shell) OnError(message string) {
	s.Log(message)
}

// Lines returns the log panel content
func (s *Shell) Lines() []string { return s.lines }

// Devices returns the devices of the last completed scan
func (s *Shell) Devices() []session.DiscoveredDevice { return s.devices }

// Items returns the visible device list labels
func (s *Shell) Items() []string { return s.items }

// Select marks the i-th visible item as selected
func (s *Shell) Select(i int) bool {
	if i < 0 || i >= len(s.items) {
		return false
	}
	s.selected = i
	return true
}

// Selected returns the selected index, or -1
func (s *Shell) Selected() int { return s.selected }

// StartScan clears the previous results and starts a scan worker.
// A scan already in flight is not cancelled; both will report back.
func (s *Shell) StartScan() {
	s.devices = nil
	s.items = nil
	s.selected = -1
	s.listGen++
	s.Log(fmt.Sprintf("Starting BLE scan (using %s backend, %s)...",
		s.session.BackendName(), formatSeconds(s.session.ScanTimeout())))

	s.dispatch(s.ctx, "scan-worker", func(ctx context.Context) error {
		devices, err := s.session.Scan(ctx)
		if err != nil {
			s.send(logLineMsg{line: "Scan error: " + err.Error()})
			return nil
		}
		s.send(scanDoneMsg{devices: devices})
		return nil
	}, s.workerDone("Scan error"))
}

// OnScanComplete replaces the device list with a finished scan's result
func (s *Shell) OnScanComplete(devices []session.DiscoveredDevice) {
	s.devices = devices
	s.items = make([]string, 0, len(devices))
	s.listGen++
	s.Log(fmt.Sprintf("Scan complete, found %d devices:", len(devices)))
	for _, d := range devices {
		s.Log(fmt.Sprintf("  - %s: %s", d.Address, d.Name))
		s.items = append(s.items, d.Label())
	}
}

// StartConnect starts a connect-and-inspect worker for the selected device
func (s *Shell) StartConnect() {
	if s.selected < 0 || s.selected >= len(s.devices) {
		s.Log("No device selected.")
		return
	}
	dev := s.devices[s.selected]
	s.Log(fmt.Sprintf("Attempting to connect to: %s", dev.Label()))

	s.dispatch(s.ctx, "connect-worker", func(ctx context.Context) error {
		outcome, err := s.session.ConnectAndInspect(ctx, dev, func(line string) {
			s.send(logLineMsg{line: line})
		})
		s.send(connectDoneMsg{outcome: outcome, err: err})
		return nil
	}, s.workerDone("Connect error"))
}

// OnConnectComplete logs the result of a connect-and-inspect attempt
func (s *Shell) OnConnectComplete(outcome session.ConnectOutcome, err error) {
	label := outcome.Device.Label()
	if outcome.Connected {
		s.Log(fmt.Sprintf("Connected to %s!", label))
		if err == nil {
			s.Log(fmt.Sprintf("Number of services: %d", len(outcome.Services)))
		}
	}
	switch {
	case err != nil:
		s.OnError(fmt.Sprintf("Error during connect: %v", err))
	case !outcome.Connected:
		s.Log(fmt.Sprintf("Could not connect to %s.", label))
	}
}

// workerDone reports a worker that died instead of returning
func (s *Shell) workerDone(prefix string) func(error) {
	return func(err error) {
		if err == nil {
			return
		}
		var perr *groutine.PanicError
		if errors.As(err, &perr) {
			s.logger.WithField("goroutine", perr.Name).WithField("stack", string(perr.Stack)).Error("Worker panicked")
			s.send(logLineMsg{line: fmt.Sprintf("%s: %v", prefix, perr.Value)})
			return
		}
		s.send(logLineMsg{line: fmt.Sprintf("%s: %v", prefix, err)})
	}
}

// formatSeconds renders a scan window the way it is announced: "5s", "2.5s"
func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%gs", d.Seconds())
}
