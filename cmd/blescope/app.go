package main

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blescope/internal/devicefactory"
	"github.com/srg/blescope/internal/session"
	"github.com/srg/blescope/pkg/config"
)

// app is what every command needs: config, logger and a session on the
// selected backend.
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	session *session.Session
	closers []io.Closer
}

// loadConfig layers defaults, the environment and the command's flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Load()

	flags := cmd.Flags()
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := flags.GetString("log-file"); v != "" {
		cfg.LogFile = v
	}
	if flags.Changed("scan-duration") {
		cfg.ScanTimeout, _ = flags.GetDuration("scan-duration")
	}
	if flags.Changed("connect-timeout") {
		cfg.ConnectTimeout, _ = flags.GetDuration("connect-timeout")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configureLogger builds the logger for the command. logOut is where logs go
// when no --log-file is given; nil discards them.
func configureLogger(cfg *config.Config, logOut io.Writer) (*logrus.Logger, io.Closer, error) {
	return cfg.NewLogger(logOut)
}

func newApp(cmd *cobra.Command, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := configureLogger(cfg, logOut)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	backend, err := devicefactory.NewBackend(cfg.Backend, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := backend.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	logger.WithField("backend", backend.Name()).Debug("BLE backend selected")
	a.session = session.New(backend, logger, session.Options{
		ScanTimeout:    cfg.ScanTimeout,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	return a, nil
}

// Close releases the backend and the log file, newest first
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}
