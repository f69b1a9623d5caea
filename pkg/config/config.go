package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/blescope/internal/devicefactory"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// BackendEnv selects the BLE backend implementation
const BackendEnv = "BLESCOPE_BACKEND"

// Config holds application configuration
type Config struct {
	Backend        string        `json:"backend" default:"go-ble"`
	LogLevel       string        `json:"log_level" default:""`
	LogFile        string        `json:"log_file" default:""`
	ScanTimeout    time.Duration `json:"scan_timeout" default:"5s"`
	ConnectTimeout time.Duration `json:"connect_timeout" default:"0s"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load returns the defaults with the backend taken from the environment
func Load() *Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv(os.Getenv)
	return cfg
}

// ApplyEnv overrides values from the environment lookup function
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(BackendEnv)); v != "" {
		c.Backend = strings.ToLower(v)
	}
}

// Validate rejects values the application cannot run with
func (c *Config) Validate() error {
	if !devicefactory.IsKnown(c.Backend) {
		return fmt.Errorf("invalid %s %q: must be one of %v", BackendEnv, c.Backend, devicefactory.Backends())
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.ScanTimeout <= 0 {
		return fmt.Errorf("invalid scan duration %s: must be positive", c.ScanTimeout)
	}
	if c.ConnectTimeout < 0 {
		return fmt.Errorf("invalid connect timeout %s: must not be negative", c.ConnectTimeout)
	}
	return nil
}

// Level parses LogLevel. An empty level means silent (panic level).
func (c *Config) Level() (logrus.Level, error) {
	switch c.LogLevel {
	case "":
		return logrus.PanicLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.PanicLevel, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}
}

// NewLogger creates a configured logger instance writing to out.
// When LogFile is set the logger writes there instead, and the returned
// closer must be called on exit.
func (c *Config) NewLogger(out io.Writer) (*logrus.Logger, io.Closer, error) {
	level, err := c.Level()
	if err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	var closer io.Closer = nopCloser{}
	switch {
	case c.LogFile != "":
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		logger.SetOutput(f)
		closer = f
	case out != nil:
		logger.SetOutput(out)
	default:
		logger.SetOutput(io.Discard)
	}

	return logger, closer, nil
}
