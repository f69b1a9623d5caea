package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "go-ble", cfg.Backend)
	assert.Equal(t, "", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ScanTimeout)
	assert.Equal(t, time.Duration(0), cfg.ConnectTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_ApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		backend string
	}{
		{name: "unset keeps default", env: map[string]string{}, backend: "go-ble"},
		{name: "selects tinygo", env: map[string]string{BackendEnv: "tinygo"}, backend: "tinygo"},
		{name: "normalizes case", env: map[string]string{BackendEnv: " BlueZ "}, backend: "bluez"},
		{name: "ignores unrelated variables", env: map[string]string{"BLEAK_USE_WINRT": "0"}, backend: "go-ble"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ApplyEnv(func(k string) string { return tt.env[k] })
			assert.Equal(t, tt.backend, cfg.Backend)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(BackendEnv, "tinygo")
	assert.Equal(t, "tinygo", Load().Backend)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "winrt" }, wantErr: `invalid BLESCOPE_BACKEND "winrt"`},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "invalid log level: trace"},
		{name: "zero scan duration", mutate: func(c *Config) { c.ScanTimeout = 0 }, wantErr: "must be positive"},
		{name: "negative connect timeout", mutate: func(c *Config) { c.ConnectTimeout = -time.Second }, wantErr: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		expected logrus.Level
	}{
		{name: "silent by default", logLevel: "", expected: logrus.PanicLevel},
		{name: "debug", logLevel: "debug", expected: logrus.DebugLevel},
		{name: "info", logLevel: "info", expected: logrus.InfoLevel},
		{name: "warn", logLevel: "warn", expected: logrus.WarnLevel},
		{name: "error", logLevel: "error", expected: logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}

			logger, closer, err := cfg.NewLogger(nil)
			require.NoError(t, err)
			defer closer.Close()

			assert.Equal(t, tt.expected, logger.GetLevel())
			assert.Equal(t, io.Discard, logger.Out)

			formatter, ok := logger.Formatter.(*logrus.TextFormatter)
			require.True(t, ok)
			assert.True(t, formatter.FullTimestamp)
			assert.Equal(t, time.RFC3339, formatter.TimestampFormat)
		})
	}
}

func TestConfig_NewLogger_Outputs(t *testing.T) {
	t.Run("writer", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := &Config{LogLevel: "info"}
		logger, closer, err := cfg.NewLogger(&buf)
		require.NoError(t, err)
		defer closer.Close()

		logger.WithField("address", "AA:BB").Info("hello")
		assert.Contains(t, buf.String(), `address="AA:BB"`)
	})

	t.Run("file wins over writer", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "blescope.log")
		var buf bytes.Buffer
		cfg := &Config{LogLevel: "info", LogFile: path}
		logger, closer, err := cfg.NewLogger(&buf)
		require.NoError(t, err)

		logger.Info("to file")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
		assert.Empty(t, buf.String())
	})

	t.Run("invalid level", func(t *testing.T) {
		_, _, err := (&Config{LogLevel: "loud"}).NewLogger(nil)
		assert.Error(t, err)
	})
}
