// Package config loads Codedrift configuration from file, environment
// variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Sumatoshi-tech/codedrift/internal/observability"
	"github.com/Sumatoshi-tech/codedrift/internal/storage"
	"github.com/Sumatoshi-tech/codedrift/pkg/engine"
)

// Config is the top-level configuration struct for codedrift.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Engine    engine.Config   `mapstructure:"engine"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// StorageConfig holds event store settings.
type StorageConfig struct {
	// Path is the badger database directory.
	Path string `mapstructure:"path"`

	// SyncWrites forces an fsync on every store commit.
	SyncWrites bool `mapstructure:"sync_writes"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	// Level is the minimum severity: debug, info, warn, or error.
	Level string `mapstructure:"level"`

	// JSON enables JSON-formatted log output.
	JSON bool `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables export.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// OTLPInsecure disables TLS for the OTLP connection.
	OTLPInsecure bool `mapstructure:"otlp_insecure"`

	// SampleRatio is the trace sampling ratio, 0 to 1.
	SampleRatio float64 `mapstructure:"sample_ratio"`

	// Environment is the deployment environment reported on telemetry.
	Environment string `mapstructure:"environment"`

	// MetricsAddr is the listen address for the diagnostics HTTP server
	// (/healthz, /readyz, /metrics). Empty disables it.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// ErrInvalidLogLevel indicates an unrecognized log level name.
var ErrInvalidLogLevel = errors.New("log.level must be one of debug, info, warn, error")

// Validate checks cross-field constraints and normalizes engine settings.
func (c *Config) Validate() error {
	c.Engine.Validate()

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	return nil
}

// LogLevel parses the configured level name into a slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: got %q", ErrInvalidLogLevel, c.Log.Level)
	}
}

// StoreConfig builds the badger store configuration, logging through the
// given logger.
func (c *Config) StoreConfig(log *slog.Logger) storage.Config {
	cfg := storage.DefaultConfig(c.Storage.Path)
	cfg.SyncWrites = c.Storage.SyncWrites
	cfg.Logger = log

	return cfg
}

// ObservabilityConfig builds the telemetry configuration for the given
// application mode and binary version.
func (c *Config) ObservabilityConfig(mode observability.AppMode, version string) observability.Config {
	level, _ := c.LogLevel()

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Mode = mode
	cfg.Environment = c.Telemetry.Environment
	cfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	cfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	cfg.SampleRatio = c.Telemetry.SampleRatio
	cfg.LogLevel = level
	cfg.LogJSON = c.Log.JSON

	return cfg
}
