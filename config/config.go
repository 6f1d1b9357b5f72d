// Package config loads the cache engine's configuration: the base cache
// directory, the container extension, and telemetry settings. Configuration
// is an explicit value passed into constructors; nothing here is process
// global, and nothing is read at import time.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/jonwraymond/boxcache/observe"
)

// Config errors.
var (
	ErrInvalid    = errors.New("config: invalid config file")
	ErrEmptyCache = errors.New("config: cache_dir cannot be empty")
)

// Telemetry configures the observe subsystem.
type Telemetry struct {
	TracingExporter string  `json:"tracing_exporter,omitempty"`
	MetricsExporter string  `json:"metrics_exporter,omitempty"`
	LogLevel        string  `json:"log_level,omitempty"`
	SamplePct       float64 `json:"sample_pct,omitempty"`
}

// Observe translates the telemetry settings into the observe subsystem's
// configuration. An exporter left empty or set to "none" leaves that
// subsystem disabled; logging is always on at the configured level.
func (t Telemetry) Observe(service, version string) observe.Config {
	return observe.Config{
		ServiceName: service,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   exporterEnabled(t.TracingExporter),
			Exporter:  t.TracingExporter,
			SamplePct: t.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  exporterEnabled(t.MetricsExporter),
			Exporter: t.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   t.LogLevel,
		},
	}
}

func exporterEnabled(name string) bool {
	return name != "" && name != "none"
}

// Config holds all configuration options.
type Config struct {
	CacheDir  string    `json:"cache_dir"`
	Ext       string    `json:"ext,omitempty"`
	Telemetry Telemetry `json:"telemetry,omitempty"`
}

// Default returns the default configuration. The cache directory has no
// default on purpose; it must come from a config file or the caller.
func Default() Config {
	return Config{
		Ext: "box",
		Telemetry: Telemetry{
			LogLevel: "info",
		},
	}
}

// Load reads a HuJSON config file (comments and trailing commas allowed),
// merges it over the defaults, and expands ${VAR} references in the cache
// directory. Missing referenced variables are an error, not an empty string.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}

	cfg.CacheDir, err = ExpandEnvStrict(cfg.CacheDir)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.CacheDir == "" {
		return ErrEmptyCache
	}
	return nil
}
