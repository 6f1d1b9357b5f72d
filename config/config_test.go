package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boxcache.hujson")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_HuJSONWithCommentsAndTrailingCommas(t *testing.T) {
	path := writeConfig(t, `{
		// shared cache on the scratch filesystem
		"cache_dir": "/scratch/boxes",
		"ext": "h5",
		"telemetry": {
			"log_level": "debug",
			"metrics_exporter": "prometheus",
		},
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CacheDir != "/scratch/boxes" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.Ext != "h5" {
		t.Errorf("Ext = %q, want h5", cfg.Ext)
	}
	if cfg.Telemetry.LogLevel != "debug" || cfg.Telemetry.MetricsExporter != "prometheus" {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
}

func TestLoad_DefaultsSurviveSparseFile(t *testing.T) {
	path := writeConfig(t, `{"cache_dir": "/tmp/boxes"}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ext != "box" {
		t.Errorf("Ext = %q, want default box", cfg.Ext)
	}
	if cfg.Telemetry.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default info", cfg.Telemetry.LogLevel)
	}
}

func TestLoad_ExpandsCacheDirEnv(t *testing.T) {
	t.Setenv("BOX_SCRATCH", "/mnt/scratch")
	path := writeConfig(t, `{"cache_dir": "${BOX_SCRATCH}/boxes"}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CacheDir != "/mnt/scratch/boxes" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
}

func TestLoad_MissingEnvVarFails(t *testing.T) {
	path := writeConfig(t, `{"cache_dir": "${BOX_NO_SUCH_VAR}/boxes"}`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "BOX_NO_SUCH_VAR") {
		t.Errorf("Load() error = %v, want missing-variable error naming the key", err)
	}
}

func TestLoad_EmptyCacheDirFails(t *testing.T) {
	path := writeConfig(t, `{"ext": "box"}`)

	if _, err := Load(path); !errors.Is(err, ErrEmptyCache) {
		t.Errorf("Load() error = %v, want ErrEmptyCache", err)
	}
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := writeConfig(t, `{"cache_dir": `)

	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("Load() error = %v, want ErrInvalid", err)
	}
}

func TestTelemetry_ObserveMapping(t *testing.T) {
	tel := Telemetry{
		TracingExporter: "stdout",
		MetricsExporter: "none",
		LogLevel:        "debug",
		SamplePct:       0.25,
	}

	oc := tel.Observe("boxcache", "1.0")

	if oc.ServiceName != "boxcache" || oc.Version != "1.0" {
		t.Errorf("service identity = %q/%q", oc.ServiceName, oc.Version)
	}
	if !oc.Tracing.Enabled || oc.Tracing.Exporter != "stdout" || oc.Tracing.SamplePct != 0.25 {
		t.Errorf("tracing = %+v, want enabled stdout at 0.25", oc.Tracing)
	}
	if oc.Metrics.Enabled {
		t.Error("a metrics exporter of none must leave metrics disabled")
	}
	if !oc.Logging.Enabled || oc.Logging.Level != "debug" {
		t.Errorf("logging = %+v, want enabled at debug", oc.Logging)
	}

	if err := oc.Validate(); err != nil {
		t.Errorf("mapped config should validate: %v", err)
	}

	// Defaults map to a validating config with everything but logging off.
	oc = Default().Telemetry.Observe("boxcache", "1.0")
	if oc.Tracing.Enabled || oc.Metrics.Enabled {
		t.Error("default telemetry must not enable exporters")
	}
	if err := oc.Validate(); err != nil {
		t.Errorf("default mapping should validate: %v", err)
	}
}

func TestExpandEnvStrict_DollarEscape(t *testing.T) {
	got, err := ExpandEnvStrict("/data/$$literal")
	if err != nil {
		t.Fatalf("ExpandEnvStrict() error = %v", err)
	}
	if got != "/data/$literal" {
		t.Errorf("ExpandEnvStrict() = %q, want /data/$literal", got)
	}
}
