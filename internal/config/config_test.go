package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadEmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DownloadDir != "downloads" || cfg.Attempts != 3 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"download-dir": "media",
		"direct-link": true,
		"attempts": 5,
		"pacer-min-millis": 500,
		"pacer-max-millis": 900,
		"workers": 8,
		"direct-resolver-binary": "custom-dlp",
		"log-level": "debug"
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DownloadDir != "media" || !cfg.DirectLink || cfg.Attempts != 5 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.PacerMin() != 500*time.Millisecond || cfg.PacerMax() != 900*time.Millisecond {
		t.Fatalf("pacer bounds wrong: %+v", cfg)
	}
	if cfg.Workers != 8 || cfg.DirectResolverBinary != "custom-dlp" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	// Unspecified fields keep their defaults.
	if cfg.SocketTimeoutSeconds != 15 || cfg.DirectResolverTimeoutSeconds != 30 {
		t.Fatalf("defaults lost for unset fields: %+v", cfg)
	}
}

func TestLoadMalformedIsError(t *testing.T) {
	path := writeConfig(t, `{not json`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestClampRepairsInvalidValues(t *testing.T) {
	path := writeConfig(t, `{
		"attempts": -1,
		"workers": 1000,
		"pacer-min-millis": 2000,
		"pacer-max-millis": 100
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Attempts != 3 {
		t.Fatalf("negative attempts must reset, got %d", cfg.Attempts)
	}
	if cfg.Workers != 32 {
		t.Fatalf("workers must cap at 32, got %d", cfg.Workers)
	}
	if cfg.PacerMaxMillis != cfg.PacerMinMillis {
		t.Fatalf("inverted pacer bounds must collapse, got %+v", cfg)
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := Default()
	if cfg.BackoffSeed() != time.Second {
		t.Fatalf("unexpected backoff seed %v", cfg.BackoffSeed())
	}
	if cfg.SocketTimeout() != 15*time.Second {
		t.Fatalf("unexpected socket timeout %v", cfg.SocketTimeout())
	}
	if cfg.DirectResolverTimeout() != 30*time.Second {
		t.Fatalf("unexpected resolver timeout %v", cfg.DirectResolverTimeout())
	}
}
