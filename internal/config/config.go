// Package config loads pipeline settings from a JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Config is the on-disk settings shape. Zero or missing values fall
// back to defaults at load time.
type Config struct {
	DownloadDir string `json:"download-dir"`
	DirectLink  bool   `json:"direct-link"`

	Attempts             int `json:"attempts"`
	BackoffSeedSeconds   int `json:"backoff-seed-seconds"`
	SocketTimeoutSeconds int `json:"socket-timeout-seconds"`

	PacerMinMillis int `json:"pacer-min-millis"`
	PacerMaxMillis int `json:"pacer-max-millis"`

	Workers int `json:"workers"`

	DirectResolverBinary         string `json:"direct-resolver-binary"`
	DirectResolverTimeoutSeconds int    `json:"direct-resolver-timeout-seconds"`

	LogLevel string `json:"log-level"`
}

func Default() Config {
	return Config{
		DownloadDir:                  "downloads",
		Attempts:                     3,
		BackoffSeedSeconds:           1,
		SocketTimeoutSeconds:         15,
		PacerMinMillis:               1500,
		PacerMaxMillis:               3000,
		Workers:                      4,
		DirectResolverBinary:         "yt-dlp",
		DirectResolverTimeoutSeconds: 30,
		LogLevel:                     "info",
	}
}

// Load reads the config file at path. A missing file yields defaults;
// a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.clamp()
	return cfg, nil
}

func (c *Config) clamp() {
	defaults := Default()
	if c.DownloadDir == "" {
		c.DownloadDir = defaults.DownloadDir
	}
	if c.Attempts <= 0 {
		c.Attempts = defaults.Attempts
	}
	if c.BackoffSeedSeconds <= 0 {
		c.BackoffSeedSeconds = defaults.BackoffSeedSeconds
	}
	if c.SocketTimeoutSeconds <= 0 {
		c.SocketTimeoutSeconds = defaults.SocketTimeoutSeconds
	}
	if c.PacerMinMillis <= 0 {
		c.PacerMinMillis = defaults.PacerMinMillis
	}
	if c.PacerMaxMillis < c.PacerMinMillis {
		c.PacerMaxMillis = c.PacerMinMillis
	}
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.Workers > 32 {
		c.Workers = 32
	}
	if c.DirectResolverBinary == "" {
		c.DirectResolverBinary = defaults.DirectResolverBinary
	}
	if c.DirectResolverTimeoutSeconds <= 0 {
		c.DirectResolverTimeoutSeconds = defaults.DirectResolverTimeoutSeconds
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
}

func (c Config) BackoffSeed() time.Duration {
	return time.Duration(c.BackoffSeedSeconds) * time.Second
}

func (c Config) SocketTimeout() time.Duration {
	return time.Duration(c.SocketTimeoutSeconds) * time.Second
}

func (c Config) PacerMin() time.Duration {
	return time.Duration(c.PacerMinMillis) * time.Millisecond
}

func (c Config) PacerMax() time.Duration {
	return time.Duration(c.PacerMaxMillis) * time.Millisecond
}

func (c Config) DirectResolverTimeout() time.Duration {
	return time.Duration(c.DirectResolverTimeoutSeconds) * time.Second
}
