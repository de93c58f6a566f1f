package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration, loaded from YAML.
// Per-endpoint merge behaviour lives in JSON config documents (see
// document.go); this struct only covers process-level settings.
type Config struct {
	// Listen is the HTTP listen address for the merged-calendar endpoints.
	Listen string `yaml:"listen" json:"listen"`

	// ConfigDir is the directory holding per-endpoint JSON documents
	// (<name>.json).
	ConfigDir string `yaml:"config_dir" json:"config_dir"`

	// FetchTimeoutSeconds bounds a single remote feed fetch.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds" json:"fetch_timeout_seconds"`

	// Prewarm is a cron expression for the background cache refresh of
	// cached feeds. Empty disables prewarming.
	Prewarm string `yaml:"prewarm" json:"prewarm"`

	// Stamp appends a "Downloaded at"/"Cached at" line to each emitted
	// event description. Defaults to true.
	Stamp *bool `yaml:"stamp" json:"stamp"`

	// LogLevel is one of "debug", "info", "error".
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	stamp := true
	return &Config{
		Listen:              "127.0.0.1:8088",
		ConfigDir:           "./config",
		FetchTimeoutSeconds: 15,
		Prewarm:             "",
		Stamp:               &stamp,
		LogLevel:            "info",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8088"
	}
	if c.ConfigDir == "" {
		c.ConfigDir = "./config"
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = 15
	}
	if c.Stamp == nil {
		stamp := true
		c.Stamp = &stamp
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// StampEnabled reports whether the description stamp line is on.
func (c *Config) StampEnabled() bool {
	return c.Stamp == nil || *c.Stamp
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600,
// parent created as needed) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Return cfg with the error so the caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".icsfusion-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
