package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config represents the daemon configuration file (config.toml in the data dir).
type Config struct {
	// ServerURL is the base URL of the Paperless-ngx server, e.g.
	// https://paperless.example.com (no trailing /api).
	ServerURL string `toml:"server_url" validate:"required,url"`
	// Token is the API token used for all requests. Obtainable via
	// api.Client.Login or configured directly (required for 2FA accounts).
	Token string `toml:"token" validate:"required"`
	// DataDir holds the sync database, logs and staged uploads.
	DataDir string `toml:"data_dir"`

	// MaxRetries bounds upload re-dispatch for failed queue items.
	MaxRetries int `toml:"max_retries" validate:"gte=0"`
	// RetentionDays is the sync history retention window.
	RetentionDays int `toml:"retention_days" validate:"gte=1"`
	// ProbeIntervalSec is how often the connectivity monitor probes the server.
	ProbeIntervalSec int `toml:"probe_interval_sec" validate:"gte=1"`
	// UploadIntervalSec is how often the upload worker polls the queue.
	UploadIntervalSec int `toml:"upload_interval_sec" validate:"gte=1"`
	// RequestTimeoutSec is the per-request HTTP timeout.
	RequestTimeoutSec int `toml:"request_timeout_sec" validate:"gte=1"`

	// InsecureSkipVerify disables TLS certificate verification for
	// self-signed Paperless installs.
	InsecureSkipVerify bool `toml:"insecure_skip_verify"`
}

// Default returns a config with all tunables at their defaults.
// ServerURL and Token must still be filled in.
func Default() *Config {
	return &Config{
		MaxRetries:        3,
		RetentionDays:     30,
		ProbeIntervalSec:  15,
		UploadIntervalSec: 5,
		RequestTimeoutSec: 60,
	}
}

// ProbeInterval returns the connectivity probe interval as a duration.
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalSec) * time.Second
}

// UploadInterval returns the upload worker poll interval as a duration.
func (c *Config) UploadInterval() time.Duration {
	return time.Duration(c.UploadIntervalSec) * time.Second
}

// RequestTimeout returns the HTTP request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// Retention returns the sync history retention window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

var validate = validator.New()

// Load reads and validates config from the given path. Missing tunables
// fall back to defaults before validation.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
