// Package config loads the traindash client configuration (YAML, with embedded defaults).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shayne-snap/traindash/data"

	"gopkg.in/yaml.v3"
)

// EnvServer overrides server.base_url when set.
const EnvServer = "TRAINDASH_SERVER"

type ServerConfig struct {
	BaseURL           string `yaml:"base_url"`            // Dashboard backend root (e.g. "http://localhost:5000")
	RequestTimeoutSec int    `yaml:"request_timeout_sec"` // Timeout for status and train requests (0 = none)
}

type LogStreamConfig struct {
	BufferLines int `yaml:"buffer_lines"` // Max log lines kept in the view
	RetryMs     int `yaml:"retry_ms"`     // Reconnect delay until the server sends retry:
}

type DownloadConfig struct {
	InitialDelayMs int     `yaml:"initial_delay_ms"` // Wait between POST completion and first poll
	IntervalMs     int     `yaml:"interval_ms"`      // Wait between polls
	MaxIntervalMs  int     `yaml:"max_interval_ms"`  // Backoff ceiling
	Backoff        float64 `yaml:"backoff"`          // Interval multiplier per poll (1 = fixed)
	MaxPolls       int     `yaml:"max_polls"`        // Poll budget per download
	HideAfterMs    int     `yaml:"hide_after_ms"`    // Hide the success message after this long
}

type TrainingConfig struct {
	LR        float64 `yaml:"lr"`
	Steps     int     `yaml:"steps"`
	BatchSize int     `yaml:"batch_size"`
}

type LoggingConfig struct {
	Format string `yaml:"format"` // "json" or "text" (default "text")
	Level  string `yaml:"level"`  // debug, info, warn, error
	File   string `yaml:"file"`   // Log file used while the TUI owns the terminal
}

// ModelEntry is one trainable model known to the dashboard (name shown, path sent to /train).
type ModelEntry struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LogStream LogStreamConfig `yaml:"log_stream"`
	Download  DownloadConfig  `yaml:"download"`
	Training  TrainingConfig  `yaml:"training"`
	Logging   LoggingConfig   `yaml:"logging"`
	Models    []ModelEntry    `yaml:"models"`

	path string
}

// Path returns the file the config was loaded from, or "" for embedded defaults.
func (c *Config) Path() string { return c.path }

// DefaultPath returns the user config file path (XDG-style: config dir/traindash/config.yaml).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "traindash", "config.yaml"), nil
}

// Load reads path (or DefaultPath when empty). A missing default file falls back to the
// embedded defaults; a missing explicit path is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	var raw []byte
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			raw = b
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			path = ""
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	cfg.path = path
	if v := strings.TrimSpace(os.Getenv(EnvServer)); v != "" {
		if err := cfg.SetServer(v); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Parse decodes YAML over the embedded defaults, fills zero values and validates.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data.DefaultConfigYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogStream.BufferLines == 0 {
		c.LogStream.BufferLines = 1000
	}
	if c.LogStream.RetryMs == 0 {
		c.LogStream.RetryMs = 3000
	}
	if c.Download.IntervalMs == 0 {
		c.Download.IntervalMs = 2000
	}
	if c.Download.MaxIntervalMs < c.Download.IntervalMs {
		c.Download.MaxIntervalMs = c.Download.IntervalMs
	}
	if c.Download.Backoff < 1 {
		c.Download.Backoff = 1
	}
	if c.Training.LR == 0 {
		c.Training.LR = 0.0003
	}
	if c.Training.Steps == 0 {
		c.Training.Steps = 10000
	}
	if c.Training.BatchSize == 0 {
		c.Training.BatchSize = 64
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.base_url %q: must be an http(s) URL", c.Server.BaseURL)
	}
	if c.Download.InitialDelayMs < 0 || c.Download.MaxPolls < 0 || c.Download.HideAfterMs < 0 {
		return fmt.Errorf("download: delays and max_polls must not be negative")
	}
	if c.LogStream.BufferLines < 0 {
		return fmt.Errorf("log_stream.buffer_lines must not be negative")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q: want text or json", c.Logging.Format)
	}
	for i, m := range c.Models {
		if strings.TrimSpace(m.Path) == "" {
			return fmt.Errorf("models[%d] (%s): path is required", i, m.Name)
		}
		if m.Name == "" {
			c.Models[i].Name = filepath.Base(m.Path)
		}
	}
	return nil
}

// SetServer replaces server.base_url after validating it.
func (c *Config) SetServer(baseURL string) error {
	prev := c.Server.BaseURL
	c.Server.BaseURL = strings.TrimRight(baseURL, "/")
	if err := c.Validate(); err != nil {
		c.Server.BaseURL = prev
		return err
	}
	return nil
}

func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSec) * time.Second
}

func (l LogStreamConfig) Retry() time.Duration { return ms(l.RetryMs) }

func (d DownloadConfig) InitialDelay() time.Duration { return ms(d.InitialDelayMs) }
func (d DownloadConfig) Interval() time.Duration     { return ms(d.IntervalMs) }
func (d DownloadConfig) MaxInterval() time.Duration  { return ms(d.MaxIntervalMs) }
func (d DownloadConfig) HideAfter() time.Duration    { return ms(d.HideAfterMs) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
