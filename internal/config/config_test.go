package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error: %v", err)
	}
	if cfg.Server.BaseURL != "http://localhost:5000" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if got := cfg.Download.InitialDelay(); got != 2*time.Second {
		t.Errorf("InitialDelay = %v, want 2s", got)
	}
	if got := cfg.Download.Interval(); got != 2*time.Second {
		t.Errorf("Interval = %v, want 2s", got)
	}
	if got := cfg.Download.HideAfter(); got != 5*time.Second {
		t.Errorf("HideAfter = %v, want 5s", got)
	}
	if cfg.Download.Backoff != 1 {
		t.Errorf("Backoff = %v, want 1", cfg.Download.Backoff)
	}
	if cfg.LogStream.BufferLines != 1000 {
		t.Errorf("BufferLines = %d, want 1000", cfg.LogStream.BufferLines)
	}
	if cfg.Training.BatchSize != 64 || cfg.Training.Steps != 10000 {
		t.Errorf("Training = %+v", cfg.Training)
	}
}

func TestParse_Overrides(t *testing.T) {
	raw := []byte(`
server:
  base_url: https://dash.example.com/
download:
  interval_ms: 500
  max_interval_ms: 100
  backoff: 0.5
models:
  - path: /models/org-tiny
  - name: Big
    path: /models/org-big
`)
	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Server.BaseURL != "https://dash.example.com" {
		t.Errorf("BaseURL trailing slash not trimmed: %q", cfg.Server.BaseURL)
	}
	if cfg.Download.MaxIntervalMs != 500 {
		t.Errorf("MaxIntervalMs = %d, want clamped to 500", cfg.Download.MaxIntervalMs)
	}
	if cfg.Download.Backoff != 1 {
		t.Errorf("Backoff = %v, want raised to 1", cfg.Download.Backoff)
	}
	if cfg.Download.InitialDelayMs != 2000 {
		t.Errorf("InitialDelayMs = %d, want embedded default kept", cfg.Download.InitialDelayMs)
	}
	if len(cfg.Models) != 2 || cfg.Models[0].Name != "org-tiny" || cfg.Models[1].Name != "Big" {
		t.Errorf("Models = %+v", cfg.Models)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bad url", "server:\n  base_url: ftp://x\n", "base_url"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"model without path", "models:\n  - name: x\n", "path is required"},
		{"negative polls", "download:\n  max_polls: -1\n", "must not be negative"},
		{"not yaml", "server: [", "parsing config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			if err == nil {
				t.Fatal("Parse: want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoad_ExplicitPathAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  base_url: http://a:1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvServer, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Path() != path || cfg.Server.BaseURL != "http://a:1" {
		t.Errorf("Load = path %q base %q", cfg.Path(), cfg.Server.BaseURL)
	}

	t.Setenv(EnvServer, "http://b:2")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.BaseURL != "http://b:2" {
		t.Errorf("env override: BaseURL = %q", cfg.Server.BaseURL)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load(missing explicit path): want error")
	}
}

func TestSetServer_KeepsPreviousOnError(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetServer("not a url"); err == nil {
		t.Fatal("SetServer(invalid): want error")
	}
	if cfg.Server.BaseURL != "http://localhost:5000" {
		t.Errorf("BaseURL changed to %q after failed SetServer", cfg.Server.BaseURL)
	}
}
