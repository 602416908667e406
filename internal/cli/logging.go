package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shayne-snap/traindash/internal/config"
	"github.com/shayne-snap/traindash/internal/download"
)

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(lc config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(lc.Level)}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newFileLogger logs to logging.file (default: user config dir/traindash/traindash.log) so
// the TUI's alternate screen stays clean. Falls back to discarding logs.
func newFileLogger(lc config.LoggingConfig) (*slog.Logger, func()) {
	path := lc.File
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return newLogger(lc, io.Discard), func() {}
		}
		path = filepath.Join(dir, "traindash", "traindash.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return newLogger(lc, io.Discard), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return newLogger(lc, io.Discard), func() {}
	}
	return newLogger(lc, f), func() { _ = f.Close() }
}

func policyFromConfig(d config.DownloadConfig) download.Policy {
	p := download.Policy{
		InitialDelay: d.InitialDelay(),
		Interval:     d.Interval(),
		MaxInterval:  d.MaxInterval(),
		Backoff:      d.Backoff,
		MaxPolls:     d.MaxPolls,
		HideAfter:    d.HideAfter(),
	}
	if p.Interval <= 0 {
		p.Interval = 2 * time.Second
	}
	return p
}
