// Package logging builds the process-wide slog logger from the log section
// of the configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adalundhe/museswarm/core/config"
	"github.com/adalundhe/museswarm/core/storage"
)

// ParseLevel maps a config level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// NewHandler returns a text or JSON handler writing to w.
func NewHandler(w io.Writer, cfg config.LogConfig) (slog.Handler, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// Setup builds the logger described by cfg and installs it as the default.
// Relative file paths are placed under the state log directory. The returned
// close function releases the log file, if any.
func Setup(cfg config.LogConfig, dirs *storage.Dirs, stderr io.Writer) (*slog.Logger, func() error, error) {
	if stderr == nil {
		stderr = os.Stderr
	}
	out := stderr
	closeFn := func() error { return nil }

	if cfg.File != "" {
		path := ResolveFile(cfg.File, dirs)
		if err := storage.EnsureStandardDir(filepath.Dir(path)); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
		closeFn = f.Close
	}

	handler, err := NewHandler(out, cfg)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

func ResolveFile(file string, dirs *storage.Dirs) string {
	if filepath.IsAbs(file) || dirs == nil {
		return file
	}
	return filepath.Join(dirs.LogDir(), file)
}
