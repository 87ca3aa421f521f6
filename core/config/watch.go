package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the configuration whenever one of the files returned by
// Paths is written, created or renamed. It blocks until ctx is done or Close
// is called. Directories that do not exist are skipped.
func (m *Manager) Watch(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	targets := make(map[string]struct{})
	for _, path := range m.Paths() {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		dir := filepath.Dir(abs)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			logger.Warn("config watch skipped", slog.String("dir", dir), slog.String("error", err.Error()))
			continue
		}
		targets[abs] = struct{}{}
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.stopWatch:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !m.isRelevant(event, targets) {
				continue
			}
			pending = time.After(reloadDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", slog.String("error", err.Error()))
		case <-pending:
			pending = nil
			if err := m.Reload(); err != nil {
				logger.Error("config reload failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("config reloaded")
		}
	}
}

func (m *Manager) isRelevant(event fsnotify.Event, targets map[string]struct{}) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := targets[abs]
	return ok
}
