package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gosuper/gosuperd/internal/supervisor"
)

// watchDebounce absorbs editors that write a temp file then rename over
// the original, which fires more than one fs event per save.
const watchDebounce = 500 * time.Millisecond

// configWatcher is the --watch flag's backing implementation: it watches
// registry's own config path and calls registry.Reload directly on change,
// the same entry point the SIGHUP handler uses.
type configWatcher struct {
	path     string
	registry *supervisor.Registry
	logger   *slog.Logger
	fsw      *fsnotify.Watcher

	mu         sync.Mutex
	lastReload time.Time
}

func newConfigWatcher(registry *supervisor.Registry, logger *slog.Logger) (*configWatcher, error) {
	absPath, err := filepath.Abs(registry.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	return &configWatcher{
		path:     absPath,
		registry: registry,
		logger:   logger,
		fsw:      fsw,
	}, nil
}

func (w *configWatcher) start(ctx context.Context) error {
	if err := w.fsw.Add(w.path); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	w.logger.Info("config watcher started", "path", w.path, "debounce", watchDebounce)
	go w.loop(ctx)
	return nil
}

func (w *configWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("config watcher stopped")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.logger.Warn("config watcher events channel closed")
				return
			}
			// Editors that write-then-rename fire Create, not Write, for
			// the final file; a plain in-place save fires Write.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.onChange(ctx, event)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.logger.Warn("config watcher errors channel closed")
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *configWatcher) onChange(ctx context.Context, event fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if time.Since(w.lastReload) < watchDebounce {
		w.logger.Debug("config change debounced", "event", event.Op.String())
		return
	}

	changed, err := w.registry.Reload(ctx, "")
	if err != nil {
		w.logger.Error("config reload failed", "error", err)
		return
	}
	if changed {
		w.logger.Info("configuration reloaded", "path", event.Name)
	} else {
		w.logger.Debug("no configuration changes detected", "path", event.Name)
	}
	w.lastReload = time.Now()
}

func (w *configWatcher) stop() error {
	return w.fsw.Close()
}
