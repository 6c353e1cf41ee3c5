package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/GoCodeAlone/split-go-core/internal/logging"
)

// Watcher watches a config file on disk and reloads it on write events,
// handing the refreshed Config to every registered listener. It only
// ever touches the local tunables above, never flag or segment data, so
// a host can push new refresh rates into running polling tasks without
// a process restart.
type Watcher struct {
	path    string
	loader  func(string) (Config, error)
	logger  logging.Logger
	watcher *fsnotify.Watcher

	mu        sync.Mutex
	listeners []func(Config)

	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher builds a Watcher for the config file at path. The file
// format is inferred from its extension (.yaml/.yml or .toml).
func NewWatcher(path string, logger logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	loader := loaderFor(path)
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: new fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("config: watch dir %s: %w", dir, err)
	}
	return &Watcher{
		path:    path,
		loader:  loader,
		logger:  logger,
		watcher: fsw,
		done:    make(chan struct{}),
	}, nil
}

func loaderFor(path string) func(string) (Config, error) {
	if strings.HasSuffix(path, ".toml") {
		return LoadTOML
	}
	return LoadYAML
}

// OnChange registers fn to be called with the freshly loaded Config
// every time the watched file changes and reloads successfully.
func (w *Watcher) OnChange(fn func(Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Start runs the watch loop until Stop is called. It is meant to run in
// its own goroutine.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := w.loader(w.path)
			if err != nil {
				w.logger.Warn("config reload failed", "operation", "config.Watcher.Start", "path", w.path, "error", err)
				continue
			}
			w.logger.Info("config reloaded", "operation", "config.Watcher.Start", "path", w.path)
			w.notify(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "operation", "config.Watcher.Start", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) notify(cfg Config) {
	w.mu.Lock()
	listeners := make([]func(Config), len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
}

// Stop terminates the watch loop and releases the underlying fsnotify
// handle.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
}
