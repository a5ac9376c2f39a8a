package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Runtime holds the settings that may be rotated without a restart.
type Runtime struct {
	UpdateSecret   string   `json:"updateSecret"`
	AllowedOrigins []string `json:"allowedOrigins"`
}

// Load reads and validates a runtime config file.
func Load(path string) (Runtime, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Runtime{}, err
	}
	var runtime Runtime
	if err := json.Unmarshal(raw, &runtime); err != nil {
		return Runtime{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if strings.TrimSpace(runtime.UpdateSecret) == "" {
		return Runtime{}, fmt.Errorf("%s: updateSecret is required", path)
	}
	return runtime, nil
}

type Logger interface {
	Printf(format string, args ...any)
}

// Watcher keeps a Runtime loaded from a file and hot-reloads it on change.
// The containing directory is watched rather than the file itself so
// atomic-rename rewrites are picked up. A reload that fails to parse keeps
// the previous config in place.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  Logger
	current atomic.Value
	done    chan struct{}
}

func NewWatcher(path string, logger Logger) (*Watcher, error) {
	runtime, err := Load(path)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}

	w := &Watcher{
		path:    path,
		watcher: fsWatcher,
		logger:  logger,
		done:    make(chan struct{}),
	}
	w.current.Store(runtime)
	go w.loop()
	return w, nil
}

// Current returns the most recently loaded runtime config.
func (w *Watcher) Current() Runtime {
	return w.current.Load().(Runtime)
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			runtime, err := Load(w.path)
			if err != nil {
				if w.logger != nil {
					w.logger.Printf("config reload failed, keeping previous: %v", err)
				}
				continue
			}
			w.current.Store(runtime)
			if w.logger != nil {
				w.logger.Printf("config reloaded from %s", w.path)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Printf("config watcher error: %v", err)
			}
		}
	}
}
