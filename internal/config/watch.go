package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads one config file whenever it is written or replaced.
type Watcher struct {
	path     string
	defaults Config
	watcher  *fsnotify.Watcher
}

// NewWatcher watches the directory of path so editor rename-and-replace saves are seen.
func NewWatcher(path string, defaults Config) (*Watcher, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("config path is required")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}
	return &Watcher{path: filepath.Clean(path), defaults: defaults, watcher: watcher}, nil
}

// Run delivers each successfully reloaded config to onChange and load failures to onError
// until ctx is canceled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(Config), onError func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(w.path, w.defaults)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if onError != nil {
				onError(fmt.Errorf("config watcher: %w", err))
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
