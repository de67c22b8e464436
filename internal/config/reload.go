package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadFunc re-reads watched files and swaps them in.
type ReloadFunc func() error

// Reloader watches config and catalog files and calls a ReloadFunc after
// they settle.
type Reloader struct {
	watcher *fsnotify.Watcher
	reload  ReloadFunc
	log     *zap.Logger
	paths   []string
	wait    time.Duration
}

// NewReloader creates a file watcher for the given paths. Empty and
// missing paths are skipped.
func NewReloader(paths []string, reload ReloadFunc, log *zap.Logger) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	var watched []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := watcher.Add(p); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch %q: %w", p, err)
		}
		watched = append(watched, p)
	}

	if log == nil {
		log = zap.NewNop()
	}
	return &Reloader{
		watcher: watcher,
		reload:  reload,
		log:     log,
		paths:   watched,
		wait:    500 * time.Millisecond,
	}, nil
}

// Paths returns the files actually being watched.
func (r *Reloader) Paths() []string {
	return append([]string(nil), r.paths...)
}

// Run watches for file changes and reloads. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Debounce: editors write in bursts
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				name := event.Name
				debounce = time.AfterFunc(r.wait, func() {
					if err := r.reload(); err != nil {
						r.log.Warn("hot-reload failed", zap.String("file", name), zap.Error(err))
					} else {
						r.log.Info("hot-reload applied", zap.String("file", name))
					}
				})
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("file watcher error", zap.Error(err))
		}
	}
}
