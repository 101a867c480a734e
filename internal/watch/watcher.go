// Package watch reloads the event log when its source file changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher monitors the event log file and triggers a reload after a burst of
// writes settles.
type Watcher struct {
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func(ctx context.Context) error

	mu           sync.Mutex
	lastModified time.Time
	size         int64
}

// NewWatcher starts watching the directory containing path. The onChange
// callback runs once per settled burst.
func NewWatcher(logger *slog.Logger, path string, onChange func(ctx context.Context) error) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return nil, fmt.Errorf("watch path is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	stat, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", absPath, err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watching the parent directory survives editors that replace the file.
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	return &Watcher{
		logger:       logger,
		watcher:      fsWatcher,
		path:         absPath,
		debounce:     defaultDebounce,
		onChange:     onChange,
		lastModified: stat.ModTime(),
		size:         stat.Size(),
	}, nil
}

// Run blocks until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)

	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			absPath, err := filepath.Abs(event.Name)
			if err != nil || absPath != w.path {
				continue
			}

			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				w.handleChange(ctx)
			})
			timerMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) handleChange(ctx context.Context) {
	stat, err := os.Stat(w.path)
	if err != nil {
		w.logger.Warn("stat watched file", slog.Any("error", err))
		return
	}

	w.mu.Lock()
	unchanged := stat.ModTime().Equal(w.lastModified) && stat.Size() == w.size
	if !unchanged {
		w.lastModified = stat.ModTime()
		w.size = stat.Size()
	}
	w.mu.Unlock()
	if unchanged || w.onChange == nil {
		return
	}

	if err := w.onChange(ctx); err != nil {
		w.logger.Error("reload after change failed", slog.Any("error", err))
		return
	}
	w.logger.Info("event log file changed, reloaded", slog.String("path", w.path))
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
