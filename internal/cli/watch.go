package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last file event before a
// re-render starts.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changes to a fixed set of files.
//
// Parent directories are watched rather than the files themselves, since
// many editors save by writing a new file and renaming it over the old one.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	logger   *slog.Logger
}

func NewWatcher(paths []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("Creating file watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fsw,
		files:    make(map[string]bool, len(paths)),
		debounce: debounce,
		logger:   logger,
	}

	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("Watching directory '%s': %w", dir, err)
		}
		logger.Debug("Watching directory", "path", dir)
	}
	return w, nil
}

// Relevant reports whether event concerns one of the watched files.
func (w *Watcher) Relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}

// Watch calls onChange once per burst of relevant events until ctx is
// done. onChange runs on the calling goroutine, so calls never overlap.
func (w *Watcher) Watch(ctx context.Context, onChange func()) error {
	w.logger.Info("Watching for changes", "files", len(w.files), "debounce_ms", w.debounce.Milliseconds())

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("Watcher events channel closed")
			}
			if !w.Relevant(event) {
				continue
			}
			w.logger.Debug("File event detected", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("Watcher errors channel closed")
			}
			w.logger.Error("File watcher error", "error", err)

		case <-timer.C:
			w.logger.Info("Re-rendering after change")
			onChange()
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
