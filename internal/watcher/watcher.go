// Package watcher reports changes to a set of log files.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/source"
)

// Event represents a file change detected by the watcher.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher monitors files for changes using OS-level notifications.
type Watcher struct {
	fsw    *fsnotify.Watcher
	events chan Event
	log    *slog.Logger

	mu    sync.RWMutex
	paths []string
}

// New expands patterns (files, directories or globs) and watches every match.
// Paths that cannot be watched are logged and skipped.
func New(patterns []string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	files, err := source.Expand(patterns)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:    fsw,
		events: make(chan Event, 256),
		log:    logger,
	}
	for _, f := range files {
		if f == source.Stdin {
			logger.Warn("standard input cannot be watched; skipping")
			continue
		}
		if err := w.Add(f); err != nil {
			logger.Warn("cannot watch file", "path", f, "error", err)
		}
	}
	return w, nil
}

// Events returns the channel of relevant changes. It is closed when Start returns.
func (w *Watcher) Events() <-chan Event { return w.events }

// Start forwards write, create, remove and rename events until ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.events)

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&relevant == 0 {
				continue
			}
			select {
			case w.events <- Event{Path: ev.Name, Op: ev.Op}:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}

// Paths returns the files being watched.
func (w *Watcher) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.paths))
	copy(out, w.paths)
	return out
}

// Add watches path, e.g. again after rotation.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.fsw.Add(abs); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.paths {
		if p == abs {
			return nil
		}
	}
	w.paths = append(w.paths, abs)
	return nil
}
