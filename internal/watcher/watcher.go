// Package watcher watches a content tree for changes and fires a
// debounced callback, so the development server can recompile and
// re-shelve a site as its modules are edited.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Filter reports whether a changed path is interesting.
type Filter func(path string) bool

// Handler receives the batch of changed paths after debouncing.
type Handler func(paths []string)

// Watcher watches directories recursively and coalesces bursts of change
// events into one handler call.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	filter   Filter
	handler  Handler

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

// New creates a watcher. A nil filter accepts every path.
func New(debounce time.Duration, filter Filter, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		filter:   filter,
		handler:  handler,
		pending:  make(map[string]struct{}),
	}, nil
}

// AddRecursive watches root and every directory beneath it.
func (w *Watcher) AddRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Start processes filesystem events until the context is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			// New directories must be added so descendants are seen.
			if event.Op.Has(fsnotify.Create) {
				_ = w.AddRecursive(event.Name)
			}
			if w.filter(event.Name) {
				w.record(event.Name)
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
		}
	}
}

func (w *Watcher) record(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(paths) > 0 {
		w.handler(paths)
	}
}
