// Package watch monitors the traps folder and feeds newly landed files
// into the pipeline as they arrive.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors one directory for trap files being dropped in.
type Watcher struct {
	watcher   *fsnotify.Watcher
	dir       string
	extension string
	debounce  time.Duration
	mu        sync.Mutex
	pending   map[string]*time.Timer

	// OnFile is called once per settled file, from the watch goroutine.
	OnFile func(path string)

	// OnError receives watch backend errors.
	OnError func(err error)
}

// NewWatcher creates a watcher over dir for files with the given
// extension. Equipment uploads arrive via FTP, so events are debounced
// until writes stop before the file is handed on.
func NewWatcher(dir, extension string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := fsWatcher.Add(absDir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", absDir, err)
	}

	return &Watcher{
		watcher:   fsWatcher,
		dir:       absDir,
		extension: extension,
		debounce:  2 * time.Second,
		pending:   make(map[string]*time.Timer),
	}, nil
}

// Run blocks dispatching file events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.Close()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !w.wanted(event.Name) {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError(err)
			}
		}
	}
}

// wanted filters directory noise down to importable trap files.
func (w *Watcher) wanted(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), w.extension) {
		return false
	}
	stat, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !stat.IsDir()
}

// schedule (re)arms the per-file debounce timer. Each write event
// pushes the deadline out, so the callback fires only after the upload
// goes quiet.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.pending[path]; exists {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if _, err := os.Stat(path); err != nil {
			// file vanished between the event and the deadline
			return
		}
		if w.OnFile != nil {
			w.OnFile(path)
		}
	})
}

// Close stops the watcher and drops any pending timers.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
