package bridge

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherClosed is returned when registering paths on a closed bridge.
var ErrWatcherClosed = errors.New("file bridge is closed")

const (
	// debounceInterval is how long a path must stay quiet before its change
	// is delivered. Editors and atomic saves produce bursts of events.
	debounceInterval = 100 * time.Millisecond

	// debounceTick is how often pending paths are checked for delivery.
	debounceTick = 50 * time.Millisecond
)

// watchEntry tracks one watched file.
type watchEntry struct {
	// registered is the path as the caller supplied it, delivered back on
	// change so caller-side keying keeps working.
	registered string
	refs       int
}

// watcher multiplexes fsnotify events to per-path subscribers. Files are
// watched through their parent directory: an atomic save replaces the inode,
// which would silently kill a direct file watch.
type watcher struct {
	fs     *fsnotify.Watcher
	logger *zap.Logger

	mu       sync.Mutex
	paths    map[string]*watchEntry // absolute file path -> entry
	dirs     map[string]int         // watched directory -> file count
	pending  map[string]time.Time   // absolute file path -> last event
	handlers map[int]ChangeHandler
	nextID   int
	closed   bool

	debounce time.Duration
	done     chan struct{}
}

func newWatcher(logger *zap.Logger) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &watcher{
		fs:       fs,
		logger:   logger,
		paths:    make(map[string]*watchEntry),
		dirs:     make(map[string]int),
		pending:  make(map[string]time.Time),
		handlers: make(map[int]ChangeHandler),
		debounce: debounceInterval,
		done:     make(chan struct{}),
	}

	go w.processEvents()
	go w.processPending()

	return w, nil
}

func (w *watcher) watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	if entry, ok := w.paths[absPath]; ok {
		entry.refs++
		return nil
	}

	dir := filepath.Dir(absPath)
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch directory: %w", err)
		}
	}
	w.dirs[dir]++
	w.paths[absPath] = &watchEntry{registered: path, refs: 1}

	w.logger.Debug("watching file", zap.String("path", absPath))
	return nil
}

func (w *watcher) unwatch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.paths[absPath]
	if !ok {
		return nil
	}
	entry.refs--
	if entry.refs > 0 {
		return nil
	}

	delete(w.paths, absPath)
	delete(w.pending, absPath)

	dir := filepath.Dir(absPath)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if !w.closed {
			if err := w.fs.Remove(dir); err != nil {
				w.logger.Debug("remove directory watch",
					zap.String("dir", dir), zap.Error(err))
			}
		}
	}
	return nil
}

func (w *watcher) subscribe(handler ChangeHandler) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.handlers[id] = handler
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.handlers, id)
		w.mu.Unlock()
	}
}

func (w *watcher) close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	return w.fs.Close()
}

// processEvents records fsnotify events for watched files. Any operation on
// the file counts as a change: writes, atomic renames landing as creates,
// and removals all mean the caller should re-read.
func (w *watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			name := filepath.Clean(event.Name)

			w.mu.Lock()
			if _, watched := w.paths[name]; watched {
				w.pending[name] = time.Now()
			}
			w.mu.Unlock()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// processPending delivers debounced changes to subscribers.
func (w *watcher) processPending() {
	ticker := time.NewTicker(debounceTick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var ready []string
			for path, at := range w.pending {
				if now.Sub(at) >= w.debounce {
					if entry, ok := w.paths[path]; ok {
						ready = append(ready, entry.registered)
					}
					delete(w.pending, path)
				}
			}
			handlers := make([]ChangeHandler, 0, len(w.handlers))
			for _, h := range w.handlers {
				handlers = append(handlers, h)
			}
			w.mu.Unlock()

			// Handlers run outside the lock so they can call back into
			// the bridge.
			for _, path := range ready {
				w.logger.Debug("file changed", zap.String("path", path))
				for _, h := range handlers {
					h(path)
				}
			}
		}
	}
}
