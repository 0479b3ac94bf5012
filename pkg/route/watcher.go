package route

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a route directory and reloads a route file whenever it is
// written or created. Planning tools rewrite route files in place; the watcher
// lets a running monitor pick up the change without a restart.
type Watcher struct {
	dir      string
	onReload func(*Route)
	onError  func(error)

	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	pending map[string]time.Time
}

// debounceWindow coalesces the burst of events editors and atomic-rename
// writers produce for a single logical save.
const debounceWindow = 250 * time.Millisecond

// NewWatcher starts watching dir for route file changes. onReload is called
// with each successfully reloaded route; onError receives parse and watch
// failures (may be nil to discard them). Call Close to stop.
func NewWatcher(dir string, onReload func(*Route), onError func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch route directory %s: %w", dir, err)
	}

	w := &Watcher{
		dir:      dir,
		onReload: onReload,
		onError:  onError,
		fsw:      fsw,
		done:     make(chan struct{}),
		pending:  make(map[string]time.Time),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(debounceWindow)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.reportError(fmt.Errorf("route watch error: %w", err))
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

// flush reloads files whose last event is older than the debounce window.
func (w *Watcher) flush(now time.Time) {
	w.mu.Lock()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= debounceWindow {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		r, err := Load(path)
		if err != nil {
			// A half-written file fails to parse; the next write will
			// trigger another reload attempt.
			w.reportError(err)
			continue
		}
		if w.onReload != nil {
			w.onReload(r)
		}
	}
}

func (w *Watcher) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}

// WatchedDir returns the directory this watcher monitors.
func (w *Watcher) WatchedDir() string {
	return filepath.Clean(w.dir)
}
