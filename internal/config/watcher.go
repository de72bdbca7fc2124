package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dtg01100/tn5250r-go/internal/logging"
)

// debounceWindow coalesces bursts of writes from editors that save via
// rename-then-write, matching the teacher's ConfigWatcher.watchLoop.
const debounceWindow = 500 * time.Millisecond

// Watcher reloads a Store whenever its backing file changes on disk.
type Watcher struct {
	mu      sync.Mutex
	store   *Store
	fsw     *fsnotify.Watcher
	done    chan struct{}
	stopped bool
}

// WatchStore starts watching store's backing path for changes and
// reloading it on write. Call Stop to release the fsnotify handle.
func WatchStore(store *Store) (*Watcher, error) {
	if store.path == "" {
		return nil, nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(store.path); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{store: store, fsw: fsw, done: make(chan struct{})}
	go w.watchLoop()
	return w, nil
}

func (w *Watcher) watchLoop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceWindow)
			}
			timerC = timer.C
		case <-timerC:
			if err := w.store.reload(); err != nil {
				logging.Debug("config: reload %s failed: %v", w.store.path, err)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Debug("config: watch error: %v", err)
		}
	}
}

// Stop terminates the watch loop and closes the underlying fsnotify
// handle. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.done)
	w.fsw.Close()
}
