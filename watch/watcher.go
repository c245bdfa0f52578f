// Package watch recompiles a grammar when its file changes.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/logger"
)

// DefaultDebounce coalesces the burst of events editors emit for one save
const DefaultDebounce = 500 * time.Millisecond

// ChangeCallback is called with the watched path after it changed.
// Errors are logged; watching continues.
type ChangeCallback func(path string) error

// Watcher watches one file for changes and triggers callbacks
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	log      *zap.SugaredLogger
	debounce time.Duration

	mu            sync.Mutex
	callbacks     []ChangeCallback
	debounceTimer *time.Timer
	started       bool
	stopped       bool
	inflight      sync.WaitGroup
	done          chan struct{}
}

// New creates a watcher for path. The parent directory is watched so that
// editors replacing the file through a rename are still seen.
func New(path string, debounce time.Duration, log *zap.SugaredLogger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", path)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", filepath.Dir(abs))
	}

	return &Watcher{
		path:     abs,
		watcher:  fw,
		log:      logger.OrNop(log),
		debounce: debounce,
		done:     make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched
func (w *Watcher) Path() string {
	return w.path
}

// OnChange registers a callback to be called after each debounced change
func (w *Watcher) OnChange(callback ChangeCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start begins watching in the background
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	go w.watchLoop()
}

// Run watches until ctx is done, then stops the watcher
func (w *Watcher) Run(ctx context.Context) error {
	w.Start()
	select {
	case <-ctx.Done():
	case <-w.done:
	}
	return w.Stop()
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debugw("Watcher detected change",
				logger.FieldFile, event.Name,
				"op", event.Op.String())
			w.scheduleChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnw("Watcher error", logger.FieldError, err)
		}
	}
}

// scheduleChange debounces rapid file changes
func (w *Watcher) scheduleChange() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.inflight.Add(1)
	defer w.inflight.Done()
	callbacks := make([]ChangeCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.log.Infow("Grammar changed", logger.FieldFile, w.path)
	for _, callback := range callbacks {
		if err := callback(w.path); err != nil {
			// Continue calling other callbacks even if one fails
			w.log.Warnw("Change callback failed", logger.FieldError, err)
		}
	}
}

// Stop stops watching and waits for running callbacks; pending debounced changes are dropped
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	if started {
		<-w.done
	}
	w.inflight.Wait()
	return err
}
