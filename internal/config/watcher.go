package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/GhostDragonAlpha/Alexander-sub009/internal/telemetry"
)

// ChangeCallback receives the previous and freshly loaded configuration.
type ChangeCallback func(previous, current Config)

// Watcher reloads the configuration file on change and notifies subscribers.
// Editors often replace rather than rewrite files, so the parent directory is
// watched and events are debounced.
type Watcher struct {
	path   string
	logger telemetry.Logger

	mu        sync.RWMutex
	current   Config
	callbacks []ChangeCallback

	fs     *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

const reloadDebounce = 200 * time.Millisecond

// NewWatcher loads the file once and begins watching it for changes.
func NewWatcher(path string, logger telemetry.Logger) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(filepath.Dir(path)); err != nil {
		fs.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:    path,
		logger:  logger,
		current: cfg,
		fs:      fs,
		cancel:  cancel,
	}
	w.wg.Add(1)
	go w.run(ctx)
	return w, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after every successful reload.
func (w *Watcher) OnChange(cb ChangeCallback) {
	if cb == nil {
		return
	}
	w.mu.Lock()
	w.callbacks = append(w.callbacks, cb)
	w.mu.Unlock()
}

// Close stops the watcher and releases the inotify handle.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fs.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	var pending *time.Timer
	var pendingC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(reloadDebounce)
			} else {
				pending.Reset(reloadDebounce)
			}
			pendingC = pending.C
		case <-pendingC:
			pendingC = nil
			w.reload()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Printf("config watcher error: %v", err)
			}
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		if w.logger != nil {
			w.logger.Printf("config reload failed, keeping previous: %v", err)
		}
		return
	}

	w.mu.Lock()
	previous := w.current
	w.current = cfg
	callbacks := make([]ChangeCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(previous, cfg)
	}
	if w.logger != nil {
		w.logger.Printf("config reloaded from %s", w.path)
	}
}
