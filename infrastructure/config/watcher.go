package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/domain/core/valueobjects"
)

const reloadDebounce = 100 * time.Millisecond

// FieldRangesWatcher reloads the field range file when it changes on disk.
// Invalid edits are logged and the previous ranges stay in effect.
type FieldRangesWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	mu       sync.RWMutex
	current  valueobjects.FieldRanges
	onChange []func(valueobjects.FieldRanges)

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewFieldRangesWatcher loads path and starts watching its directory, so
// editors that save by rename are picked up.
func NewFieldRangesWatcher(path string, logger *zap.Logger) (*FieldRangesWatcher, error) {
	ranges, err := LoadFieldRanges(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch field ranges: %w", err)
	}

	return &FieldRangesWatcher{
		path:    path,
		watcher: watcher,
		logger:  logger,
		current: ranges,
		stopCh:  make(chan struct{}),
	}, nil
}

// Current returns the ranges in effect
func (w *FieldRangesWatcher) Current() valueobjects.FieldRanges {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers fn to receive every successfully reloaded set
func (w *FieldRangesWatcher) OnChange(fn func(valueobjects.FieldRanges)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Start begins watching in the background
func (w *FieldRangesWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("Field ranges watcher started", zap.String("path", w.path))
}

// Stop ends watching
func (w *FieldRangesWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
	})
}

func (w *FieldRangesWatcher) watchLoop() {
	var debounce *time.Timer
	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *FieldRangesWatcher) reload() {
	ranges, err := LoadFieldRanges(w.path)
	if err != nil {
		w.logger.Error("Invalid field ranges, keeping current", zap.String("path", w.path), zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = ranges
	handlers := append([]func(valueobjects.FieldRanges){}, w.onChange...)
	w.mu.Unlock()

	for _, fn := range handlers {
		fn(ranges)
	}
	w.logger.Info("Field ranges reloaded", zap.String("path", w.path))
}
