package script

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// #region watcher

// Watcher reloads library files from a directory into a Catalog when they
// change. A file that fails to parse or validate is logged and the library
// already installed for that language is kept.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	catalog  *Catalog
	dir      string
	logger   *zap.Logger
	debounce time.Duration
	pending  map[string]time.Time
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}

	// OnReload, if set, is called after each successful reload.
	OnReload func(lib *Library)
}

// NewWatcher creates a watcher over dir feeding catalog.
func NewWatcher(dir string, catalog *Catalog, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		watcher:  fw,
		catalog:  catalog,
		dir:      dir,
		logger:   logger.Named("scripts"),
		debounce: 200 * time.Millisecond,
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching script libraries", zap.String("dir", w.dir))

	go w.run(ctx)
	return nil
}

// Stop ends the watch loop and releases the fs watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("close fs watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if _, _, ok := splitLibraryName(filepath.Base(ev.Name)); !ok {
				continue
			}
			w.pending[ev.Name] = time.Now()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fs watcher error", zap.Error(err))
		case now := <-ticker.C:
			for path, seen := range w.pending {
				if now.Sub(seen) < w.debounce {
					continue
				}
				delete(w.pending, path)
				w.reload(path)
			}
		}
	}
}

func (w *Watcher) reload(path string) {
	lib, err := LoadFile(path)
	if err == nil {
		err = w.catalog.Add(lib)
	}
	if err != nil {
		w.logger.Warn("keeping previous library", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("reloaded library", zap.String("path", path), zap.String("language", lib.Language))
	if w.OnReload != nil {
		w.OnReload(lib)
	}
}

// #endregion watcher
