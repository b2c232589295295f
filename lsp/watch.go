package lsp

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/rlch/pyhints"
)

// reloadDebounce coalesces the bursts of events editors produce on save.
const reloadDebounce = 200 * time.Millisecond

// configWatcher watches a workspace directory for changes to any of the
// config file names and calls reload once things settle.
type configWatcher struct {
	dir     string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	reload  func()

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

func newConfigWatcher(dir string, logger *zap.Logger, reload func()) (*configWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// The directory is watched rather than the file so that configs
	// created after startup are picked up.
	if err := w.Add(dir); err != nil {
		_ = w.Close()

		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &configWatcher{
		dir:     dir,
		watcher: w,
		logger:  logger,
		reload:  reload,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching in a new goroutine.
func (cw *configWatcher) Start() {
	go cw.loop()
}

// Stop stops watching and cancels a pending reload.
func (cw *configWatcher) Stop() error {
	cw.mu.Lock()
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.mu.Unlock()

	err := cw.watcher.Close()
	<-cw.done

	return err
}

func (cw *configWatcher) loop() {
	defer close(cw.done)

	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}

			if !isConfigFile(event.Name) {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			cw.logger.Debug("Config change detected",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()))
			cw.schedule()
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}

			cw.logger.Warn("Config watcher error", zap.Error(err))
		}
	}
}

func (cw *configWatcher) schedule() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.timer != nil {
		cw.timer.Stop()
	}

	cw.timer = time.AfterFunc(reloadDebounce, cw.reload)
}

func isConfigFile(path string) bool {
	return slices.Contains(pyhints.DefaultConfigNames, filepath.Base(path))
}
