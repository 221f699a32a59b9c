// Package watcher guards the bot's data file: if the file is deleted out
// from under the running process, the in-memory store is still the source
// of truth, so the watcher triggers a re-save to put the file back.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher monitors the data file for deletion and calls onDelete when it
// is removed. The parent directory is what is actually watched, since
// fsnotify cannot watch a path that no longer exists.
type Watcher struct {
	dataFile   string
	parentPath string
	onDelete   func()
	watcher    *fsnotify.Watcher
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.Mutex
	running    bool
	debounce   time.Duration
}

// New creates a Watcher for the given data file. onDelete is expected to
// recreate the file (typically by re-saving the store).
func New(dataFile string, onDelete func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		dataFile:   dataFile,
		parentPath: filepath.Dir(dataFile),
		onDelete:   onDelete,
		watcher:    fsw,
		ctx:        ctx,
		cancel:     cancel,
		debounce:   100 * time.Millisecond,
	}, nil
}

// Start begins watching for deletion events.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addWatch(); err != nil {
		log.Warn().Err(err).Str("path", w.parentPath).Msg("Failed to add initial watch")
		// Continue anyway - we'll try to re-establish later
	}

	go w.watchLoop()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) addWatch() error {
	if _, err := os.Stat(w.parentPath); os.IsNotExist(err) {
		return err
	}
	return w.watcher.Add(w.parentPath)
}

// watchLoop is the main event loop. Deletions are debounced so a rapid
// delete-then-recreate (an atomic save is exactly that rename dance) does
// not trigger a spurious re-save.
func (w *Watcher) watchLoop() {
	var (
		debounceTimer *time.Timer
		pendingDelete bool
	)

	for {
		select {
		case <-w.ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			eventPath := filepath.Clean(event.Name)
			dataFile := filepath.Clean(w.dataFile)

			// Data directory removed entirely
			if eventPath == w.parentPath && event.Op&fsnotify.Remove != 0 {
				log.Warn().Str("path", w.parentPath).Msg("Data directory deleted")
				pendingDelete = true
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(w.debounce, w.handleDeletion)
				continue
			}

			if eventPath == dataFile && event.Op&fsnotify.Remove != 0 {
				log.Warn().Str("path", w.dataFile).Msg("Data file deleted")
				pendingDelete = true
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(w.debounce, w.handleDeletion)
				continue
			}

			// Data directory recreated: re-establish the watch
			if eventPath == w.parentPath && event.Op&fsnotify.Create != 0 {
				_ = w.addWatch()
				continue
			}

			// File came back within the debounce window (rename landed)
			if pendingDelete && eventPath == dataFile && event.Op&fsnotify.Create != 0 {
				pendingDelete = false
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

// handleDeletion fires the callback and re-establishes the watch in case
// the parent directory itself was recreated.
func (w *Watcher) handleDeletion() {
	log.Info().Str("path", w.dataFile).Msg("Recreating deleted data file")

	if w.onDelete != nil {
		w.onDelete()
	}

	go func() {
		time.Sleep(500 * time.Millisecond)
		if err := w.addWatch(); err != nil {
			log.Warn().Err(err).Str("path", w.parentPath).Msg("Failed to re-establish watch after deletion")
		}
	}()
}
