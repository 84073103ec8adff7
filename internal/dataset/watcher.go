package dataset

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 100 * time.Millisecond

// Watch monitors the dataset file at path and calls onChange, after
// debouncing, whenever it is written, created, renamed or removed. The parent
// directory is watched so editors that replace the file are noticed.
// Watcher errors are passed to onError, which may be nil.
// Watching stops when ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(), onError func(error)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return err
	}

	go watchLoop(ctx, watcher, target, onChange, onError)
	return nil
}

// watchLoop processes filesystem events with debouncing.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, target string, onChange func(), onError func(error)) {
	defer watcher.Close()

	var (
		timerMu       sync.Mutex
		debounceTimer *time.Timer
	)
	stopTimer := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != target {
				continue
			}

			relevant := event.Op&fsnotify.Create != 0 ||
				event.Op&fsnotify.Write != 0 ||
				event.Op&fsnotify.Remove != 0 ||
				event.Op&fsnotify.Rename != 0
			if !relevant {
				continue
			}

			// Start/reset debounce timer
			timerMu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				if ctx.Err() == nil {
					onChange()
				}
			})
			timerMu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
