package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the bursts of write events editors and
// atomic-save tools produce for a single edit.
const debounceDelay = 250 * time.Millisecond

// Watch observes the config file and invokes onChange with each newly
// loaded configuration until ctx is cancelled.
//
// The parent directory is watched rather than the file itself: editors
// that save atomically (write temp file, rename over target) would
// otherwise detach the watch on the first edit. Files that fail to load
// or validate are reported through onError and skipped; the previous
// configuration stays in effect.
func Watch(ctx context.Context, path string, onChange func(*Config), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		var debounceC <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if debounce == nil {
					debounce = time.NewTimer(debounceDelay)
				} else {
					debounce.Reset(debounceDelay)
				}
				debounceC = debounce.C

			case <-debounceC:
				debounceC = nil
				cfg, loadErr := Load(path)
				if loadErr != nil {
					if onError != nil {
						onError(loadErr)
					}
					continue
				}
				onChange(cfg)

			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if onError != nil {
					onError(watchErr)
				}
			}
		}
	}()

	return nil
}
