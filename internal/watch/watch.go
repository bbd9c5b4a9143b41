// Package watch re-runs a callback whenever a source file changes.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Options configures Watch.
type Options struct {
	// Debounce coalesces bursts of events, such as an editor's
	// truncate-then-write, into a single run.
	Debounce time.Duration
	Logger   *zap.Logger
}

// Watch calls run with the file's contents once, then again after every
// write, until ctx is cancelled. Errors from run are logged, not returned.
func Watch(ctx context.Context, path string, opts Options, run func(source string) error) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors often replace the file, which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	rerun := func() {
		data, err := os.ReadFile(target)
		if err != nil {
			logger.Warn("cannot read watched file", zap.String("file", path), zap.Error(err))
			return
		}
		if err := run(string(data)); err != nil {
			logger.Info("run failed", zap.String("file", path), zap.Error(err))
		}
	}

	rerun()
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Debug("file changed", zap.String("file", path), zap.Stringer("op", event.Op))
			fire = time.After(opts.Debounce)
		case <-fire:
			fire = nil
			rerun()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}
