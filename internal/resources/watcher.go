package resources

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the registry whenever its file changes, until ctx is
// cancelled. The parent directory is watched rather than the file itself
// because editors replace files on save. Reload failures keep the previous
// specs and are logged, not fatal.
func (r *Registry) Watch(ctx context.Context, logger *slog.Logger) error {
	if r.path == "" {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(r.path)
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("registry watcher: started", slog.String("path", r.path))

	// reloadTimer debounces bursts of write events from a single save.
	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	target := filepath.Clean(r.path)

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("registry watcher: stopped")
			return nil

		case <-reloadCh:
			if err := r.Reload(); err != nil {
				logger.Warn("registry watcher: reload failed", slog.String("error", err.Error()))
			} else {
				logger.Info("registry watcher: reloaded", slog.Int("resources", len(r.Names())))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("registry watcher: error", slog.String("error", werr.Error()))
		}
	}
}
