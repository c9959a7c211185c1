package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the bursts of events editors emit per save.
const watchDebounce = 250 * time.Millisecond

// watch renders planPath once and again after every change until ctx ends.
// A failed render is logged and the watch continues.
func (a *app) watch(ctx context.Context, planPath, outFlag string) error {
	abs, err := filepath.Abs(planPath)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}
	defer w.Close() //nolint:errcheck

	// Watch the directory: editors often replace the file on save.
	dir := filepath.Dir(abs)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("unable to watch %s: %w", dir, err)
	}
	a.logger.Info("Watching plan", "plan", abs)

	renderOnce := func() {
		if err := a.render(ctx, abs, outFlag); err != nil && ctx.Err() == nil {
			a.logger.Error("Render failed", "plan", abs, "error", err)
		}
	}
	renderOnce()

	timer := time.NewTimer(watchDebounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Stopped watching", "plan", abs)
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isPlanChange(event, abs) {
				continue
			}
			a.logger.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			timer.Reset(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Debug("fsnotify error", "dir", dir, "error", err)
		case <-timer.C:
			renderOnce()
		}
	}
}

func isPlanChange(event fsnotify.Event, plan string) bool {
	if filepath.Clean(event.Name) != plan {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
