package library

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/recipebox/internal/storage"
)

// Watch imports library files as they are created or edited until ctx is
// cancelled. Removals and renames trigger a full Sync so the ledger follows
// the files. Bursts of events are debounced.
func (l *Library) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := l.files.Root()
	if err := w.Add(root); err != nil {
		return err
	}
	l.logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	reconcile := false

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(l.debounce)
			timerCh = timer.C
		} else {
			timer.Reset(l.debounce)
		}
	}

	flush := func() {
		if reconcile {
			res, err := l.Sync(ctx)
			if err != nil {
				l.logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
			} else {
				l.logger.Debug("watcher: synced", slog.Any("result", res))
			}
		} else {
			for p := range pending {
				if _, err := l.ImportFile(ctx, p); err != nil {
					l.logger.Warn("watcher: import failed", slog.String("path", p), slog.String("error", err.Error()))
				}
			}
		}
		clear(pending)
		reconcile = false
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			l.logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			flush()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Dir(ev.Name) != root || !storage.IsRecipeFile(ev.Name) {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[filepath.Base(ev.Name)] = struct{}{}
				schedule()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				reconcile = true
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
