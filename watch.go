package kiexport

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vishnumaiea/kiexport/pkg/config"
)

// DefaultDebounce is the quiet period Watch waits for after the last
// change before running.
const DefaultDebounce = 2 * time.Second

// Watch runs once and then again whenever a design or configuration file
// in the project directory changes, until ctx is done. Changes closer
// together than debounce trigger a single run. Runs never overlap.
// onResult, when set, receives the outcome of every run.
func Watch(ctx context.Context, opts Options, debounce time.Duration, onResult func(*Result, error)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	dir, err := filepath.Abs(defaultString(opts.ProjectDir, "."))
	if err != nil {
		return fmt.Errorf("project directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	run := func() {
		res, err := Run(ctx, opts)
		if onResult != nil {
			onResult(res, err)
		}
	}
	run()
	opts.logInfo("Watching %s for changes", dir)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !watched(ev) {
				continue
			}
			opts.logInfo("Changed: %s", filepath.Base(ev.Name))
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			opts.logWarn("Watch error: %v", err)
		case <-timer.C:
			run()
		}
	}
}

func watched(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	if name == config.DefaultFileName {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case pcbExt, schExt, projectExt:
		return true
	}
	return false
}
