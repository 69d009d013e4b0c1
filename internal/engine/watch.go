package engine

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch is an opt-in hot-reload hook: it watches the index directory
// for a write, create or rename of the ".vocab"/".if" files (an external
// builder replacing them) and, after a short debounce window, calls
// onReload. The SAAT core never requires this — Watch exists only for
// long-running processes (the MCP server, started with --watch) that
// want to pick up a rebuilt index without restarting. onReload is
// ordinarily Evaluator.Reload, which swaps in the new mappings under
// a write lock so no in-flight ProcessQuery observes a half-replaced
// index.
type Watch struct {
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	files   map[string]bool
}

// StartWatch begins watching e's index files for replacement. onReload
// is invoked on a single goroutine after a debounce window following
// the last observed write, create or rename event on either file, never concurrently with
// itself.
func (e *Evaluator) StartWatch(debounce time.Duration, onReload func() error) (*Watch, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := indexDir(e.params.IndexStem)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	w := &Watch{watcher: watcher, stopCh: make(chan struct{}), files: map[string]bool{
		filepath.Clean(e.params.IndexStem + ".vocab"): true,
		filepath.Clean(e.params.IndexStem + ".if"):    true,
	}}

	go w.loop(debounce, onReload)
	return w, nil
}

func (w *Watch) loop(debounce time.Duration, onReload func() error) {
	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Rename|fsnotify.Create) == 0 {
				continue
			}
			if !w.files[filepath.Clean(ev.Name)] {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(debounce, func() {
					select {
					case pending <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(debounce)
			}

		case <-pending:
			if err := onReload(); err != nil {
				slog.Error("index reload failed", slog.String("error", err.Error()))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("index watch error", slog.String("error", err.Error()))
		}
	}
}

// Stop ends the watch loop and closes the underlying fsnotify watcher.
func (w *Watch) Stop() error {
	close(w.stopCh)
	return w.watcher.Close()
}
