package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// DefaultSettle is how long a file must go without writes before a watcher
// imports it.
const DefaultSettle = 2 * time.Second

// Watcher imports files as they appear under a directory tree.
type Watcher struct {
	im     *Importer
	root   string
	settle time.Duration

	mu sync.Mutex
	// pending holds one debouncer per file still being written
	pending map[string]func(func())
	ready   chan string
	done    chan struct{}
}

// NewWatcher creates a watcher for root. settle <= 0 uses DefaultSettle.
func (im *Importer) NewWatcher(root string, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		im:      im,
		root:    root,
		settle:  settle,
		pending: make(map[string]func(func())),
		ready:   make(chan string, 256),
		done:    make(chan struct{}),
	}
}

// Run watches until ctx ends. A Watcher runs once. Imports still running when ctx ends are
// waited for.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	count := w.addTree(watcher, w.root)
	if count == 0 {
		return fmt.Errorf("no directories could be watched under %s", w.root)
	}
	metrics.WatchedDirectories.Set(float64(count))
	logging.Info("Watching %d directories under %s", count, w.root)

	var g errgroup.Group
	g.SetLimit(w.im.opts.Workers)
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		for {
			select {
			case path := <-w.ready:
				g.Go(func() error {
					w.im.ImportFile(ctx, path)
					return nil
				})
			case <-ctx.Done():
				return
			}
		}
	}()

	defer func() {
		close(w.done)
		<-dispatchDone
		_ = g.Wait()
		metrics.WatchedDirectories.Set(0)
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()
		case <-ctx.Done():
			return nil
		}
	}
}

// addTree watches dir and every non-hidden directory below it, except the
// destination directory.
func (w *Watcher) addTree(watcher *fsnotify.Watcher, dir string) int {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if (path != dir && isHidden(d.Name())) || w.isDest(path) {
			return filepath.SkipDir
		}
		if addErr := watcher.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.WatcherErrors.Inc()
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		logging.Error("failed to walk %s for watcher: %v", dir, err)
		metrics.WatcherErrors.Inc()
	}
	return count
}

func (w *Watcher) isDest(path string) bool {
	if w.im.opts.DestDir == "" {
		return false
	}
	a, err1 := filepath.Abs(path)
	b, err2 := filepath.Abs(w.im.opts.DestDir)
	return err1 == nil && err2 == nil && a == b
}

func (w *Watcher) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if isHidden(filepath.Base(event.Name)) {
		return
	}
	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			added := w.addTree(watcher, event.Name)
			metrics.WatchedDirectories.Add(float64(added))
			logging.Debug("Added %d new directories to watcher under %s", added, event.Name)
			// files may land in a new directory before it is watched
			files, _ := collectFiles(context.Background(), []string{event.Name})
			for _, f := range files {
				w.schedule(f)
			}
		}
		return
	}
	if info.Mode().IsRegular() {
		w.schedule(event.Name)
	}
}

// schedule imports path once it has been quiet for the settle period.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	debounced, ok := w.pending[path]
	if !ok {
		debounced = debounce.New(w.settle)
		w.pending[path] = debounced
	}
	w.mu.Unlock()

	debounced(func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func eventType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Chmod):
		return "chmod"
	default:
		return "unknown"
	}
}
