// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package watch refreshes a vfs file system when watched native
// directories change. Events are debounced so a burst of native writes
// triggers one repopulation.
package watch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/halver/treefs/vfs"
)

// DefaultDebounce is the default settle time between a native change and
// the triggered refresh.
const DefaultDebounce = 250 * time.Millisecond

// Watcher triggers [vfs.FileSystem.RefreshAsync] on native directory
// changes.
type Watcher struct {
	fsys     *vfs.FileSystem
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer

	done    chan struct{}
	stopped chan struct{}
}

// New creates a watcher for the given file system. Call [Watcher.Add] for
// every native root to watch, then [Watcher.Start].
func New(fsys *vfs.FileSystem, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	native, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	return &Watcher{
		fsys:     fsys,
		watcher:  native,
		debounce: debounce,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Add watches the given native directory and all its subdirectories.
func (w *Watcher) Add(dir string) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.IsDir() {
			return nil
		}

		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}

		return nil
	})
}

// AddFeed watches the native root of the given directory feed.
func (w *Watcher) AddFeed(feed *vfs.DirectoryFeed) error {
	return w.Add(feed.NativePath())
}

// Start begins processing native events.
func (w *Watcher) Start() {
	go w.loop()
}

// Close stops the watcher. A pending debounced refresh is dropped.
func (w *Watcher) Close() error {
	close(w.done)
	<-w.stopped

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}

	return nil
}

func (w *Watcher) loop() {
	defer close(w.stopped)

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			slog.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	slog.Debug("native change", "op", event.Op.String(), "path", event.Name)

	// New directories join the watch so changes below them are seen too.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				slog.Warn("cannot watch new directory", "path", event.Name, "error", err)
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, w.refresh)
}

func (w *Watcher) refresh() {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	slog.Debug("refreshing after native changes")
	w.fsys.RefreshAsync()
}
