// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// PopulationBehavior controls how far a populate request reaches.
type PopulationBehavior int

const (
	// PopulateOnlyThisFolder runs one prune/populate cycle on the folder
	// itself.
	PopulateOnlyThisFolder PopulationBehavior = iota
	// PopulateFullTree repeats the cycle on every subfolder.
	PopulateFullTree
)

// BusyFunc is notified on the busy/idle transitions of a [FileSystem].
// Callbacks run on the file system's notification dispatcher in
// registration order.
type BusyFunc func(busy bool)

// FileSystem owns the root folder of a virtual namespace, the interpreter
// chain, the universal and per-type indices, and the background population
// machinery.
//
// The tree is partitioned by folder ownership: one populate task drives one
// folder at a time. The indices are the only structures receiving
// concurrent writes from sibling tasks and serialize internally.
type FileSystem struct {
	root *Folder

	mu        sync.Mutex
	universal *FileIndex
	typed     map[string]*FileIndex
	user      []*FileIndex
	interps   []Interpreter
	busyFns   []BusyFunc

	busy *busyTracker

	tasks   errgroup.Group
	workers *semaphore.Weighted

	dispatch    chan func()
	dispatched  sync.WaitGroup
	dispatchGID uint64
	started     chan struct{}
	stopped     chan struct{}
}

// New creates a file system with an empty root folder and the default
// archive interpreters registered. Call [FileSystem.Close] when done to
// stop the background machinery.
func New() *FileSystem {
	f := &FileSystem{
		universal: NewFileIndex(),
		typed:     make(map[string]*FileIndex),
		busy:      newBusyTracker(),
		workers:   semaphore.NewWeighted(int64(runtime.NumCPU())),
		dispatch:  make(chan func(), 16),
		started:   make(chan struct{}),
		stopped:   make(chan struct{}),
	}

	f.root = NewFolder("")
	f.root.fsys = f

	f.interps = []Interpreter{
		NewZipInterpreter(),
		NewCPIOInterpreter(),
	}

	go f.dispatchLoop()
	<-f.started

	return f
}

// Close waits for outstanding population tasks and stops the notification
// dispatcher. The file system must not be used afterwards.
func (f *FileSystem) Close() error {
	f.WaitForIdle()

	if err := f.tasks.Wait(); err != nil {
		return fmt.Errorf("population tasks: %w", err)
	}

	f.dispatched.Wait()
	close(f.dispatch)
	<-f.stopped

	return nil
}

// Root returns the root folder.
func (f *FileSystem) Root() *Folder { return f.root }

// AddInterpreter appends an interpreter to the recognition chain.
// Interpreters run in registration order; the first match wins.
func (f *FileSystem) AddInterpreter(interp Interpreter) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.interps = append(f.interps, interp)
}

// NotifyBusy registers a callback for busy/idle transitions.
func (f *FileSystem) NotifyBusy(fn BusyFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.busyFns = append(f.busyFns, fn)
}

// AddUserIndex registers an index that receives every add and remove the
// universal index does.
func (f *FileSystem) AddUserIndex(index *FileIndex) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.user = append(f.user, index)
}

// RemoveUserIndex deregisters a user index.
func (f *FileSystem) RemoveUserIndex(index *FileIndex) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.user = slices.DeleteFunc(f.user, func(i *FileIndex) bool { return i == index })
}

// Index registers a file with the universal index, its type index, and all
// user indices. Folders call it on insert; it is exposed for collaborators
// inserting files outside the standard feed path.
func (f *FileSystem) Index(file *File) {
	f.mu.Lock()
	typeIndex, ok := f.typed[file.TypeName()]
	if !ok {
		typeIndex = NewFileIndex()
		f.typed[file.TypeName()] = typeIndex
	}

	user := slices.Clone(f.user)
	f.mu.Unlock()

	f.universal.MaybeAdd(file)
	typeIndex.MaybeAdd(file)

	for _, index := range user {
		index.MaybeAdd(file)
	}
}

// Deindex removes a file from every index that references it.
func (f *FileSystem) Deindex(file *File) {
	f.mu.Lock()
	typeIndex := f.typed[file.TypeName()]
	user := slices.Clone(f.user)
	f.mu.Unlock()

	f.universal.Remove(file)

	if typeIndex != nil {
		typeIndex.Remove(file)
	}

	for _, index := range user {
		index.Remove(file)
	}
}

// deindexTree removes a file and all its descendants from every index.
func (f *FileSystem) deindexTree(file *File) {
	f.Deindex(file)

	if dir := file.AsFolder(); dir != nil {
		for _, child := range dir.Children() {
			f.deindexTree(child)
		}
	}
}

// Find resolves an absolute path to a file.
func (f *FileSystem) Find(path string) (*File, error) {
	return f.root.Locate(path)
}

// FindAll returns every indexed file whose path ends with the given
// partial path, matched on segment boundaries.
func (f *FileSystem) FindAll(partialPath string) []*File {
	return f.universal.FindPartialPath(partialPath)
}

// FindAllOfType returns the matches of [FileSystem.FindAll] restricted to
// files of the given runtime type name.
func (f *FileSystem) FindAllOfType(typeName, partialPath string) []*File {
	f.mu.Lock()
	typeIndex := f.typed[typeName]
	f.mu.Unlock()

	if typeIndex == nil {
		return nil
	}

	return typeIndex.FindPartialPath(partialPath)
}

// MakeFolder returns the folder at the given path, creating it and any
// missing parents as plain folders.
func (f *FileSystem) MakeFolder(path string) (*Folder, error) {
	current := f.root

	for _, segment := range splitPath(path) {
		child, ok := current.Child(segment)
		if !ok {
			sub := NewFolder(segment)
			current.insert(&sub.File)
			current = sub

			continue
		}

		dir := child.AsFolder()
		if dir == nil {
			return nil, &PathError{Op: "mkdir", Path: path, Err: ErrNotFolder}
		}

		current = dir
	}

	return current, nil
}

// MakeFolderWithFeed creates the folder like [FileSystem.MakeFolder], makes
// the given feed its primary feed, and runs a synchronous populate cycle
// with the given behavior.
func (f *FileSystem) MakeFolderWithFeed(
	path string,
	feed Feed,
	behavior PopulationBehavior,
) (*Folder, error) {
	folder, err := f.MakeFolder(path)
	if err != nil {
		return nil, err
	}

	folder.SetPrimaryFeed(feed)

	if err := f.Populate(folder, behavior); err != nil {
		return nil, err
	}

	return folder, nil
}

// Populate runs the prune/populate cycle on the folder synchronously.
// Interpreter and feed errors propagate to the caller.
func (f *FileSystem) Populate(folder *Folder, behavior PopulationBehavior) error {
	subfolders, err := f.populateOne(folder)
	if err != nil {
		return err
	}

	if behavior == PopulateFullTree {
		for _, sub := range subfolders {
			if err := f.Populate(sub, behavior); err != nil {
				return err
			}
		}
	}

	return nil
}

// PopulateAsync submits the folder's prune/populate cycle to the
// background task pool. With [PopulateFullTree], each subfolder is
// populated as an independent task without ordering guarantees between
// siblings. Errors are logged and leave the affected subtree in its
// pre-error state; sibling tasks are unaffected.
func (f *FileSystem) PopulateAsync(folder *Folder, behavior PopulationBehavior) {
	f.scheduleTask(folder, behavior)
}

// RefreshAsync triggers a full-tree asynchronous repopulation of the root.
func (f *FileSystem) RefreshAsync() {
	f.PopulateAsync(f.root, PopulateFullTree)
}

// WaitForIdle blocks until no population task is in flight.
//
// It must never be called from a busy/idle or after-population callback:
// those run on the notification dispatcher, which must stay free to
// deliver completions. Doing so is a fatal usage error and panics.
func (f *FileSystem) WaitForIdle() {
	if goroutineID() == f.dispatchGID {
		panic("vfs: WaitForIdle called from the notification dispatcher")
	}

	f.busy.wait()
}

// RunAfterPopulation runs the continuation once no population is
// outstanding. If the file system is already idle the continuation runs
// inline, otherwise it is deferred to the notification dispatcher for the
// next idle transition.
func (f *FileSystem) RunAfterPopulation(fn func()) {
	if !f.busy.deferWhileBusy(fn) {
		fn()
	}
}

// scheduleTask registers one pending task with the busy tracker and
// submits it. The increment happens at submission so the idle notification
// cannot fire while tasks are still queued.
func (f *FileSystem) scheduleTask(folder *Folder, behavior PopulationBehavior) {
	if f.busy.begin() {
		f.post(f.deliverTransitions)
	}

	f.tasks.Go(func() error {
		defer f.endTask()

		if err := f.workers.Acquire(context.Background(), 1); err != nil {
			return nil
		}
		defer f.workers.Release(1)

		subfolders, err := f.populateOne(folder)
		if err != nil {
			slog.Warn("background population failed",
				"folder", folder.Path(), "error", err)

			return nil
		}

		if behavior == PopulateFullTree {
			for _, sub := range subfolders {
				f.scheduleTask(sub, behavior)
			}
		}

		return nil
	})
}

func (f *FileSystem) endTask() {
	if f.busy.end() {
		f.post(f.deliverTransitions)
	}
}

// deliverTransitions runs on the notification dispatcher and delivers the
// busy transitions recorded so far in decision order, each idle edge
// followed by the continuations it released. Transitions are taken from
// the tracker at delivery time, so a post overtaken by a racing one finds
// an empty queue instead of replaying an edge out of order.
func (f *FileSystem) deliverTransitions() {
	for _, tr := range f.busy.take() {
		f.fireBusy(tr.busy)

		for _, fn := range tr.after {
			fn()
		}
	}
}

// populateOne runs one atomic prune/populate cycle on the folder and
// returns the subfolders present afterwards. At most one cycle runs per
// folder at a time; a cycle requested while one is running is dropped as
// the running cycle already reflects the source.
func (f *FileSystem) populateOne(folder *Folder) ([]*Folder, error) {
	if !folder.populating.CompareAndSwap(false, true) {
		return nil, nil
	}
	defer folder.populating.Store(false)

	feeds := folder.Feeds()

	f.prune(folder, feeds)

	// Feeds in reverse-attachment order: the most recently attached feed
	// inserts first and wins name collisions.
	for i := len(feeds) - 1; i >= 0; i-- {
		feed := feeds[i]

		produced, err := feed.Populate(folder)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", feed.Description(), err)
		}

		for _, file := range produced {
			if folder.Has(file.Name()) {
				continue
			}

			file.origin = feed

			final, err := f.interpret(file)
			if err != nil {
				return nil, fmt.Errorf("feed %s: %w", feed.Description(), err)
			}

			// An interpreted replacement keeps the feed that produced the
			// raw file as its origin.
			final.origin = feed
			folder.insert(final)
		}
	}

	var subfolders []*Folder

	for _, child := range folder.Children() {
		if sub := child.AsFolder(); sub != nil {
			subfolders = append(subfolders, sub)
		}
	}

	return subfolders, nil
}

// prune removes stale children. Files flagged [ModeDontPrune] are kept
// unconditionally. A child with an attached origin feed is judged by that
// feed alone, otherwise every attached feed may declare it stale. Pruning
// strictly precedes repopulation so a changed file is re-added fresh.
func (f *FileSystem) prune(folder *Folder, feeds []Feed) {
	for _, child := range folder.Children() {
		if child.Mode()&ModeDontPrune != 0 {
			continue
		}

		stale := false

		if origin := child.OriginFeed(); origin != nil {
			stale = origin.Prune(child)
		} else {
			for _, feed := range feeds {
				if feed.Prune(child) {
					stale = true
					break
				}
			}
		}

		if !stale {
			continue
		}

		slog.Debug("pruning stale file", "path", child.Path())
		folder.remove(child)
		destroy(child)
	}
}

// interpret offers a feed-produced file to the interpreter chain. On a
// match the replacement is returned and the raw file is released. On
// interpreter error the raw file is destroyed so no partially interpreted
// file is ever indexed.
func (f *FileSystem) interpret(file *File) (*File, error) {
	f.mu.Lock()
	interps := slices.Clone(f.interps)
	f.mu.Unlock()

	for _, interp := range interps {
		replacement, err := interp.Interpret(file)
		if err != nil {
			destroy(file)
			return nil, fmt.Errorf("%s: %w", interp.Description(), err)
		}

		if replacement != nil {
			slog.Debug("interpreted file",
				"name", file.Name(), "interpreter", interp.Description())
			destroy(file)

			return replacement, nil
		}
	}

	return file, nil
}

// post hands a callback to the notification dispatcher.
func (f *FileSystem) post(fn func()) {
	f.dispatched.Add(1)
	f.dispatch <- fn
}

func (f *FileSystem) dispatchLoop() {
	defer close(f.stopped)

	f.dispatchGID = goroutineID()
	close(f.started)

	for fn := range f.dispatch {
		fn()
		f.dispatched.Done()
	}
}

func (f *FileSystem) fireBusy(busy bool) {
	f.mu.Lock()
	fns := slices.Clone(f.busyFns)
	f.mu.Unlock()

	for _, fn := range fns {
		fn(busy)
	}
}
