// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// CreateBehavior controls how [Folder.CreateFile] treats an existing file
// with the same name.
type CreateBehavior int

const (
	// FailIfExists makes creation fail with [ErrDuplicateName] on a name
	// collision.
	FailIfExists CreateBehavior = iota
	// ReplaceExisting destroys a same-named existing file before creation.
	// A failure to destroy is logged and creation proceeds.
	ReplaceExisting
)

// Folder is a [File] that owns a set of child files and an ordered list of
// feeds. The front feed is the primary feed, used for write operations.
//
// Child names are unique by their case-insensitive comparison key.
type Folder struct {
	File

	mu       sync.RWMutex
	children map[string]*File
	feeds    []Feed

	populating atomic.Bool
}

// NewFolder creates a detached folder with the given name and no feeds.
func NewFolder(name string) *Folder {
	fo := &Folder{
		children: make(map[string]*File),
	}
	fo.File = File{
		name:     name,
		typeName: "Folder",
		status:   Status{Type: TypeFolder},
		mode:     ModeWrite,
		self:     fo,
	}

	return fo
}

// Attach appends a feed to the folder's feed list. The first attached feed
// becomes the primary feed.
func (fo *Folder) Attach(feed Feed) {
	fo.mu.Lock()
	defer fo.mu.Unlock()

	fo.feeds = append(fo.feeds, feed)
}

// Detach removes a feed from the folder's feed list. Files created by the
// feed keep it as an origin hint only.
func (fo *Folder) Detach(feed Feed) {
	fo.mu.Lock()
	defer fo.mu.Unlock()

	fo.feeds = slices.DeleteFunc(fo.feeds, func(f Feed) bool { return f == feed })
}

// SetPrimaryFeed moves the given feed to the front of the feed list,
// attaching it if necessary.
func (fo *Folder) SetPrimaryFeed(feed Feed) {
	fo.mu.Lock()
	defer fo.mu.Unlock()

	fo.feeds = slices.DeleteFunc(fo.feeds, func(f Feed) bool { return f == feed })
	fo.feeds = append([]Feed{feed}, fo.feeds...)
}

// PrimaryFeed returns the front feed, or nil if the folder has no feeds.
func (fo *Folder) PrimaryFeed() Feed {
	fo.mu.RLock()
	defer fo.mu.RUnlock()

	if len(fo.feeds) == 0 {
		return nil
	}

	return fo.feeds[0]
}

// Feeds returns a snapshot of the feed list in attachment order.
func (fo *Folder) Feeds() []Feed {
	fo.mu.RLock()
	defer fo.mu.RUnlock()

	return slices.Clone(fo.feeds)
}

// Has reports whether a child with the given name exists. The lookup is
// case-insensitive.
func (fo *Folder) Has(name string) bool {
	_, ok := fo.Child(name)
	return ok
}

// Child returns the child with the given name. The lookup is
// case-insensitive.
func (fo *Folder) Child(name string) (*File, bool) {
	fo.mu.RLock()
	defer fo.mu.RUnlock()

	child, ok := fo.children[strings.ToLower(name)]

	return child, ok
}

// Children returns a snapshot of all children sorted by comparison key.
func (fo *Folder) Children() []*File {
	fo.mu.RLock()
	defer fo.mu.RUnlock()

	files := make([]*File, 0, len(fo.children))
	for _, key := range slices.Sorted(maps.Keys(fo.children)) {
		files = append(files, fo.children[key])
	}

	return files
}

// ChildCount returns the number of children.
func (fo *Folder) ChildCount() int {
	fo.mu.RLock()
	defer fo.mu.RUnlock()

	return len(fo.children)
}

// Locate resolves a possibly multi-segment path relative to this folder.
// Every segment before the last must resolve to a folder. Name lookups are
// case-insensitive. It returns [ErrNotFound] wrapped in a [PathError] if
// the path does not resolve.
func (fo *Folder) Locate(path string) (*File, error) {
	current := &fo.File

	for _, segment := range splitPath(path) {
		dir := current.AsFolder()
		if dir == nil {
			return nil, &PathError{Op: "locate", Path: path, Err: ErrNotFound}
		}

		next, ok := dir.Child(segment)
		if !ok {
			return nil, &PathError{Op: "locate", Path: path, Err: ErrNotFound}
		}

		current = next
	}

	return current, nil
}

// LocateFolder resolves a path like [Folder.Locate] and requires the result
// to be a folder.
func (fo *Folder) LocateFolder(path string) (*Folder, error) {
	file, err := fo.Locate(path)
	if err != nil {
		return nil, err
	}

	dir := file.AsFolder()
	if dir == nil {
		return nil, &PathError{Op: "locate", Path: path, Err: ErrNotFolder}
	}

	return dir, nil
}

// CreateFile inserts a new file under this folder by delegating to the
// first attached feed able to materialize it.
//
// It fails with [ErrWriteDenied] if the folder is read-only, with
// [ErrDuplicateName] if a same-named file exists and behavior is
// [FailIfExists], and with [ErrNoWritableFeed] if no feed can create the
// file.
func (fo *Folder) CreateFile(name string, behavior CreateBehavior) (*File, error) {
	if fo.Mode()&ModeReadOnly != 0 {
		return nil, &PathError{Op: "create", Path: fo.childPath(name), Err: ErrWriteDenied}
	}

	if fo.Has(name) {
		if behavior != ReplaceExisting {
			return nil, &PathError{Op: "create", Path: fo.childPath(name), Err: ErrDuplicateName}
		}

		if err := fo.DestroyFile(name); err != nil {
			slog.Warn("replacing file failed, creating anyway",
				"path", fo.childPath(name), "error", err)
		}
	}

	for _, feed := range fo.Feeds() {
		writable, ok := feed.(WritableFeed)
		if !ok || !writable.CanWrite() {
			continue
		}

		file, err := writable.NewFile(name)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", feed.Description(), err)
		}

		file.origin = feed
		fo.insert(file)

		return file, nil
	}

	return nil, &PathError{Op: "create", Path: fo.childPath(name), Err: ErrNoWritableFeed}
}

// DestroyFile removes the named child, deletes its backing data through its
// origin feed if one is still attached, and destroys the in-memory object.
//
// It fails with [ErrWriteDenied] if the folder is read-only and with
// [ErrNotFound] if the child does not exist.
func (fo *Folder) DestroyFile(name string) error {
	if fo.Mode()&ModeReadOnly != 0 {
		return &PathError{Op: "destroy", Path: fo.childPath(name), Err: ErrWriteDenied}
	}

	child, ok := fo.Child(name)
	if !ok {
		return &PathError{Op: "destroy", Path: fo.childPath(name), Err: ErrNotFound}
	}

	if origin, ok := child.OriginFeed().(WritableFeed); ok {
		if err := origin.RemoveFile(child.Name()); err != nil {
			return fmt.Errorf("destroy %s: %w", child.Path(), err)
		}
	}

	fo.remove(child)
	destroy(child)

	return nil
}

// Add explicitly inserts a detached file as a child, outside the standard
// feed path. Unlike feed population, an explicit insert fails with
// [ErrDuplicateName] on a name collision instead of resolving it silently.
func (fo *Folder) Add(file *File) error {
	if fo.Mode()&ModeReadOnly != 0 {
		return &PathError{Op: "add", Path: fo.childPath(file.Name()), Err: ErrWriteDenied}
	}

	if fo.Has(file.Name()) {
		return &PathError{Op: "add", Path: fo.childPath(file.Name()), Err: ErrDuplicateName}
	}

	fo.insert(file)

	return nil
}

// Clear detaches and destroys every child without touching backing storage.
// It is used before repopulating from a reassigned feed.
func (fo *Folder) Clear() {
	for _, child := range fo.Children() {
		fo.remove(child)
		destroy(child)
	}
}

// insert adds a file as a child, deregistering nothing and overwriting
// nothing: callers must have resolved name collisions. The file and every
// descendant it already carries are registered with the indices of the
// folder's file system, mirroring the subtree deregistration on removal.
func (fo *Folder) insert(file *File) {
	fo.mu.Lock()
	file.parent = fo
	fo.children[file.key()] = file
	fo.mu.Unlock()

	attachTree(file, fo.fsys)
}

// attachTree sets the owning file system on a subtree and indexes every
// node, children after parents.
func attachTree(file *File, fsys *FileSystem) {
	file.fsys = fsys

	if fsys != nil {
		fsys.Index(file)
	}

	if dir := file.AsFolder(); dir != nil {
		for _, child := range dir.Children() {
			attachTree(child, fsys)
		}
	}
}

// remove detaches a child from the folder and deregisters it, and its
// subtree, from all indices. Deregistration happens before destruction so
// indices never hold destroyed files.
func (fo *Folder) remove(file *File) {
	fo.mu.Lock()
	if fo.children[file.key()] == file {
		delete(fo.children, file.key())
	}
	fo.mu.Unlock()

	if fo.fsys != nil {
		fo.fsys.deindexTree(file)
	}

	file.parent = nil
}

// destroy releases a detached file's subtree, children before parents.
func destroy(file *File) {
	if dir := file.AsFolder(); dir != nil {
		dir.mu.Lock()
		children := slices.Collect(maps.Values(dir.children))
		clear(dir.children)
		dir.feeds = nil
		dir.mu.Unlock()

		for _, child := range children {
			child.parent = nil
			destroy(child)
		}
	}

	file.fsys = nil
	file.origin = nil
	file.openFn = nil
}

func (fo *Folder) childPath(name string) string {
	if p := fo.Path(); p != "/" {
		return p + "/" + name
	}

	return "/" + name
}

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}
