// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

import (
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"
)

// FileType distinguishes leaf files from folders in a [Status].
type FileType int

const (
	// TypeFile marks a leaf node.
	TypeFile FileType = iota
	// TypeFolder marks a container node.
	TypeFolder
)

// Status describes size and age of a file as reported by its source.
type Status struct {
	Type    FileType
	Size    int64
	ModTime time.Time
}

// Mode is a bit set of file behavior flags.
type Mode uint8

const (
	// ModeReadOnly denies all mutating operations on the file.
	ModeReadOnly Mode = 1 << iota
	// ModeWrite allows mutating operations.
	ModeWrite
	// ModeDontPrune exempts the file from removal during populate cycles.
	ModeDontPrune
)

// FileOpenFunc returns an open [fs.File] with the file's content, or an
// error if opening fails.
type FileOpenFunc func() (fs.File, error)

// File is a node in the virtual namespace. It carries metadata and a
// reference to its data source, but no content of its own.
//
// A File has at most one owning parent [Folder]. Its name comparison key is
// case-insensitive while the original casing is preserved.
type File struct {
	name     string
	typeName string
	status   Status
	mode     Mode
	openFn   FileOpenFunc

	// origin is the feed that created this file. It is only an origin hint:
	// resolve it through [File.OriginFeed], which checks that the feed is
	// still attached to the parent folder.
	origin Feed

	parent *Folder
	fsys   *FileSystem

	// self is non-nil iff this File is the embedded part of a Folder.
	self *Folder

	ns     *Record
	nsOnce sync.Once
}

// NewFile creates a detached leaf file with the given name. Use
// [Folder.CreateFile] or a [Feed] to create files with backing data.
func NewFile(name string) *File {
	return &File{
		name:     name,
		typeName: "File",
		mode:     ModeWrite,
	}
}

// Name returns the case-preserved file name.
func (f *File) Name() string { return f.name }

// TypeName returns the runtime type name used for type-indexing.
func (f *File) TypeName() string { return f.typeName }

// SetTypeName overrides the runtime type name. It must be called before the
// file is indexed.
func (f *File) SetTypeName(name string) { f.typeName = name }

// Status returns the file's cached source status.
func (f *File) Status() Status { return f.status }

// SetStatus replaces the file's cached source status.
func (f *File) SetStatus(s Status) { f.status = s }

// Mode returns the file's behavior flags.
func (f *File) Mode() Mode { return f.mode }

// SetMode replaces the file's behavior flags.
func (f *File) SetMode(m Mode) { f.mode = m }

// SetOpenFunc sets the function used by [File.Open] to access the file's
// content.
func (f *File) SetOpenFunc(fn FileOpenFunc) { f.openFn = fn }

// Open opens the file's content for reading.
func (f *File) Open() (fs.File, error) {
	if f.openFn == nil {
		return nil, &PathError{Op: "open", Path: f.Path(), Err: fs.ErrInvalid}
	}

	return f.openFn()
}

// Parent returns the owning folder, or nil for the root.
func (f *File) Parent() *Folder { return f.parent }

// AsFolder returns the file as a [Folder] if it is one, nil otherwise.
func (f *File) AsFolder() *Folder { return f.self }

// IsFolder reports whether the file is a container node.
func (f *File) IsFolder() bool { return f.self != nil }

// FileSystem returns the file system the file belongs to, or nil while the
// file is detached.
func (f *File) FileSystem() *FileSystem { return f.fsys }

// OriginFeed returns the feed that created this file, if it is still
// attached to the parent folder. A detached origin feed resolves to nil, it
// is an origin hint, not a liveness guarantee.
func (f *File) OriginFeed() Feed {
	if f.origin == nil || f.parent == nil {
		return nil
	}

	for _, feed := range f.parent.Feeds() {
		if feed == f.origin {
			return feed
		}
	}

	return nil
}

// Path returns the absolute path of the file within its file system,
// starting with "/".
func (f *File) Path() string {
	if f.parent == nil {
		if f.name == "" {
			return "/"
		}

		return "/" + f.name
	}

	return path.Join(f.parent.Path(), f.name)
}

// Namespace returns the free-form metadata record attached to the file. It
// is created on first access.
func (f *File) Namespace() *Record {
	f.nsOnce.Do(func() {
		f.ns = NewRecord()
	})

	return f.ns
}

// String returns a short description for logs.
func (f *File) String() string {
	if f.IsFolder() {
		return "folder " + f.Path()
	}

	return "file " + f.Path()
}

// key returns the case-insensitive sibling comparison key.
func (f *File) key() string {
	return strings.ToLower(f.name)
}
