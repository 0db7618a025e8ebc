// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

// Feed is a data-source adapter that produces a folder's children from an
// external source, such as a native directory or an archive.
//
// A Feed belongs to at most one folder at a time. Feeds are not safe for
// concurrent use; a folder's populate cycle drives each feed from exactly
// one task at a time.
type Feed interface {
	// Description returns a short description of the feed's source for
	// logs and diagnostics.
	Description() string

	// Populate returns files that exist in the feed's source but are not
	// yet present in the folder, compared by case-insensitive name. It must
	// never remove children of the folder; removal is solely the pruning
	// step's responsibility.
	Populate(folder *Folder) ([]*File, error)

	// Prune reports whether an existing child produced by this feed is
	// stale and should be removed before the next populate pass.
	Prune(file *File) bool
}

// WritableFeed is a [Feed] that can create and delete backing data.
type WritableFeed interface {
	Feed

	// CanWrite reports whether the feed accepts write operations.
	CanWrite() bool

	// NewFile creates backing data for a new file with the given name and
	// returns the file wrapping it.
	NewFile(name string) (*File, error)

	// RemoveFile deletes the backing data of the named file. Removing
	// already absent data is a no-op.
	RemoveFile(name string) error
}
