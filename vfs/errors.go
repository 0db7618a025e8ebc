// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

import (
	"errors"
	"io/fs"
)

var (
	// ErrNotFound is returned if a path or name does not resolve to a file.
	// Lookups report it uniformly, whether the file never existed, failed to
	// populate, or was pruned in between.
	ErrNotFound = fs.ErrNotExist

	// ErrWriteDenied is returned when a mutating operation targets a
	// read-only folder or feed.
	ErrWriteDenied = errors.New("write denied")

	// ErrNoWritableFeed is returned when no feed attached to a folder is
	// able to materialize a requested file.
	ErrNoWritableFeed = errors.New("no writable feed")

	// ErrDuplicateName is returned on an explicit insert that collides with
	// an existing sibling name. Feed population resolves collisions silently
	// by feed priority instead.
	ErrDuplicateName = fs.ErrExist

	// ErrStatus is returned if the status of a native file cannot be read.
	ErrStatus = errors.New("status unavailable")

	// ErrRemove is returned if deleting existing backing data failed.
	ErrRemove = errors.New("cannot remove")

	// ErrNotFolder is returned if a file is required to be a folder but is
	// not.
	ErrNotFolder = errors.New("not a folder")

	// ErrInvalidArgument is returned if an invalid argument is given.
	ErrInvalidArgument = errors.New("invalid argument")
)

// PathError records an error and the operation and file path that caused it.
type PathError = fs.PathError
