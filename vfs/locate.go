// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

// FileLike constrains typed lookups to the node types of the namespace.
type FileLike interface {
	*File | *Folder
}

// Locate resolves an absolute path to a node of the requested type. It
// returns [ErrNotFound] if the path does not resolve and [ErrNotFolder] if
// a folder was requested but the path names a leaf file.
func Locate[T FileLike](fsys *FileSystem, path string) (T, error) {
	var result T

	file, err := fsys.Find(path)
	if err != nil {
		return result, err
	}

	switch target := any(&result).(type) {
	case **File:
		*target = file
	case **Folder:
		folder := file.AsFolder()
		if folder == nil {
			return result, &PathError{Op: "locate", Path: path, Err: ErrNotFolder}
		}

		*target = folder
	}

	return result, nil
}

// TryLocate resolves an absolute path like [Locate] but returns nil on
// absence or type mismatch.
func TryLocate[T FileLike](fsys *FileSystem, path string) T {
	result, err := Locate[T](fsys, path)
	if err != nil {
		var zero T
		return zero
	}

	return result
}
