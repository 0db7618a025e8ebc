// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
)

// FileIndex is a multi-map from a file's lowercased name to file
// references, with support for partial-path suffix lookup. Entries are
// compared by identity, not content.
//
// An index may receive adds and removes from concurrent population tasks;
// its operations are serialized internally.
type FileIndex struct {
	mu      sync.Mutex
	buckets map[string]map[*File]struct{}
	size    int
}

// NewFileIndex creates an empty index.
func NewFileIndex() *FileIndex {
	return &FileIndex{
		buckets: make(map[string]map[*File]struct{}),
	}
}

// MaybeAdd registers a file with the index. Adding an already indexed file
// is a no-op.
func (i *FileIndex) MaybeAdd(file *File) {
	i.mu.Lock()
	defer i.mu.Unlock()

	bucket, ok := i.buckets[file.key()]
	if !ok {
		bucket = make(map[*File]struct{})
		i.buckets[file.key()] = bucket
	}

	if _, exists := bucket[file]; exists {
		return
	}

	bucket[file] = struct{}{}
	i.size++
}

// Remove deregisters a file from the index. Removing an unknown file is a
// no-op.
func (i *FileIndex) Remove(file *File) {
	i.mu.Lock()
	defer i.mu.Unlock()

	bucket, ok := i.buckets[file.key()]
	if !ok {
		return
	}

	if _, exists := bucket[file]; !exists {
		return
	}

	delete(bucket, file)
	i.size--

	if len(bucket) == 0 {
		delete(i.buckets, file.key())
	}
}

// Size returns the total number of indexed files.
func (i *FileIndex) Size() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.size
}

// FindPartialPath returns every indexed file whose full path ends with the
// given path, matched on path-segment boundaries. The cost is proportional
// to the number of entries sharing the path's final segment name, not to
// the total index size. Results are sorted by path.
func (i *FileIndex) FindPartialPath(path string) []*File {
	segments := splitPath(strings.ToLower(path))
	if len(segments) == 0 {
		return nil
	}

	i.mu.Lock()
	candidates := slices.Collect(maps.Keys(i.buckets[segments[len(segments)-1]]))
	i.mu.Unlock()

	var found []*File

	for _, file := range candidates {
		if matchesSuffix(file, segments) {
			found = append(found, file)
		}
	}

	slices.SortFunc(found, func(a, b *File) int {
		return strings.Compare(a.Path(), b.Path())
	})

	return found
}

// Print writes a diagnostic dump of the index to the given writer.
func (i *FileIndex) Print(w io.Writer) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, key := range slices.Sorted(maps.Keys(i.buckets)) {
		paths := make([]string, 0, len(i.buckets[key]))
		for file := range i.buckets[key] {
			paths = append(paths, file.Path())
		}

		slices.Sort(paths)
		fmt.Fprintf(w, "%q: %s\n", key, strings.Join(paths, " "))
	}
}

// matchesSuffix reports whether the file's ancestor chain matches the given
// lowercased path segments from the end.
func matchesSuffix(file *File, segments []string) bool {
	current := file

	for i := len(segments) - 1; i >= 0; i-- {
		if current == nil || current.key() != segments[i] {
			return false
		}

		if parent := current.Parent(); parent != nil {
			current = &parent.File
		} else {
			current = nil
		}
	}

	return true
}
