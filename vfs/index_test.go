// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexFixture(t *testing.T) (*Folder, map[string]*File) {
	t.Helper()

	root := NewFolder("")
	files := make(map[string]*File)

	for _, path := range []string{
		"packs/ui/Info.dei",
		"packs/gfx/Info.dei",
		"packs/gfx/icon.png",
		"other/icon.png",
	} {
		segments := strings.Split(path, "/")
		current := root

		for _, dir := range segments[:len(segments)-1] {
			if child, ok := current.Child(dir); ok {
				current = child.AsFolder()
				continue
			}

			sub := NewFolder(dir)
			current.insert(&sub.File)
			current = sub
		}

		file := NewFile(segments[len(segments)-1])
		current.insert(file)
		files[path] = file
	}

	return root, files
}

func TestFileIndexMaybeAddIsIdempotent(t *testing.T) {
	index := NewFileIndex()
	file := NewFile("a.txt")

	index.MaybeAdd(file)
	index.MaybeAdd(file)

	assert.Equal(t, 1, index.Size())

	// Same name, different identity.
	index.MaybeAdd(NewFile("a.txt"))
	assert.Equal(t, 2, index.Size())
}

func TestFileIndexRemove(t *testing.T) {
	index := NewFileIndex()
	file := NewFile("a.txt")

	index.MaybeAdd(file)
	index.Remove(file)
	index.Remove(file)

	assert.Zero(t, index.Size())
	assert.Empty(t, index.FindPartialPath("a.txt"))
}

func TestFileIndexFindPartialPath(t *testing.T) {
	_, files := indexFixture(t)

	index := NewFileIndex()
	for _, file := range files {
		index.MaybeAdd(file)
	}

	t.Run("single segment matches all buckets entries", func(t *testing.T) {
		found := index.FindPartialPath("icon.png")
		require.Len(t, found, 2)
		assert.Equal(t, "/other/icon.png", found[0].Path())
		assert.Equal(t, "/packs/gfx/icon.png", found[1].Path())
	})

	t.Run("multi segment narrows by parent", func(t *testing.T) {
		found := index.FindPartialPath("gfx/Icon.PNG")
		require.Len(t, found, 1)
		assert.Equal(t, "/packs/gfx/icon.png", found[0].Path())
	})

	t.Run("segment boundaries only", func(t *testing.T) {
		// "fx/icon.png" is a raw suffix of "/packs/gfx/icon.png" but not a
		// segment-boundary match.
		assert.Empty(t, index.FindPartialPath("fx/icon.png"))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, index.FindPartialPath("missing.png"))
		assert.Empty(t, index.FindPartialPath(""))
	})
}

func TestFileIndexPrint(t *testing.T) {
	_, files := indexFixture(t)

	index := NewFileIndex()
	for _, file := range files {
		index.MaybeAdd(file)
	}

	var out strings.Builder
	index.Print(&out)

	assert.Contains(t, out.String(), `"icon.png": /other/icon.png /packs/gfx/icon.png`)
	assert.Contains(t, out.String(), `"info.dei": /packs/gfx/Info.dei /packs/ui/Info.dei`)
}
