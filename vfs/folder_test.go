// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFeed is a writable in-memory feed for tests.
type memFeed struct {
	name   string
	files  map[string][]byte
	stale  map[string]bool
	denied bool
}

func newMemFeed(name string) *memFeed {
	return &memFeed{
		name:  name,
		files: make(map[string][]byte),
		stale: make(map[string]bool),
	}
}

func (m *memFeed) Description() string { return "mem " + m.name }

func (m *memFeed) Populate(folder *Folder) ([]*File, error) {
	var files []*File

	for name, content := range m.files {
		if folder.Has(name) {
			continue
		}

		files = append(files, m.newFile(name, content))
	}

	return files, nil
}

func (m *memFeed) Prune(file *File) bool {
	return m.stale[strings.ToLower(file.Name())]
}

func (m *memFeed) CanWrite() bool { return !m.denied }

func (m *memFeed) NewFile(name string) (*File, error) {
	if m.denied {
		return nil, ErrWriteDenied
	}

	m.files[name] = nil

	return m.newFile(name, nil), nil
}

func (m *memFeed) RemoveFile(name string) error {
	delete(m.files, name)
	return nil
}

func (m *memFeed) newFile(name string, content []byte) *File {
	file := NewFile(name)
	file.SetStatus(Status{Type: TypeFile, Size: int64(len(content))})
	file.SetOpenFunc(func() (fs.File, error) {
		return newMemFile(name, content, file.Status().ModTime), nil
	})

	return file
}

func TestFolderChildLookupIsCaseInsensitive(t *testing.T) {
	folder := NewFolder("data")
	folder.insert(NewFile("ReadMe.TXT"))

	for _, name := range []string{"readme.txt", "README.TXT", "ReadMe.TXT"} {
		child, ok := folder.Child(name)
		require.True(t, ok, name)
		assert.Equal(t, "ReadMe.TXT", child.Name(), "casing is preserved")
	}

	assert.False(t, folder.Has("readme"))
}

func TestFolderLocate(t *testing.T) {
	root := NewFolder("")
	sub := NewFolder("Sub")
	root.insert(&sub.File)
	sub.insert(NewFile("a.txt"))

	t.Run("multi segment", func(t *testing.T) {
		file, err := root.Locate("sub/A.TXT")
		require.NoError(t, err)
		assert.Equal(t, "a.txt", file.Name())
		assert.Equal(t, "/Sub/a.txt", file.Path())
	})

	t.Run("absent", func(t *testing.T) {
		_, err := root.Locate("sub/missing")
		require.ErrorIs(t, err, ErrNotFound)

		var pathErr *PathError

		require.ErrorAs(t, err, &pathErr)
		assert.Equal(t, "locate", pathErr.Op)
	})

	t.Run("segment through leaf", func(t *testing.T) {
		_, err := root.Locate("sub/a.txt/deeper")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("folder required", func(t *testing.T) {
		_, err := root.LocateFolder("sub/a.txt")
		assert.ErrorIs(t, err, ErrNotFolder)

		folder, err := root.LocateFolder("sub")
		require.NoError(t, err)
		assert.Equal(t, sub, folder)
	})
}

func TestFolderCreateFile(t *testing.T) {
	t.Run("creates through primary feed", func(t *testing.T) {
		folder := NewFolder("data")
		feed := newMemFeed("a")
		folder.Attach(feed)

		file, err := folder.CreateFile("new.txt", FailIfExists)
		require.NoError(t, err)
		assert.Equal(t, feed, file.OriginFeed())
		assert.True(t, folder.Has("new.txt"))
	})

	t.Run("duplicate name", func(t *testing.T) {
		folder := NewFolder("data")
		folder.Attach(newMemFeed("a"))

		_, err := folder.CreateFile("x", FailIfExists)
		require.NoError(t, err)

		_, err = folder.CreateFile("X", FailIfExists)
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("replace existing", func(t *testing.T) {
		folder := NewFolder("data")
		folder.Attach(newMemFeed("a"))

		first, err := folder.CreateFile("x", FailIfExists)
		require.NoError(t, err)

		second, err := folder.CreateFile("x", ReplaceExisting)
		require.NoError(t, err)
		assert.NotSame(t, first, second)
		assert.Equal(t, 1, folder.ChildCount())
	})

	t.Run("read-only folder", func(t *testing.T) {
		folder := NewFolder("data")
		folder.SetMode(ModeReadOnly)
		folder.Attach(newMemFeed("a"))

		_, err := folder.CreateFile("x", FailIfExists)
		assert.ErrorIs(t, err, ErrWriteDenied)
	})

	t.Run("no writable feed", func(t *testing.T) {
		folder := NewFolder("data")
		feed := newMemFeed("a")
		feed.denied = true
		folder.Attach(feed)

		_, err := folder.CreateFile("x", FailIfExists)
		assert.ErrorIs(t, err, ErrNoWritableFeed)
	})
}

func TestFolderDestroyFile(t *testing.T) {
	t.Run("removes child and backing data", func(t *testing.T) {
		folder := NewFolder("data")
		feed := newMemFeed("a")
		folder.Attach(feed)

		_, err := folder.CreateFile("x", FailIfExists)
		require.NoError(t, err)

		require.NoError(t, folder.DestroyFile("X"))
		assert.False(t, folder.Has("x"))
		assert.NotContains(t, feed.files, "x")
	})

	t.Run("absent", func(t *testing.T) {
		folder := NewFolder("data")
		err := folder.DestroyFile("missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("read-only folder", func(t *testing.T) {
		folder := NewFolder("data")
		folder.SetMode(ModeReadOnly)
		err := folder.DestroyFile("x")
		assert.ErrorIs(t, err, ErrWriteDenied)
	})
}

func TestFolderClear(t *testing.T) {
	folder := NewFolder("data")
	feed := newMemFeed("a")
	folder.Attach(feed)

	_, err := folder.CreateFile("x", FailIfExists)
	require.NoError(t, err)

	folder.Clear()

	assert.Zero(t, folder.ChildCount())
	assert.Contains(t, feed.files, "x", "backing data is untouched")
}

func TestFolderFeedList(t *testing.T) {
	folder := NewFolder("data")
	a := newMemFeed("a")
	b := newMemFeed("b")

	folder.Attach(a)
	folder.Attach(b)
	assert.Equal(t, Feed(a), folder.PrimaryFeed())

	folder.SetPrimaryFeed(b)
	assert.Equal(t, []Feed{b, a}, folder.Feeds())

	folder.Detach(b)
	assert.Equal(t, []Feed{a}, folder.Feeds())
}

func TestFileOriginFeedIsWeak(t *testing.T) {
	folder := NewFolder("data")
	feed := newMemFeed("a")
	folder.Attach(feed)

	file, err := folder.CreateFile("x", FailIfExists)
	require.NoError(t, err)
	require.Equal(t, Feed(feed), file.OriginFeed())

	folder.Detach(feed)
	assert.Nil(t, file.OriginFeed(), "detached origin resolves to nil")

	// Without a live origin feed, destroying only drops the in-memory
	// object.
	require.NoError(t, folder.DestroyFile("x"))
	assert.Contains(t, feed.files, "x")
}

func TestFileNamespace(t *testing.T) {
	file := NewFile("x")

	ns := file.Namespace()
	ns.Set("title", "Example")

	v, ok := file.Namespace().Get("title")
	require.True(t, ok)
	assert.Equal(t, "Example", v)
	assert.Equal(t, []string{"title"}, file.Namespace().Keys())

	ns.Delete("title")
	assert.False(t, ns.Has("title"))
}

func TestFilePath(t *testing.T) {
	root := NewFolder("")
	sub := NewFolder("a")
	root.insert(&sub.File)
	leaf := NewFile("b.txt")
	sub.insert(leaf)

	assert.Equal(t, "/", root.Path())
	assert.Equal(t, "/a", sub.Path())
	assert.Equal(t, "/a/b.txt", leaf.Path())
}

func TestDestroyReleasesSubtree(t *testing.T) {
	root := NewFolder("")
	sub := NewFolder("a")
	root.insert(&sub.File)
	leaf := NewFile("b.txt")
	sub.insert(leaf)

	root.remove(&sub.File)
	destroy(&sub.File)

	assert.Nil(t, leaf.Parent())
	assert.Zero(t, sub.ChildCount())

	_, err := leaf.Open()
	assert.True(t, errors.Is(err, fs.ErrInvalid))
}
