// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

import (
	"archive/zip"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/cavaliergopher/cpio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, dir, name string, members map[string]string) {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	for member, content := range members {
		w, err := writer.Create(member)
		require.NoError(t, err)

		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	writeNative(t, dir, name, buf.Bytes())
}

func writeCPIO(t *testing.T, dir, name string, members map[string]string) {
	t.Helper()

	var buf bytes.Buffer
	writer := cpio.NewWriter(&buf)

	for member, content := range members {
		err := writer.WriteHeader(&cpio.Header{
			Name: member,
			Mode: cpio.TypeReg | 0o644,
			Size: int64(len(content)),
		})
		require.NoError(t, err)

		_, err = writer.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	writeNative(t, dir, name, buf.Bytes())
}

func readAll(t *testing.T, file *File) string {
	t.Helper()

	src, err := file.Open()
	require.NoError(t, err)
	defer src.Close()

	content, err := io.ReadAll(src)
	require.NoError(t, err)

	return string(content)
}

func TestZipInterpretation(t *testing.T) {
	fsys := New()
	defer fsys.Close()

	dir := t.TempDir()
	writeZip(t, dir, "assets.pack", map[string]string{
		"Info.dei":         "id: example.assets",
		"gfx/icon.png":     "png-bytes",
		"gfx/deep/tile.px": "tile-bytes",
	})

	feed := NewDirectoryFeed(dir, DirFeedOptions{})

	folder, err := fsys.MakeFolderWithFeed("/packs", feed, PopulateFullTree)
	require.NoError(t, err)

	pack, err := folder.LocateFolder("assets.pack")
	require.NoError(t, err)
	assert.Equal(t, "ArchiveFolder", pack.TypeName())
	assert.NotZero(t, pack.Mode()&ModeReadOnly)
	assert.Equal(t, Feed(feed), pack.OriginFeed(),
		"interpreted folder keeps the producing feed as origin")

	info, err := pack.Locate("info.dei")
	require.NoError(t, err)
	assert.Equal(t, "id: example.assets", readAll(t, info))
	assert.Equal(t, int64(len("id: example.assets")), info.Status().Size)

	deep, err := fsys.Find("/packs/assets.pack/gfx/deep/tile.px")
	require.NoError(t, err)
	assert.Equal(t, "tile-bytes", readAll(t, deep))

	assert.Len(t, fsys.FindAllOfType("ArchiveFolder", "assets.pack"), 1)
}

func TestCPIOInterpretation(t *testing.T) {
	fsys := New()
	defer fsys.Close()

	dir := t.TempDir()
	writeCPIO(t, dir, "bundle.cpio", map[string]string{
		"top.txt":      "top",
		"sub/leaf.txt": "leaf",
	})

	_, err := fsys.MakeFolderWithFeed("/packs",
		NewDirectoryFeed(dir, DirFeedOptions{}),
		PopulateFullTree)
	require.NoError(t, err)

	top, err := fsys.Find("/packs/bundle.cpio/top.txt")
	require.NoError(t, err)
	assert.Equal(t, "top", readAll(t, top))

	leaf, err := fsys.Find("/packs/bundle.cpio/sub/leaf.txt")
	require.NoError(t, err)
	assert.Equal(t, "leaf", readAll(t, leaf))
}

func TestArchiveNotRecognized(t *testing.T) {
	fsys := New()
	defer fsys.Close()

	dir := t.TempDir()
	writeNative(t, dir, "plain.txt", []byte("PK but not really"))
	writeNative(t, dir, "short", []byte("PK"))

	folder, err := fsys.MakeFolderWithFeed("/data",
		NewDirectoryFeed(dir, DirFeedOptions{}),
		PopulateFullTree)
	require.NoError(t, err)

	for _, name := range []string{"plain.txt", "short"} {
		file, ok := folder.Child(name)
		require.True(t, ok, name)
		assert.False(t, file.IsFolder(), name)
	}
}

func TestArchiveFolderPrunedWhenArchiveChanges(t *testing.T) {
	fsys := New()
	defer fsys.Close()

	dir := t.TempDir()
	writeZip(t, dir, "assets.pack", map[string]string{"one.txt": "1"})

	folder, err := fsys.MakeFolderWithFeed("/packs",
		NewDirectoryFeed(dir, DirFeedOptions{}),
		PopulateFullTree)
	require.NoError(t, err)

	before, err := folder.LocateFolder("assets.pack")
	require.NoError(t, err)

	writeZip(t, dir, "assets.pack", map[string]string{
		"one.txt": "1",
		"two.txt": "22",
	})

	require.NoError(t, fsys.Populate(folder, PopulateFullTree))

	after, err := folder.LocateFolder("assets.pack")
	require.NoError(t, err)
	assert.NotSame(t, before, after, "changed archive is rescanned")

	_, err = after.Locate("two.txt")
	assert.NoError(t, err)
}

func TestArchiveFeedIsReadOnly(t *testing.T) {
	fsys := New()
	defer fsys.Close()

	dir := t.TempDir()
	writeZip(t, dir, "assets.pack", map[string]string{"one.txt": "1"})

	folder, err := fsys.MakeFolderWithFeed("/packs",
		NewDirectoryFeed(dir, DirFeedOptions{}),
		PopulateFullTree)
	require.NoError(t, err)

	pack, err := folder.LocateFolder("assets.pack")
	require.NoError(t, err)

	_, err = pack.CreateFile("new.txt", FailIfExists)
	assert.ErrorIs(t, err, ErrWriteDenied)

	err = pack.DestroyFile("one.txt")
	assert.ErrorIs(t, err, ErrWriteDenied)
}

func TestScanArchiveSyntheticParents(t *testing.T) {
	file := NewFile("deep.zip")

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	w, err := writer.Create("a/b/c.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	path := filepath.Join(t.TempDir(), "deep.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	file.SetOpenFunc(func() (fs.File, error) { return os.Open(path) })

	arc, err := scanArchive(file, "zip")
	require.NoError(t, err)

	assert.True(t, arc.entries["a"].isDir)
	assert.True(t, arc.entries["a/b"].isDir)
	assert.False(t, arc.entries["a/b/c.txt"].isDir)
}
