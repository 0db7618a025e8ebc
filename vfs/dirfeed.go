// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StatusOverrideSuffix is the name suffix of sidecar files that record an
// externally authoritative modification time for their native neighbor.
// The sidecar's entire UTF-8 content is one RFC 3339 timestamp.
const StatusOverrideSuffix = ".modtime"

// DirFeedOptions configure a [DirectoryFeed].
type DirFeedOptions struct {
	// AllowWrite enables creating and deleting native files.
	AllowWrite bool
	// CreateIfMissing creates the native directory on first population if
	// it does not exist. Requires AllowWrite.
	CreateIfMissing bool
	// PopulateSubfolders recurses into native subdirectories, producing
	// nested folders each backed by its own sub-feed.
	PopulateSubfolders bool
	// Glob restricts populated native files, not directories, to names
	// matching the pattern, in [filepath.Match] syntax.
	Glob string
}

// DirectoryFeed populates a folder from a native directory tree. Each
// native directory level is served by its own feed instance so levels can
// be pruned and repopulated independently.
type DirectoryFeed struct {
	path string
	opts DirFeedOptions
}

var _ WritableFeed = (*DirectoryFeed)(nil)

// NewDirectoryFeed creates a feed over the given native directory path.
func NewDirectoryFeed(path string, opts DirFeedOptions) *DirectoryFeed {
	return &DirectoryFeed{
		path: filepath.Clean(path),
		opts: opts,
	}
}

// NativePath returns the native directory path backing the feed.
func (d *DirectoryFeed) NativePath() string { return d.path }

// Description implements [Feed].
func (d *DirectoryFeed) Description() string {
	return "directory " + d.path
}

// CanWrite implements [WritableFeed].
func (d *DirectoryFeed) CanWrite() bool { return d.opts.AllowWrite }

// Populate implements [Feed]. It lists native directory entries matching
// the configured glob and returns files for the ones the folder does not
// have yet. Status-override sidecars are consumed, never populated
// themselves.
func (d *DirectoryFeed) Populate(folder *Folder) ([]*File, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if d.opts.CreateIfMissing && d.opts.AllowWrite && errors.Is(err, fs.ErrNotExist) {
			if err := os.MkdirAll(d.path, 0o755); err != nil {
				return nil, fmt.Errorf("create %s: %w", d.path, err)
			}

			return nil, nil
		}

		return nil, fmt.Errorf("populate %s: %w", d.path, err)
	}

	var files []*File

	for _, entry := range entries {
		name := entry.Name()

		if strings.HasSuffix(name, StatusOverrideSuffix) {
			continue
		}

		if folder.Has(name) {
			continue
		}

		if entry.IsDir() {
			if !d.opts.PopulateSubfolders {
				continue
			}

			files = append(files, &d.newSubfolder(name).File)

			continue
		}

		if d.opts.Glob != "" {
			matched, err := filepath.Match(d.opts.Glob, name)
			if err != nil {
				return nil, fmt.Errorf("glob %q: %w", d.opts.Glob, err)
			}

			if !matched {
				continue
			}
		}

		file, err := d.newNativeFile(name)
		if err != nil {
			return nil, err
		}

		files = append(files, file)
	}

	return files, nil
}

// Prune implements [Feed].
//
// A file sourced from a native file is stale iff its on-disk size or
// modification time differs from the cached status. A subfolder is stale
// iff it has exactly one feed and that feed's backing native directory no
// longer exists.
func (d *DirectoryFeed) Prune(file *File) bool {
	if dir := file.AsFolder(); dir != nil {
		feeds := dir.Feeds()
		if len(feeds) != 1 {
			return false
		}

		switch sub := feeds[0].(type) {
		case *DirectoryFeed:
			info, err := os.Stat(sub.path)

			return err != nil || !info.IsDir()

		case *ArchiveFeed:
			// An interpreted archive folder is stale when the backing
			// native archive file changed since it was scanned.
			status, err := d.nativeStatus(file.Name())
			if err != nil {
				return true
			}

			source := sub.SourceStatus()

			return status.Size != source.Size || !status.ModTime.Equal(source.ModTime)
		}

		return false
	}

	status, err := d.nativeStatus(file.Name())
	if err != nil {
		return true
	}

	cached := file.Status()

	return status.Size != cached.Size || !status.ModTime.Equal(cached.ModTime)
}

// NewFile implements [WritableFeed]. It creates an empty native file and
// returns the wrapping [File].
func (d *DirectoryFeed) NewFile(name string) (*File, error) {
	path := filepath.Join(d.path, name)

	if !d.opts.AllowWrite || !nativeWritable(d.path) {
		return nil, &PathError{Op: "create", Path: path, Err: ErrWriteDenied}
	}

	native, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &PathError{Op: "create", Path: path, Err: err}
	}

	if err := native.Close(); err != nil {
		return nil, &PathError{Op: "create", Path: path, Err: err}
	}

	return d.newNativeFile(name)
}

// RemoveFile implements [WritableFeed]. Removing an already absent native
// file is a no-op.
func (d *DirectoryFeed) RemoveFile(name string) error {
	if !d.opts.AllowWrite {
		return &PathError{Op: "remove", Path: filepath.Join(d.path, name), Err: ErrWriteDenied}
	}

	err := os.Remove(filepath.Join(d.path, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w %s: %w", ErrRemove, name, err)
	}

	return nil
}

// WriteStatusOverride records an authoritative modification time for the
// named native file in a sidecar next to it. Population and pruning use the
// recorded time instead of what the native file system reports.
func (d *DirectoryFeed) WriteStatusOverride(name string, modTime time.Time) error {
	if !d.opts.AllowWrite {
		return &PathError{Op: "override", Path: filepath.Join(d.path, name), Err: ErrWriteDenied}
	}

	path := filepath.Join(d.path, name+StatusOverrideSuffix)

	err := os.WriteFile(path, []byte(modTime.UTC().Format(time.RFC3339)), 0o644)
	if err != nil {
		return fmt.Errorf("write status override: %w", err)
	}

	return nil
}

// newSubfolder creates a nested folder backed by a feed scoped to the
// corresponding native subdirectory.
func (d *DirectoryFeed) newSubfolder(name string) *Folder {
	folder := NewFolder(name)
	folder.Attach(NewDirectoryFeed(filepath.Join(d.path, name), d.opts))

	if !d.opts.AllowWrite {
		folder.SetMode(ModeReadOnly)
	}

	return folder
}

// newNativeFile wraps the named native file, applying a status-override
// sidecar if one exists.
func (d *DirectoryFeed) newNativeFile(name string) (*File, error) {
	status, err := d.nativeStatus(name)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(d.path, name)

	file := NewFile(name)
	file.SetStatus(status)
	file.SetOpenFunc(func() (fs.File, error) { return os.Open(path) })

	if !d.opts.AllowWrite {
		file.SetMode(ModeReadOnly)
	}

	return file, nil
}

// nativeStatus reads the native status of the named entry, honoring a
// status-override sidecar.
func (d *DirectoryFeed) nativeStatus(name string) (Status, error) {
	path := filepath.Join(d.path, name)

	info, err := os.Stat(path)
	if err != nil {
		return Status{}, fmt.Errorf("%w for %s: %w", ErrStatus, path, err)
	}

	status := Status{
		Type:    TypeFile,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}

	if info.IsDir() {
		status.Type = TypeFolder
	}

	if override, ok := readStatusOverride(path + StatusOverrideSuffix); ok {
		status.ModTime = override
	}

	return status, nil
}

// readStatusOverride parses a status-override sidecar. Unreadable or
// malformed sidecars are ignored.
func readStatusOverride(path string) (time.Time, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, false
	}

	stamp, err := time.Parse(time.RFC3339, strings.TrimSpace(string(content)))
	if err != nil {
		return time.Time{}, false
	}

	return stamp, true
}
