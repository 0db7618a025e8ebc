// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/cavaliergopher/cpio"
)

// Archive byte signatures checked by the default interpreters.
var (
	zipMagic      = []byte("PK\x03\x04")
	cpioNewcMagic = []byte("070701")
	cpioCrcMagic  = []byte("070702")
)

// archiveEntry describes one member of a scanned archive.
type archiveEntry struct {
	size    int64
	modTime time.Time
	isDir   bool
}

// archive is the scanned member table of one archive file. The raw archive
// bytes are kept in memory; member content is decoded on open. One archive
// is shared by the feeds of all folders nested inside it.
type archive struct {
	name    string
	format  string
	data    []byte
	entries map[string]archiveEntry

	// source is the status of the backing file at scan time, used to
	// detect that the backing archive changed underneath.
	source Status
}

// scanArchive reads the file's whole content and builds the member table
// for the given format, "zip" or "cpio".
func scanArchive(file *File, format string) (*archive, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("scan archive: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("scan archive %s: %w", file.Path(), err)
	}

	arc := &archive{
		name:    file.Name(),
		format:  format,
		data:    data,
		entries: make(map[string]archiveEntry),
		source:  file.Status(),
	}

	switch format {
	case "zip":
		err = arc.scanZip()
	case "cpio":
		err = arc.scanCPIO()
	default:
		err = fmt.Errorf("%w: unknown archive format %q", ErrInvalidArgument, format)
	}

	if err != nil {
		return nil, fmt.Errorf("scan archive %s: %w", file.Path(), err)
	}

	return arc, nil
}

func (a *archive) scanZip() error {
	reader, err := zip.NewReader(bytes.NewReader(a.data), int64(len(a.data)))
	if err != nil {
		return err
	}

	for _, member := range reader.File {
		name := path.Clean(member.Name)
		if name == "." || name == ".." {
			continue
		}

		a.addEntry(name, archiveEntry{
			size:    int64(member.UncompressedSize64),
			modTime: member.Modified,
			isDir:   strings.HasSuffix(member.Name, "/") || member.FileInfo().IsDir(),
		})
	}

	return nil
}

func (a *archive) scanCPIO() error {
	reader := cpio.NewReader(bytes.NewReader(a.data))

	for {
		hdr, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		name := path.Clean(hdr.Name)
		if name == "." || name == ".." || !hdr.Mode.IsDir() && !hdr.Mode.IsRegular() {
			continue
		}

		a.addEntry(name, archiveEntry{
			size:    hdr.Size,
			modTime: hdr.ModTime,
			isDir:   hdr.Mode.IsDir(),
		})
	}
}

// addEntry records a member along with any parent directories the archive
// did not list explicitly.
func (a *archive) addEntry(name string, entry archiveEntry) {
	a.entries[name] = entry

	for dir := path.Dir(name); dir != "."; dir = path.Dir(dir) {
		if _, exists := a.entries[dir]; !exists {
			a.entries[dir] = archiveEntry{isDir: true, modTime: entry.modTime}
		}
	}
}

// open returns the content of the named member.
func (a *archive) open(name string) (fs.File, error) {
	entry, exists := a.entries[name]
	if !exists || entry.isDir {
		return nil, &PathError{Op: "open", Path: name, Err: ErrNotFound}
	}

	switch a.format {
	case "zip":
		reader, err := zip.NewReader(bytes.NewReader(a.data), int64(len(a.data)))
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}

		return reader.Open(name) //nolint:wrapcheck

	case "cpio":
		return a.openCPIO(name, entry)
	}

	return nil, fmt.Errorf("%w: unknown archive format %q", ErrInvalidArgument, a.format)
}

// openCPIO scans the sequential archive up to the member and copies its
// content out.
func (a *archive) openCPIO(name string, entry archiveEntry) (fs.File, error) {
	reader := cpio.NewReader(bytes.NewReader(a.data))

	for {
		hdr, err := reader.Next()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}

		if path.Clean(hdr.Name) != name {
			continue
		}

		content, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}

		return newMemFile(path.Base(name), content, entry.modTime), nil
	}
}

// ArchiveFeed populates a folder from one directory level of an archive.
// Nested archive directories get their own feed over the shared member
// table, mirroring how [DirectoryFeed] scopes one feed per native level.
type ArchiveFeed struct {
	arc *archive
	dir string
}

var _ Feed = (*ArchiveFeed)(nil)

// Description implements [Feed].
func (a *ArchiveFeed) Description() string {
	if a.dir == "" {
		return fmt.Sprintf("%s archive %s", a.arc.format, a.arc.name)
	}

	return fmt.Sprintf("%s archive %s:%s", a.arc.format, a.arc.name, a.dir)
}

// SourceStatus returns the status the backing archive file had when it was
// scanned.
func (a *ArchiveFeed) SourceStatus() Status {
	return a.arc.source
}

// Populate implements [Feed].
func (a *ArchiveFeed) Populate(folder *Folder) ([]*File, error) {
	var files []*File

	for name, entry := range a.arc.entries {
		if path.Dir(name) != a.memberDir() {
			continue
		}

		base := path.Base(name)
		if folder.Has(base) {
			continue
		}

		if entry.isDir {
			sub := NewFolder(base)
			sub.SetMode(ModeReadOnly)
			sub.SetStatus(Status{Type: TypeFolder, ModTime: entry.modTime})
			sub.Attach(&ArchiveFeed{arc: a.arc, dir: name})
			files = append(files, &sub.File)

			continue
		}

		file := NewFile(base)
		file.SetMode(ModeReadOnly)
		file.SetStatus(Status{Type: TypeFile, Size: entry.size, ModTime: entry.modTime})
		file.SetOpenFunc(func() (fs.File, error) { return a.arc.open(name) })
		files = append(files, file)
	}

	return files, nil
}

// Prune implements [Feed]. A member is stale iff it vanished from the
// member table, which only happens when the archive is rescanned.
func (a *ArchiveFeed) Prune(file *File) bool {
	name := path.Join(a.memberDir(), file.Name())
	_, exists := a.arc.entries[name]

	return !exists
}

func (a *ArchiveFeed) memberDir() string {
	if a.dir == "" {
		return "."
	}

	return a.dir
}

// archiveInterpreter recognizes archive byte signatures and replaces the
// raw file with a read-only folder backed by an [ArchiveFeed].
type archiveInterpreter struct {
	format string
	magics [][]byte
}

var _ Interpreter = (*archiveInterpreter)(nil)

// NewZipInterpreter returns the interpreter for zip archives.
func NewZipInterpreter() Interpreter {
	return &archiveInterpreter{format: "zip", magics: [][]byte{zipMagic}}
}

// NewCPIOInterpreter returns the interpreter for cpio newc archives.
func NewCPIOInterpreter() Interpreter {
	return &archiveInterpreter{format: "cpio", magics: [][]byte{cpioNewcMagic, cpioCrcMagic}}
}

// Description implements [Interpreter].
func (i *archiveInterpreter) Description() string {
	return i.format + " interpreter"
}

// Interpret implements [Interpreter].
func (i *archiveInterpreter) Interpret(file *File) (*File, error) {
	if file.IsFolder() {
		return nil, nil
	}

	magic, err := readMagic(file, 6)
	if err != nil {
		return nil, err
	}

	recognized := false

	for _, want := range i.magics {
		if len(magic) >= len(want) && bytes.Equal(magic[:len(want)], want) {
			recognized = true
			break
		}
	}

	if !recognized {
		return nil, nil
	}

	arc, err := scanArchive(file, i.format)
	if err != nil {
		return nil, err
	}

	folder := NewFolder(file.Name())
	folder.SetTypeName("ArchiveFolder")
	folder.SetMode(ModeReadOnly | file.Mode()&ModeDontPrune)
	folder.SetStatus(Status{Type: TypeFolder, Size: file.Status().Size, ModTime: file.Status().ModTime})
	folder.Attach(&ArchiveFeed{arc: arc})

	return &folder.File, nil
}

// memFile is an in-memory [fs.File] for decoded archive member content.
type memFile struct {
	info   memFileInfo
	reader *bytes.Reader
}

func newMemFile(name string, content []byte, modTime time.Time) *memFile {
	return &memFile{
		info: memFileInfo{
			name:    name,
			size:    int64(len(content)),
			modTime: modTime,
		},
		reader: bytes.NewReader(content),
	}
}

func (f *memFile) Stat() (fs.FileInfo, error) { return &f.info, nil }
func (f *memFile) Read(b []byte) (int, error) { return f.reader.Read(b) } //nolint:wrapcheck
func (f *memFile) Close() error               { return nil }

type memFileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (i *memFileInfo) Name() string       { return i.name }
func (i *memFileInfo) Size() int64        { return i.size }
func (i *memFileInfo) Mode() fs.FileMode  { return 0o444 }
func (i *memFileInfo) ModTime() time.Time { return i.modTime }
func (i *memFileInfo) IsDir() bool        { return false }
func (i *memFileInfo) Sys() any           { return nil }
