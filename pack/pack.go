// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package pack is the semantic layer over vfs folders that identify
// themselves as versioned, dependency-aware packages. It parses the
// declarative metadata resource and the optional initializer script
// colocated with a package, validates the declaration, and answers
// identifier, version and dependency queries.
package pack

import (
	"github.com/halver/treefs/vfs"
)

// Package is a metadata view over a vfs folder. Metadata is parsed lazily
// on first access and cached on the folder.
type Package struct {
	folder *vfs.Folder
}

// New creates a package view over the given folder. It does not parse
// anything yet.
func New(folder *vfs.Folder) *Package {
	return &Package{folder: folder}
}

// Folder returns the underlying folder.
func (p *Package) Folder() *vfs.Folder { return p.folder }

// Meta returns the package's declared metadata, parsing it if needed. A
// package without any metadata source yields (nil, nil).
func (p *Package) Meta() (*Meta, error) {
	return ParseMetadata(p.folder)
}

// Identifier returns the declared identifier, falling back to the one
// derived from the folder name.
func (p *Package) Identifier() string {
	if meta, err := p.Meta(); err == nil && meta != nil && meta.ID != "" {
		return meta.ID
	}

	return IdentifierForFile(&p.folder.File)
}

// Version returns the version parsed from the folder name suffix, falling
// back to the declared metadata version.
func (p *Package) Version() string {
	if _, version := VersionedIdentifierForFile(&p.folder.File); version != "" {
		return version
	}

	if meta, err := p.Meta(); err == nil && meta != nil {
		return meta.Version
	}

	return ""
}

// Requires returns the identifiers of the packages this one depends on.
func (p *Package) Requires() []string {
	meta, err := p.Meta()
	if err != nil || meta == nil {
		return nil
	}

	return meta.Requires
}
