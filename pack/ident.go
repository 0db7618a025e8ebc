// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pack

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/halver/treefs/vfs"
)

// PackSuffix marks folder and archive names that form packages.
const PackSuffix = ".pack"

var versionSuffix = regexp.MustCompile(`^[0-9]+(\.[0-9]+){0,2}$`)

// IdentifierForFile derives the canonical package identifier for a file:
// the lowercased name with everything after the first underscore and the
// extension stripped, prefixed by the identifiers of enclosing package
// containers.
func IdentifierForFile(file *vfs.File) string {
	id := stripName(file.Name())

	for parent := file.Parent(); parent != nil; parent = parent.Parent() {
		if strings.HasSuffix(strings.ToLower(parent.Name()), PackSuffix) {
			id = stripName(parent.Name()) + "." + id
		}
	}

	return id
}

// VersionedIdentifierForFile derives the identifier like
// [IdentifierForFile] along with the version parsed from a trailing
// "_X.Y.Z" name suffix. The version is empty if the name carries none;
// callers fall back to the declared metadata version then.
func VersionedIdentifierForFile(file *vfs.File) (string, string) {
	name := stripExtension(file.Name())

	version := ""
	if i := strings.LastIndex(name, "_"); i >= 0 && versionSuffix.MatchString(name[i+1:]) {
		version = name[i+1:]
	}

	return IdentifierForFile(file), version
}

// stripName reduces a file name to its identifier segment.
func stripName(name string) string {
	name = stripExtension(name)

	if i := strings.Index(name, "_"); i >= 0 {
		name = name[:i]
	}

	return strings.ToLower(name)
}

func stripExtension(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}

	return name
}

// Version is a parsed dotted package version.
type Version struct {
	Major, Minor, Patch int
}

// ParseVersion parses a version of the form "X", "X.Y" or "X.Y.Z".
func ParseVersion(s string) (Version, error) {
	if !versionSuffix.MatchString(s) {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}

	var v Version

	targets := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, part := range strings.SplitN(s, ".", 3) {
		*targets[i], _ = strconv.Atoi(part)
	}

	return v, nil
}

// Compare returns -1, 0 or 1 ordering v against other.
func (v Version) Compare(other Version) int {
	pairs := [][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
	}

	for _, pair := range pairs {
		switch {
		case pair[0] < pair[1]:
			return -1
		case pair[0] > pair[1]:
			return 1
		}
	}

	return 0
}

// String formats the version as "X.Y.Z".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
