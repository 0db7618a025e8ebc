// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pack

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/halver/treefs/vfs"
)

// Metadata sources looked up inside a package folder, in preference order.
var metaFileNames = []string{"Info.dei", "Info"}

// ScriptFileName is the optional initializer script colocated with a
// package. Its leading front-matter block contributes metadata.
const ScriptFileName = "__init__"

// TagLoaded marks a loaded package. It is written by the loader only;
// package authors must never declare it.
const TagLoaded = "loaded"

// reservedDomains are functional top-level identifier segments that
// package authors cannot claim.
var reservedDomains = map[string]struct{}{
	"feature": {},
	"pkg":     {},
}

// Meta is the declared metadata record of a package.
type Meta struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Version  string   `yaml:"version"`
	License  string   `yaml:"license"`
	Tags     string   `yaml:"tags"`
	Requires []string `yaml:"requires"`
}

// TagList returns the declared tags split on whitespace.
func (m *Meta) TagList() []string {
	return strings.Fields(m.Tags)
}

// namespace keys for the parse cache on the package folder.
const (
	nsMetaKey     = "pack.meta"
	nsParsedAtKey = "pack.parsedAt"
)

// ParseMetadata locates the declarative metadata resource and/or the
// initializer script colocated in the folder and returns the combined
// record. If neither exists it returns (nil, nil).
//
// The parsed record is cached in the folder's namespace with a timestamp
// and only re-parsed if a source's modification time has advanced past it.
func ParseMetadata(folder *vfs.Folder) (*Meta, error) {
	info := findChild(folder, metaFileNames...)
	script := findChild(folder, ScriptFileName)

	if info == nil && script == nil {
		return nil, nil
	}

	newest := sourcesModTime(info, script)

	ns := folder.Namespace()
	if cached, ok := ns.Get(nsMetaKey); ok {
		parsedAt, _ := ns.Get(nsParsedAtKey)
		if stamp, ok := parsedAt.(time.Time); ok && !stamp.Before(newest) {
			return cached.(*Meta), nil
		}
	}

	meta := &Meta{}

	if info != nil {
		if err := parseInto(meta, info, false); err != nil {
			return nil, err
		}
	}

	if script != nil {
		if err := parseInto(meta, script, true); err != nil {
			return nil, err
		}
	}

	ns.Set(nsMetaKey, meta)
	ns.Set(nsParsedAtKey, newest)

	return meta, nil
}

// Validate checks the record against the declaration rules. Each rule has
// its own narrow error so callers can react differently.
func Validate(meta *Meta) error {
	if meta == nil || meta.ID == "" {
		return ErrMissingIdentifier
	}

	segments := strings.Split(meta.ID, ".")
	if len(segments) < 2 {
		return fmt.Errorf("%w: %q has no domain", ErrMissingIdentifier, meta.ID)
	}

	if _, reserved := reservedDomains[strings.ToLower(segments[0])]; reserved {
		return fmt.Errorf("%w: %q", ErrInvalidDomain, segments[0])
	}

	for field, value := range map[string]string{
		"title":   meta.Title,
		"version": meta.Version,
		"license": meta.License,
		"tags":    meta.Tags,
	} {
		if value == "" {
			return fmt.Errorf("%w: missing %s", ErrIncompleteMeta, field)
		}
	}

	for _, tag := range meta.TagList() {
		if tag == TagLoaded {
			return fmt.Errorf("%w: %q", ErrReservedTag, TagLoaded)
		}
	}

	return nil
}

// parseInto reads a metadata source into the record. For scripts only the
// leading front-matter block between "---" lines is consulted; values
// already declared are overridden.
func parseInto(meta *Meta, file *vfs.File, frontMatter bool) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("metadata %s: %w", file.Path(), err)
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("metadata %s: %w", file.Path(), err)
	}

	if frontMatter {
		content = extractFrontMatter(content)
		if content == nil {
			return nil
		}
	}

	if err := yaml.Unmarshal(content, meta); err != nil {
		return fmt.Errorf("metadata %s: %w", file.Path(), err)
	}

	return nil
}

// extractFrontMatter returns the block between the leading "---" line and
// the next one, or nil if the content has no front matter.
func extractFrontMatter(content []byte) []byte {
	scanner := bufio.NewScanner(strings.NewReader(string(content)))

	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "---" {
		return nil
	}

	var block strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			return []byte(block.String())
		}

		block.WriteString(line)
		block.WriteString("\n")
	}

	return nil
}

func findChild(folder *vfs.Folder, names ...string) *vfs.File {
	for _, name := range names {
		if child, ok := folder.Child(name); ok && !child.IsFolder() {
			return child
		}
	}

	return nil
}

func sourcesModTime(files ...*vfs.File) time.Time {
	var newest time.Time

	for _, file := range files {
		if file != nil && file.Status().ModTime.After(newest) {
			newest = file.Status().ModTime
		}
	}

	return newest
}
