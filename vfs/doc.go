// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package vfs provides a unified, hierarchical virtual namespace that
// merges native directories, archive contents, and synthetic content behind
// one [Folder]/[File] tree.
//
// Folders are populated from pluggable [Feed] implementations. A populate
// cycle first prunes children the feeds judge stale, then inserts new files
// the feeds discovered; the two decisions are strictly separated. Raw files
// pass through an interpreter chain on insertion, which is how archive
// files turn into browsable folders.
//
// Population runs synchronously or on a background task pool owned by the
// [FileSystem]. The file system tracks a busy level over in-flight tasks
// and delivers busy/idle transitions and after-population continuations on
// a single notification dispatcher.
package vfs
