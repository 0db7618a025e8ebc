// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux

package vfs

import "golang.org/x/sys/unix"

// nativeWritable reports whether the calling process may write into the
// given native directory.
func nativeWritable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}
