// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

import (
	"fmt"
	"io"
)

// Interpreter recognizes raw feed-produced files by content and replaces
// them with a richer representation, such as a folder backed by an
// archive-reading feed.
//
// Interpreters are consulted in registration order before a file is
// inserted into its parent; the first one that recognizes the content wins.
type Interpreter interface {
	// Description returns a short description for logs.
	Description() string

	// Interpret inspects the file and returns a replacement for it, or
	// (nil, nil) if the content is not recognized. On error the original
	// file is destroyed by the caller and the error propagates.
	Interpret(file *File) (*File, error)
}

// readMagic returns up to n leading bytes of the file's content. A file
// without content yields an empty slice, not an error.
func readMagic(file *File, n int) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	defer src.Close()

	magic := make([]byte, n)

	read, err := io.ReadFull(src, magic)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("read magic: %w", err)
	}

	return magic[:read], nil
}
