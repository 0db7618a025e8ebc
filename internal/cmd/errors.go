// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import "errors"

var (
	// ErrNoDirectory is returned if no native directory argument is given.
	ErrNoDirectory = errors.New("no directory given")

	// ErrReadBuildInfo is returned if build info can not be read.
	ErrReadBuildInfo = errors.New("build info not available")
)
