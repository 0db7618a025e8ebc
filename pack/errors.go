// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pack

import "errors"

var (
	// ErrMissingIdentifier is returned if a package declares no identifier
	// or an identifier without a domain.
	ErrMissingIdentifier = errors.New("missing package identifier")

	// ErrInvalidDomain is returned if a package identifier starts with a
	// reserved functional domain.
	ErrInvalidDomain = errors.New("invalid identifier domain")

	// ErrIncompleteMeta is returned if a required metadata field is
	// missing.
	ErrIncompleteMeta = errors.New("incomplete metadata")

	// ErrReservedTag is returned if package metadata uses a tag that only
	// the loader may write.
	ErrReservedTag = errors.New("reserved tag")
)
