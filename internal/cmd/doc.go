// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cmd provides the CLI command entry point for treefs. It handles
// flag parsing, error handling, and output handling.
package cmd
