// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"
)

type flags struct {
	dirs []string

	mountPoint string
	glob       string
	allowWrite bool
	subfolders bool
	watch      bool
	debounce   time.Duration
	showIndex  bool
	find       string

	versionFlag bool
	debugFlag   bool
}

func parseArgs(name string, args []string, output io.Writer) (*flags, error) {
	flags := &flags{
		mountPoint: "/data",
		subfolders: true,
		debounce:   250 * time.Millisecond,
	}

	fsName := name + " [flags...] directory..."
	fs := flag.NewFlagSet(fsName, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(
		&flags.mountPoint,
		"mount",
		flags.mountPoint,
		"virtual folder the directories are attached to",
	)

	fs.StringVar(
		&flags.glob,
		"glob",
		flags.glob,
		"only populate files matching the pattern",
	)

	fs.BoolVar(
		&flags.allowWrite,
		"write",
		flags.allowWrite,
		"attach the directories writable",
	)

	fs.BoolVar(
		&flags.subfolders,
		"subfolders",
		flags.subfolders,
		"populate subdirectories recursively",
	)

	fs.BoolVar(
		&flags.watch,
		"watch",
		flags.watch,
		"keep running and refresh on native changes",
	)

	fs.DurationVar(
		&flags.debounce,
		"debounce",
		flags.debounce,
		"settle time between a native change and the refresh",
	)

	fs.BoolVar(
		&flags.showIndex,
		"index",
		flags.showIndex,
		"print the file index after population",
	)

	fs.StringVar(
		&flags.find,
		"find",
		flags.find,
		"print all files matching the partial path and exit",
	)

	fs.BoolVar(
		&flags.debugFlag,
		"debug",
		flags.debugFlag,
		"enable debug output",
	)

	fs.BoolVar(
		&flags.versionFlag,
		"version",
		flags.versionFlag,
		"show version and exit",
	)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	flags.dirs = fs.Args()

	return flags, nil
}

func (f *flags) logLevel() slog.Level {
	if f.debugFlag {
		return slog.LevelDebug
	}

	return slog.LevelWarn
}

func (f *flags) validate() error {
	if !f.versionFlag && len(f.dirs) == 0 {
		return ErrNoDirectory
	}

	return nil
}
