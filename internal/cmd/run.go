// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/halver/treefs/pack"
	"github.com/halver/treefs/vfs"
	"github.com/halver/treefs/watch"
)

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func newFileSystem(flags *flags, cfg IO) (*vfs.FileSystem, *vfs.Folder, error) {
	fsys := vfs.New()

	var index *vfs.FileIndex
	if flags.showIndex {
		index = vfs.NewFileIndex()
		fsys.AddUserIndex(index)
	}

	folder, err := fsys.MakeFolder(flags.mountPoint)
	if err != nil {
		_ = fsys.Close()
		return nil, nil, fmt.Errorf("make mount folder: %w", err)
	}

	for _, dir := range flags.dirs {
		feed := vfs.NewDirectoryFeed(dir, vfs.DirFeedOptions{
			AllowWrite:         flags.allowWrite,
			PopulateSubfolders: flags.subfolders,
			Glob:               flags.glob,
		})

		folder.Attach(feed)
	}

	err = fsys.Populate(folder, vfs.PopulateFullTree)
	if err != nil {
		_ = fsys.Close()
		return nil, nil, fmt.Errorf("populate: %w", err)
	}

	if index != nil {
		index.Print(cfg.Stdout)
	}

	return fsys, folder, nil
}

func printTree(w io.Writer, folder *vfs.Folder, indent string) {
	for _, file := range folder.Children() {
		status := file.Status()

		if sub := file.AsFolder(); sub != nil {
			fmt.Fprintf(w, "%s%s/\n", indent, file.Name())
			printTree(w, sub, indent+"  ")

			continue
		}

		fmt.Fprintf(w, "%s%s (%d bytes)\n", indent, file.Name(), status.Size)
	}
}

func printPacks(w io.Writer, folder *vfs.Folder) {
	for _, file := range folder.Children() {
		sub := file.AsFolder()
		if sub == nil {
			continue
		}

		pkg := pack.New(sub)

		meta, err := pkg.Meta()
		if err != nil {
			slog.Warn("invalid package metadata",
				slog.String("path", file.Path()),
				slog.Any("error", err))
		} else if meta != nil {
			fmt.Fprintf(w, "%s %s (%s)\n",
				pkg.Identifier(), pkg.Version(), file.Path())
		}

		printPacks(w, sub)
	}
}

func findFiles(w io.Writer, fsys *vfs.FileSystem, partialPath string) {
	for _, file := range fsys.FindAll(partialPath) {
		fmt.Fprintln(w, file.Path())
	}
}

func watchDirs(ctx context.Context, fsys *vfs.FileSystem, flags *flags) error {
	watcher, err := watch.New(fsys, flags.debounce)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	for _, dir := range flags.dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("watch: %w", err)
		}
	}

	watcher.Start()

	<-ctx.Done()

	if err := watcher.Close(); err != nil {
		return err
	}

	return ctx.Err()
}

func run(ctx context.Context, flags *flags, cfg IO) error {
	fsys, folder, err := newFileSystem(flags, cfg)
	if err != nil {
		return err
	}

	defer func() {
		if err := fsys.Close(); err != nil {
			slog.Error("Failed to close file system", slog.Any("error", err))
		}
	}()

	if flags.find != "" {
		findFiles(cfg.Stdout, fsys, flags.find)
		return nil
	}

	printTree(cfg.Stdout, folder, "")
	printPacks(cfg.Stdout, folder)

	if flags.watch {
		return watchDirs(ctx, fsys, flags)
	}

	return nil
}

// Run is the main entry point for the CLI command.
func Run(ctx context.Context, name string, args []string, cfg IO) int {
	flags, err := parseArgs(name, args, cfg.Stderr)
	if err != nil {
		// Help is not an error. The flag set already printed everything
		// else.
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}

		return -1
	}

	setupLogging(cfg.Stderr, flags.logLevel())

	if err := flags.validate(); err != nil {
		slog.Error(err.Error())
		return -1
	}

	if flags.versionFlag {
		buildInfo, err := getBuildInfo()
		if err != nil {
			slog.Error(err.Error())
			return -1
		}

		fmt.Fprintf(cfg.Stdout, "Version: %s\n", buildInfo.Main.Version)

		return 0
	}

	err = run(ctx, flags, cfg)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error(err.Error())
		return -1
	}

	return 0
}

func getBuildInfo() (*debug.BuildInfo, error) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, ErrReadBuildInfo
	}

	return buildInfo, nil
}
