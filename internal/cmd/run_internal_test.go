// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIO(t *testing.T) (IO, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	cfg := IO{
		Stdin:  bytes.NewReader(nil),
		Stdout: stdout,
		Stderr: stderr,
	}

	return cfg, stdout, stderr
}

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestRunPrintsTree(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "aaaa")
	writeTestFile(t, dir, "sub/b.txt", "bb")

	cfg, stdout, stderr := testIO(t)

	exitCode := Run(context.Background(), "treefs", []string{dir}, cfg)

	require.Equal(t, 0, exitCode, stderr.String())
	assert.Contains(t, stdout.String(), "a.txt (4 bytes)")
	assert.Contains(t, stdout.String(), "sub/")
	assert.Contains(t, stdout.String(), "  b.txt (2 bytes)")
}

func TestRunPrintsPackages(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "demo.pack/Info.dei",
		"id: examples.demo\n"+
			"title: Demo\n"+
			"version: 1.2.0\n"+
			"license: CC0\n"+
			"tags: example\n")

	cfg, stdout, stderr := testIO(t)

	exitCode := Run(context.Background(), "treefs", []string{dir}, cfg)

	require.Equal(t, 0, exitCode, stderr.String())
	assert.Contains(t, stdout.String(), "examples.demo 1.2.0")
}

func TestRunFindMode(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "gfx/icon.png", "x")
	writeTestFile(t, dir, "sfx/icon.png", "x")

	cfg, stdout, stderr := testIO(t)

	exitCode := Run(
		context.Background(),
		"treefs",
		[]string{"-find", "gfx/icon.png", dir},
		cfg,
	)

	require.Equal(t, 0, exitCode, stderr.String())
	assert.Contains(t, stdout.String(), "/data/gfx/icon.png")
	assert.NotContains(t, stdout.String(), "/data/sfx/icon.png")
}

func TestRunShowIndex(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "aaaa")

	cfg, stdout, stderr := testIO(t)

	exitCode := Run(
		context.Background(),
		"treefs",
		[]string{"-index", dir},
		cfg,
	)

	require.Equal(t, 0, exitCode, stderr.String())
	assert.Contains(t, stdout.String(), `"a.txt"`)
}

func TestRunGlob(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "keep.txt", "x")
	writeTestFile(t, dir, "skip.bin", "x")

	cfg, stdout, stderr := testIO(t)

	exitCode := Run(
		context.Background(),
		"treefs",
		[]string{"-glob", "*.txt", dir},
		cfg,
	)

	require.Equal(t, 0, exitCode, stderr.String())
	assert.Contains(t, stdout.String(), "keep.txt")
	assert.NotContains(t, stdout.String(), "skip.bin")
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "no directory",
			args: []string{},
		},
		{
			name: "missing directory",
			args: []string{filepath.Join(t.TempDir(), "absent")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _, _ := testIO(t)

			exitCode := Run(context.Background(), "treefs", tt.args, cfg)
			assert.Equal(t, -1, exitCode)
		})
	}
}

func TestRunHelp(t *testing.T) {
	cfg, _, stderr := testIO(t)

	exitCode := Run(context.Background(), "treefs", []string{"-help"}, cfg)

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stderr.String(), "Usage")
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer

	setupLogging(&buf, slog.LevelDebug)
	slog.Debug("visible")
	assert.Contains(t, buf.String(), "visible")

	buf.Reset()
	setupLogging(&buf, slog.LevelWarn)
	slog.Debug("hidden")
	slog.Warn("kept")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "kept")
}

func TestFlagsLogLevel(t *testing.T) {
	flags := &flags{}
	assert.Equal(t, slog.LevelWarn, flags.logLevel())

	flags.debugFlag = true
	assert.Equal(t, slog.LevelDebug, flags.logLevel())
}

func TestParseArgs(t *testing.T) {
	flags, err := parseArgs(
		"treefs",
		[]string{"-mount", "/mods", "-write", "-watch", "some/dir"},
		io.Discard,
	)
	require.NoError(t, err)

	assert.Equal(t, "/mods", flags.mountPoint)
	assert.True(t, flags.allowWrite)
	assert.True(t, flags.watch)
	assert.Equal(t, []string{"some/dir"}, flags.dirs)
}
