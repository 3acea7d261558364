// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the command tree in dir and returns stdout, stderr and
// the error Execute returned.
func runCLI(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	cmd := a.rootCmd()
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err = cmd.Execute()
	a.close()
	if err != nil {
		a.printError(err)
	}
	return stdout.String(), stderr.String(), err
}

func writeInput(t *testing.T, dir, name, source string) {
	t.Helper()
	inputDir := filepath.Join(dir, "input-files")
	require.NoError(t, os.MkdirAll(inputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, name), []byte(source), 0o644))
}

func TestCLI_MissingArgument(t *testing.T) {
	dir := t.TempDir()
	stdout, stderr, err := runCLI(t, dir)
	assert.ErrorIs(t, err, errMissingArgument)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "missing source file argument")
}

func TestCLI_AnalyzeWritesArtifact(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "math.py", "def add(a, b):\n    return a + b\n")

	stdout, _, err := runCLI(t, dir, "math.py")
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(dir, "parsed-files", "math.json"))
	require.NoError(t, err)
	assert.Equal(t, string(written)+"\n", stdout)
	assert.Contains(t, stdout, `"name": "add"`)
}

func TestCLI_AnalyzeSubcommandYAML(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "m.py", "class A:\n    def f(self):\n        pass\n")

	stdout, _, err := runCLI(t, dir, "analyze", "--format", "yaml", "m.py")
	require.NoError(t, err)
	assert.Contains(t, stdout, "name: A")
	assert.FileExists(t, filepath.Join(dir, "parsed-files", "m.yaml"))
}

func TestCLI_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, stderr, err := runCLI(t, dir, "absent.py")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, stderr, "absent.py")
}

func TestCLI_InvalidFormat(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "m.py", "x = 1\n")
	_, _, err := runCLI(t, dir, "--format", "xml", "m.py")
	assert.Error(t, err)
}

func TestCLI_History(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "store")
	writeInput(t, dir, "m.py", "import os\n")

	_, _, err := runCLI(t, dir, "--store", store, "m.py")
	require.NoError(t, err)

	stdout, _, err := runCLI(t, dir, "--store", store, "history", "list", "m.py")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	id := strings.Fields(lines[1])[0]

	stdout, _, err = runCLI(t, dir, "--store", store, "history", "show", id)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"name": "os"`)

	_, _, err = runCLI(t, dir, "history", "list", "m.py")
	assert.Error(t, err, "history without a store is an error")
}
