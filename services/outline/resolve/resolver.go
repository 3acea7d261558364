// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolve locates the on-disk source of Python import names.
//
// Resolution only stats the filesystem. It never reads module contents
// and never follows a resolved module's own imports.
package resolve

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/pyoutline/services/outline/ast"
)

// Resolver maps import identifiers to canonical module paths.
//
// Thread Safety: A Resolver is immutable after construction and safe for
// concurrent use.
type Resolver struct {
	roots []string
}

// NewResolver creates a Resolver searching roots, in order, for absolute
// imports. Empty entries are dropped.
func NewResolver(roots ...string) *Resolver {
	kept := make([]string, 0, len(roots))
	for _, r := range roots {
		if r != "" {
			kept = append(kept, r)
		}
	}
	return &Resolver{roots: kept}
}

// Roots returns a copy of the project roots.
func (r *Resolver) Roots() []string {
	out := make([]string, len(r.roots))
	copy(out, r.roots)
	return out
}

// Resolve locates the module named by importName as seen from currentFile.
//
// Description:
//
//	Names with leading dots are relative: with L dots, the search starts
//	L-1 directories above currentFile's directory. A bare run of dots names
//	the package in that directory and resolves only to its __init__.py.
//	Other names are joined (dots become separators) onto each project root
//	in order and the first module lookup that succeeds wins.
//
// Outputs:
//   - string: Canonical (absolute, symlink-free) path of the module.
//   - bool: false when nothing on disk satisfies the lookup rules.
func (r *Resolver) Resolve(currentFile, importName string) (string, bool) {
	var (
		path string
		ok   bool
	)
	if strings.HasPrefix(importName, ".") {
		path, ok = resolveRelative(currentFile, importName)
	} else {
		path, ok = r.resolveAbsolute(importName)
	}

	slog.Debug("import resolution",
		slog.String("file", currentFile),
		slog.String("import", importName),
		slog.Bool("resolved", ok),
		slog.String("path", path),
	)
	return path, ok
}

func resolveRelative(currentFile, importName string) (string, bool) {
	remaining := strings.TrimLeft(importName, ".")
	levels := len(importName) - len(remaining)

	dir := filepath.Dir(currentFile)
	for i := 0; i < levels-1; i++ {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}

	if remaining == "" {
		return findPackageMarker(dir)
	}
	return findModule(filepath.Join(dir, dottedToPath(remaining)))
}

func (r *Resolver) resolveAbsolute(importName string) (string, bool) {
	if importName == "" {
		return "", false
	}
	rel := dottedToPath(importName)
	for _, root := range r.roots {
		if found, ok := findModule(filepath.Join(root, rel)); ok {
			return found, true
		}
	}
	return "", false
}

// findModule applies the module lookup at base: base.py as a regular
// file, then base/__init__.py, then base as a directory.
func findModule(base string) (string, bool) {
	if info, err := os.Stat(base + ast.SourceExtension); err == nil && info.Mode().IsRegular() {
		return canonical(base + ast.SourceExtension)
	}
	if found, ok := findPackageMarker(base); ok {
		return found, true
	}
	if info, err := os.Stat(base); err == nil && info.IsDir() {
		return canonical(base)
	}
	return "", false
}

func findPackageMarker(dir string) (string, bool) {
	marker := filepath.Join(dir, ast.PackageMarker)
	if _, err := os.Stat(marker); err != nil {
		return "", false
	}
	return canonical(marker)
}

func canonical(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", false
	}
	return resolved, true
}

func dottedToPath(name string) string {
	return strings.ReplaceAll(name, ".", string(filepath.Separator))
}
