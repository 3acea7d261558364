// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package output serializes analysis results and writes them to disk.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/pyoutline/services/outline/extract"
	"gopkg.in/yaml.v3"
)

// Format is a structured document format.
type Format string

const (
	// FormatJSON is pretty-printed JSON with two-space indentation.
	FormatJSON Format = "json"

	// FormatYAML is block-style YAML with two-space indentation.
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a format name. The empty string selects JSON.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// Encode serializes result. The document has no trailing newline.
//
// JSON keeps '<', '>' and '&' unescaped so placeholder names such as
// "<unnamed>" read as written.
func Encode(result *extract.AnalysisResult, format Format) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("result must not be nil")
	}

	var buf bytes.Buffer
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return nil, fmt.Errorf("encoding json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("closing yaml encoder: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Stem returns the base name of fileName up to its first '.'.
//
// "math.py" and "archive.tar.py" yield "math" and "archive".
func Stem(fileName string) string {
	base := filepath.Base(fileName)
	stem, _, _ := strings.Cut(base, ".")
	return stem
}

// ArtifactPath returns <dir>/<stem>.<ext> for an input file name.
func ArtifactPath(dir, fileName string, format Format) string {
	return filepath.Join(dir, Stem(fileName)+"."+format.Extension())
}

// WriteArtifact writes document to ArtifactPath, creating dir if needed.
//
// Outputs:
//   - string: The path written.
//   - error: Non-nil if the directory or file could not be written.
func WriteArtifact(dir, fileName string, format Format, document []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	path := ArtifactPath(dir, fileName, format)
	if err := os.WriteFile(path, document, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
