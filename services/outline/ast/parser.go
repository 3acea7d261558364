// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast produces tree-sitter concrete syntax trees for Python source.
//
// The trees are consumed by the extract package; this package owns only
// parser construction, input validation, and parse observability.
package ast

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

const (
	// DefaultMaxFileSize is the largest source accepted by default (10 MiB).
	DefaultMaxFileSize int64 = 10 * 1024 * 1024

	// WarnFileSize triggers a warning log when exceeded (1 MiB).
	WarnFileSize = 1024 * 1024

	// Language is the canonical language name reported in spans and metrics.
	Language = "python"

	// SourceExtension is the file extension of Python modules.
	SourceExtension = ".py"

	// PackageMarker is the file whose presence makes a directory a package.
	PackageMarker = "__init__.py"
)

// TreeParserOption configures a TreeParser instance.
type TreeParserOption func(*TreeParser)

// WithMaxFileSize sets the maximum source size the parser will accept.
//
// Non-positive values are ignored.
func WithMaxFileSize(bytes int64) TreeParserOption {
	return func(p *TreeParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// TreeParser turns Python source into a tree-sitter tree.
//
// Description:
//
//	Each Parse call creates its own sitter.Parser, so a TreeParser may be
//	shared between goroutines. The parser is error-tolerant: syntactically
//	invalid input yields a tree containing ERROR nodes rather than an error.
//
// Thread Safety:
//
//	TreeParser instances are safe for concurrent use.
type TreeParser struct {
	maxFileSize int64
}

// NewTreeParser creates a TreeParser with the given options.
func NewTreeParser(opts ...TreeParserOption) *TreeParser {
	p := &TreeParser{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxFileSize returns the configured size limit in bytes.
func (p *TreeParser) MaxFileSize() int64 {
	return p.maxFileSize
}

// Parse builds a syntax tree for content.
//
// Inputs:
//   - ctx: Checked before and after parsing. Tree-sitter itself cannot be
//     interrupted mid-parse.
//   - content: Raw Python source. Must be valid UTF-8.
//   - filePath: Used for logging and span attributes only.
//
// Outputs:
//   - *sitter.Tree: The parsed tree. The caller must Close it.
//   - error: ErrFileTooLarge, ErrInvalidContent, or a context error.
func (p *TreeParser) Parse(ctx context.Context, content []byte, filePath string) (*sitter.Tree, error) {
	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(time.Since(start), statusCanceled)
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if int64(len(content)) > p.maxFileSize {
		recordParseMetrics(time.Since(start), statusRejected)
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		recordParseMetrics(time.Since(start), statusRejected)
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(time.Since(start), statusFailed)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}

	if err := ctx.Err(); err != nil {
		tree.Close()
		recordParseMetrics(time.Since(start), statusCanceled)
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	hasError := tree.RootNode().HasError()
	if hasError {
		// Best effort: the walker skips nodes it does not recognize.
		slog.Debug("source contains syntax errors", slog.String("file", filePath))
	}

	setParseSpanResult(span, hasError)
	status := statusOK
	if hasError {
		status = statusPartial
	}
	recordParseMetrics(time.Since(start), status)

	return tree, nil
}
