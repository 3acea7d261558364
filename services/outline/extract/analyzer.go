// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extract builds a declaration summary from a Python syntax tree.
//
// The summary lists module imports, top-level functions and classes with
// their methods. Each function carries its decoded parameters, its return
// annotation, and the calls made in its body. There is no name binding or
// type inference; every value is source text.
package extract

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/pyoutline/services/outline/ast"
	sitter "github.com/smacker/go-tree-sitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "outline.extract"

// Analyzer parses Python source and extracts its declarations.
//
// Thread Safety: Safe for concurrent use if the resolver is.
type Analyzer struct {
	parser   *ast.TreeParser
	resolver ImportResolver
}

// NewAnalyzer creates an Analyzer. A nil parser gets the defaults; a nil
// resolver leaves every import unresolved.
func NewAnalyzer(parser *ast.TreeParser, resolver ImportResolver) *Analyzer {
	if parser == nil {
		parser = ast.NewTreeParser()
	}
	return &Analyzer{parser: parser, resolver: resolver}
}

// Analyze parses content and returns its summary.
//
// Inputs:
//   - ctx: Passed to the parser; extraction itself is not interruptible.
//   - content: Python source.
//   - filePath: Location of the source, used to resolve relative imports.
//
// Outputs:
//   - *AnalysisResult: Never nil on success. Syntax errors yield a partial
//     summary, not an error.
//   - error: Non-nil only when the source is rejected or parsing fails.
func (a *Analyzer) Analyze(ctx context.Context, content []byte, filePath string) (*AnalysisResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "extract.Analyzer.Analyze")
	defer span.End()

	tree, err := a.parser.Parse(ctx, content, filePath)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer tree.Close()

	result := AnalyzeTree(tree.RootNode(), content, filePath, a.resolver)

	span.SetAttributes(
		attribute.String("file", filePath),
		attribute.Int("imports", len(result.Imports)),
		attribute.Int("functions", len(result.Functions)),
		attribute.Int("classes", len(result.Classes)),
	)
	slog.Debug("extracted declarations",
		slog.String("file", filePath),
		slog.Int("imports", len(result.Imports)),
		slog.Int("functions", result.FunctionCount()),
		slog.Int("classes", len(result.Classes)),
	)
	return result, nil
}

// AnalyzeTree walks root once, with no class context, and returns the
// assembled summary. content must be the source root was parsed from;
// every string in the result is copied out of it.
func AnalyzeTree(root *sitter.Node, content []byte, filePath string, resolver ImportResolver) *AnalysisResult {
	result := NewAnalysisResult()
	if root == nil {
		return result
	}
	w := &walker{
		content:  content,
		filePath: filePath,
		resolver: resolver,
		result:   result,
	}
	w.visit(root, nil)
	return result
}
