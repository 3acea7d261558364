// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package outline turns Python source files into declaration summaries.
//
// The Service reads files from the configured input directory, runs the
// extractor, writes one artifact per file and optionally records the result
// in the snapshot history. The same Service backs the HTTP API.
package outline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/pyoutline/services/outline/ast"
	"github.com/AleutianAI/pyoutline/services/outline/config"
	"github.com/AleutianAI/pyoutline/services/outline/extract"
	"github.com/AleutianAI/pyoutline/services/outline/output"
	"github.com/AleutianAI/pyoutline/services/outline/resolve"
	badgerstore "github.com/AleutianAI/pyoutline/services/outline/storage/badger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// ErrNoInput is returned when no source file is named.
var ErrNoInput = errors.New("no input file given")

// FileReport is the outcome of analyzing one input file.
type FileReport struct {
	// Name is the file name as given, relative to the input directory.
	Name string

	// InputPath and OutputPath are the files read and written.
	InputPath  string
	OutputPath string

	Result *extract.AnalysisResult

	// Document is the encoded artifact, without a trailing newline.
	Document []byte

	// Snapshot is set when the result was recorded in the history.
	Snapshot *badgerstore.SnapshotMetadata
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStore enables snapshot history.
func WithStore(store *badgerstore.Store) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service runs analyses according to a Config.
//
// Thread Safety: Safe for concurrent use. Each analysis gets its own parser.
type Service struct {
	cfg    *config.Config
	format output.Format
	parser *ast.TreeParser
	store  *badgerstore.Store
	logger *slog.Logger
}

// NewService validates cfg and builds a Service.
func NewService(cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, err := output.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:    cfg,
		format: format,
		parser: ast.NewTreeParser(ast.WithMaxFileSize(cfg.MaxFileSize)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the configuration the Service was built with.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Store returns the snapshot store, or nil when history is disabled.
func (s *Service) Store() *badgerstore.Store {
	return s.store
}

// MaxSourceSize returns the largest source the Service accepts.
func (s *Service) MaxSourceSize() int64 {
	return s.parser.MaxFileSize()
}

// AnalyzeSource analyzes source held in memory.
//
// Inputs:
//   - filePath: Location the source is attributed to. Relative imports are
//     resolved against its directory.
//   - roots: Project roots for absolute imports. Empty falls back to the
//     configured roots, then to the directory of filePath.
func (s *Service) AnalyzeSource(ctx context.Context, filePath string, source []byte, roots []string) (*extract.AnalysisResult, error) {
	analyzer := extract.NewAnalyzer(s.parser, resolve.NewResolver(s.rootsFor(filePath, roots)...))
	return analyzer.Analyze(ctx, source, filePath)
}

// AnalyzeFile analyzes <input_dir>/<name> and writes its artifact.
//
// Description:
//
//	Reads the file, extracts the summary, encodes it in the configured
//	format and writes <output_dir>/<stem>.<ext>. When a store is set the
//	result is also saved as a snapshot; a failed save is logged, not
//	returned.
//
// Outputs:
//   - *FileReport: The written artifact and its result.
//   - error: Read, analysis, encode or write failures.
func (s *Service) AnalyzeFile(ctx context.Context, name string) (*FileReport, error) {
	if name == "" {
		return nil, ErrNoInput
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "outline.Service.AnalyzeFile")
	defer span.End()
	start := time.Now()

	report, err := s.analyzeFile(ctx, name)
	recordFileMetrics(time.Since(start), err)
	span.SetAttributes(attribute.String("file", name))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("output", report.OutputPath))
	return report, nil
}

func (s *Service) analyzeFile(ctx context.Context, name string) (*FileReport, error) {
	inputPath := filepath.Join(s.cfg.InputDir, name)
	source, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", inputPath, err)
	}

	result, err := s.AnalyzeSource(ctx, inputPath, source, nil)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", inputPath, err)
	}

	document, err := output.Encode(result, s.format)
	if err != nil {
		return nil, err
	}
	outputPath, err := output.WriteArtifact(s.cfg.OutputDir, name, s.format, document)
	if err != nil {
		return nil, err
	}

	report := &FileReport{
		Name:       name,
		InputPath:  inputPath,
		OutputPath: outputPath,
		Result:     result,
		Document:   document,
	}

	if s.store != nil {
		meta, err := s.store.Save(ctx, inputPath, source, result)
		if err != nil {
			s.logger.Warn("snapshot not saved", slog.String("file", inputPath), slog.Any("error", err))
		} else {
			report.Snapshot = meta
		}
	}

	s.logger.Info("analyzed file",
		slog.String("file", inputPath),
		slog.String("output", outputPath),
		slog.Int("imports", len(result.Imports)),
		slog.Int("functions", result.FunctionCount()),
		slog.Int("classes", len(result.Classes)),
	)
	return report, nil
}

// AnalyzeFiles runs AnalyzeFile for every name, at most cfg.Workers at a
// time. Reports are in argument order. The first failure cancels the
// remaining analyses and is returned.
func (s *Service) AnalyzeFiles(ctx context.Context, names []string) ([]*FileReport, error) {
	if len(names) == 0 {
		return nil, ErrNoInput
	}

	reports := make([]*FileReport, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for i, name := range names {
		g.Go(func() error {
			report, err := s.AnalyzeFile(gctx, name)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// rootsFor picks the project roots for one file.
func (s *Service) rootsFor(filePath string, roots []string) []string {
	if len(roots) > 0 {
		return roots
	}
	if len(s.cfg.ProjectRoots) > 0 {
		return s.cfg.ProjectRoots
	}
	return []string{filepath.Dir(filePath)}
}
