// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "outline.ast"

// Parse outcome labels.
const (
	statusOK       = "ok"
	statusPartial  = "partial"
	statusRejected = "rejected"
	statusCanceled = "canceled"
	statusFailed   = "failed"
)

var (
	// parsesTotal counts parses by outcome.
	// Labels: language, status (ok, partial, rejected, canceled, failed)
	parsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outline",
		Subsystem: "ast",
		Name:      "parses_total",
		Help:      "Total tree-sitter parses by outcome",
	}, []string{"language", "status"})

	// parseDurationSeconds measures parse latency including validation.
	parseDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "outline",
		Subsystem: "ast",
		Name:      "parse_duration_seconds",
		Help:      "Tree-sitter parse latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"language"})
)

func startParseSpan(ctx context.Context, filePath string, size int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "ast.TreeParser.Parse",
		trace.WithAttributes(
			attribute.String("language", Language),
			attribute.String("file", filePath),
			attribute.Int("size_bytes", size),
		),
	)
}

func setParseSpanResult(span trace.Span, hasError bool) {
	span.SetAttributes(attribute.Bool("has_syntax_error", hasError))
}

func recordParseMetrics(duration time.Duration, status string) {
	parsesTotal.WithLabelValues(Language, status).Inc()
	parseDurationSeconds.WithLabelValues(Language).Observe(duration.Seconds())
}
