// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package outline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const tracerName = "outline.service"

var (
	// filesTotal counts analyzed input files.
	//
	// Labels:
	//   - status: "ok" or "error"
	filesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "outline",
			Subsystem: "service",
			Name:      "files_total",
			Help:      "Total input files analyzed.",
		},
		[]string{"status"},
	)

	fileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "outline",
			Subsystem: "service",
			Name:      "file_duration_seconds",
			Help:      "Time to read, analyze and write one input file.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// httpRequestsTotal counts API requests by handler and status code class.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "outline",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total API requests.",
		},
		[]string{"handler", "code"},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "outline",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)
)

func recordFileMetrics(duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	filesTotal.WithLabelValues(status).Inc()
	fileDuration.Observe(duration.Seconds())
}
