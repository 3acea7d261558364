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
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// serviceName identifies the server in traces.
const serviceName = "pyoutline"

// RegisterRoutes registers the /v1/outline/* endpoints.
//
// Endpoints:
//
//	GET  /v1/outline/health - Health check
//	POST /v1/outline/analyze - Analyze posted source
//	GET  /v1/outline/snapshots - List snapshot history
//	GET  /v1/outline/snapshots/:id - Load one snapshot
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	outline := rg.Group("/outline")
	{
		outline.GET("/health", handlers.HandleHealth)
		outline.POST("/analyze", handlers.HandleAnalyze)
		outline.GET("/snapshots", handlers.HandleListSnapshots)
		outline.GET("/snapshots/:id", handlers.HandleLoadSnapshot)
	}
}

// NewRouter builds the HTTP engine: recovery, tracing, rate limiting, the
// v1 API and GET /metrics.
func NewRouter(svc *Service, withRequestLog bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	if withRequestLog {
		router.Use(gin.Logger())
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := svc.Config().Server
	v1 := router.Group("/v1")
	v1.Use(RateLimitMiddleware(server.RateLimit, server.Burst))
	RegisterRoutes(v1, NewHandlers(svc))
	return router
}
