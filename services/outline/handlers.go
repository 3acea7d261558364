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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/AleutianAI/pyoutline/services/outline/ast"
	"github.com/AleutianAI/pyoutline/services/outline/extract"
	badgerstore "github.com/AleutianAI/pyoutline/services/outline/storage/badger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDHeader carries the request correlation ID.
const requestIDHeader = "X-Request-ID"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// AnalyzeRequest is the body of POST /v1/outline/analyze.
type AnalyzeRequest struct {
	// FilePath attributes the source to a location; relative imports
	// resolve against its directory.
	FilePath string `json:"file_path" binding:"required"`

	Source string `json:"source"`

	// ProjectRoots overrides the configured roots for this request.
	ProjectRoots []string `json:"project_roots"`
}

// ListSnapshotsResponse is the body of GET /v1/outline/snapshots.
type ListSnapshotsResponse struct {
	Snapshots []*badgerstore.SnapshotMetadata `json:"snapshots"`
}

// LoadSnapshotResponse is the body of GET /v1/outline/snapshots/:id.
type LoadSnapshotResponse struct {
	Metadata *badgerstore.SnapshotMetadata `json:"metadata"`
	Result   *extract.AnalysisResult       `json:"result"`
}

// Handlers serves the outline HTTP API.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers backed by svc.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleHealth handles GET /v1/outline/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"history": h.svc.Store() != nil,
	})
}

// HandleAnalyze handles POST /v1/outline/analyze.
//
// Response:
//
//	200 OK: AnalysisResult
//	400 Bad Request: Malformed body or undecodable source
//	413 Request Entity Too Large: Source exceeds the configured limit
//	500 Internal Server Error: Analysis failed
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAnalyze")

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, requestBodyLimit(h.svc.MaxSourceSize()))

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(c, "analyze", http.StatusRequestEntityTooLarge, "request body too large", "SOURCE_TOO_LARGE")
			return
		}
		h.respondError(c, "analyze", http.StatusBadRequest, "invalid request: "+err.Error(), "INVALID_REQUEST")
		return
	}

	result, err := h.svc.AnalyzeSource(c.Request.Context(), req.FilePath, []byte(req.Source), req.ProjectRoots)
	switch {
	case err == nil:
	case errors.Is(err, ast.ErrFileTooLarge):
		h.respondError(c, "analyze", http.StatusRequestEntityTooLarge, err.Error(), "SOURCE_TOO_LARGE")
		return
	case errors.Is(err, ast.ErrInvalidContent):
		h.respondError(c, "analyze", http.StatusBadRequest, err.Error(), "INVALID_SOURCE")
		return
	default:
		logger.Error("analysis failed", slog.String("file", req.FilePath), slog.Any("error", err))
		h.respondError(c, "analyze", http.StatusInternalServerError, "analysis failed: "+err.Error(), "ANALYSIS_FAILED")
		return
	}

	logger.Info("analyzed source",
		slog.String("file", req.FilePath),
		slog.Int("functions", result.FunctionCount()),
	)
	httpRequestsTotal.WithLabelValues("analyze", strconv.Itoa(http.StatusOK)).Inc()
	c.PureJSON(http.StatusOK, result)
}

// HandleListSnapshots handles GET /v1/outline/snapshots.
//
// Query Parameters:
//
//	file: Optional filter by analyzed file path
//	limit: Maximum results, default 100
func (h *Handlers) HandleListSnapshots(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListSnapshots")

	store := h.svc.Store()
	if store == nil {
		h.respondError(c, "snapshots", http.StatusServiceUnavailable, "snapshot history not configured", "SNAPSHOTS_NOT_AVAILABLE")
		return
	}

	limit := badgerstore.DefaultListLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	snapshots, err := store.List(c.Request.Context(), c.Query("file"), limit)
	if err != nil {
		logger.Error("failed to list snapshots", slog.Any("error", err))
		h.respondError(c, "snapshots", http.StatusInternalServerError, "failed to list snapshots: "+err.Error(), "SNAPSHOT_LIST_FAILED")
		return
	}

	httpRequestsTotal.WithLabelValues("snapshots", strconv.Itoa(http.StatusOK)).Inc()
	c.JSON(http.StatusOK, ListSnapshotsResponse{Snapshots: snapshots})
}

// HandleLoadSnapshot handles GET /v1/outline/snapshots/:id.
func (h *Handlers) HandleLoadSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleLoadSnapshot")

	store := h.svc.Store()
	if store == nil {
		h.respondError(c, "snapshot", http.StatusServiceUnavailable, "snapshot history not configured", "SNAPSHOTS_NOT_AVAILABLE")
		return
	}

	snapshotID := c.Param("id")
	result, meta, err := store.Load(c.Request.Context(), snapshotID)
	switch {
	case err == nil:
	case errors.Is(err, badgerstore.ErrSnapshotNotFound):
		h.respondError(c, "snapshot", http.StatusNotFound, "snapshot not found: "+snapshotID, "SNAPSHOT_NOT_FOUND")
		return
	default:
		logger.Error("failed to load snapshot", slog.String("snapshot_id", snapshotID), slog.Any("error", err))
		h.respondError(c, "snapshot", http.StatusInternalServerError, "failed to load snapshot: "+err.Error(), "SNAPSHOT_LOAD_FAILED")
		return
	}

	httpRequestsTotal.WithLabelValues("snapshot", strconv.Itoa(http.StatusOK)).Inc()
	c.PureJSON(http.StatusOK, LoadSnapshotResponse{Metadata: meta, Result: result})
}

func (h *Handlers) respondError(c *gin.Context, handler string, status int, msg, code string) {
	httpRequestsTotal.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	c.JSON(status, ErrorResponse{Error: msg, Code: code})
}

// requestBodyLimit allows for JSON escaping overhead around the source.
func requestBodyLimit(maxSource int64) int64 {
	return 2*maxSource + 64*1024
}

// getOrCreateRequestID returns the caller's request ID or mints one, and
// echoes it in the response.
func getOrCreateRequestID(c *gin.Context) string {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(requestIDHeader, id)
	return id
}
