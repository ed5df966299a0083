// -----------------------------------------------------------------------
// Analysis Handler - submit, inspect, list, and delete analyses
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/services/analysis"
)

// AnalysisHandler handles analysis-related API requests
type AnalysisHandler struct {
	analysisService interfaces.AnalysisService
	logger          arbor.ILogger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analysisService interfaces.AnalysisService, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		logger:          logger,
	}
}

type analyzeRequest struct {
	URL      string `json:"url"`
	MaxDepth *int   `json:"max_depth"`
}

// AnalyzeHandler starts an analysis and returns without waiting for it
// POST /api/analyze {"url": "...", "max_depth": 1}
func (h *AnalysisHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req analyzeRequest
	if r.Body != nil {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	// Omitted max_depth means use the configured default
	maxDepth := -1
	if req.MaxDepth != nil {
		maxDepth = *req.MaxDepth
	}

	job, err := h.analysisService.Submit(r.Context(), req.URL, maxDepth)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrInvalidURL):
			WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, analysis.ErrShuttingDown):
			WriteError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.logger.Error().Err(err).Str("url", req.URL).Msg("Failed to submit analysis")
			WriteError(w, http.StatusInternalServerError, "Failed to start analysis")
		}
		return
	}

	h.logger.Info().Str("analysis_id", job.ID).Str("url", job.URL).Msg("Analysis submitted")

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":     "processing",
		"analysisId": job.ID,
	})
}

// GetAnalysisHandler returns a single analysis by ID
// GET /api/analysis/{id}
func (h *AnalysisHandler) GetAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	analysisID := PathSegment(r, 2)
	if analysisID == "" {
		WriteError(w, http.StatusBadRequest, "Analysis ID is required")
		return
	}

	job, err := h.analysisService.GetJob(r.Context(), analysisID)
	if err != nil {
		if errors.Is(err, analysis.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Analysis not found")
			return
		}
		h.logger.Error().Err(err).Str("analysis_id", analysisID).Msg("Failed to get analysis")
		WriteError(w, http.StatusInternalServerError, "Failed to get analysis")
		return
	}

	WriteJSON(w, http.StatusOK, toAnalysisResponse(job, true))
}

// ListAnalysesHandler returns recent analyses without result bodies
// GET /api/analyses?limit=20
func (h *AnalysisHandler) ListAnalysesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := QueryInt(r, "limit", 20)

	jobs, err := h.analysisService.ListJobs(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list analyses")
		WriteError(w, http.StatusInternalServerError, "Failed to list analyses")
		return
	}

	snapshots := make([]analysisResponse, 0, len(jobs))
	for _, job := range jobs {
		snapshots = append(snapshots, toAnalysisResponse(job, false))
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(snapshots),
		"analyses": snapshots,
	})
}

// DeleteAnalysisHandler removes an analysis and its record
// DELETE /api/analysis/{id}
func (h *AnalysisHandler) DeleteAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	analysisID := PathSegment(r, 2)
	if analysisID == "" {
		WriteError(w, http.StatusBadRequest, "Analysis ID is required")
		return
	}

	if err := h.analysisService.DeleteJob(r.Context(), analysisID); err != nil {
		if errors.Is(err, analysis.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Analysis not found")
			return
		}
		h.logger.Error().Err(err).Str("analysis_id", analysisID).Msg("Failed to delete analysis")
		WriteError(w, http.StatusInternalServerError, "Failed to delete analysis")
		return
	}

	h.logger.Info().Str("analysis_id", analysisID).Msg("Analysis deleted")
	w.WriteHeader(http.StatusNoContent)
}
