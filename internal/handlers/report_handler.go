// -----------------------------------------------------------------------
// Report Handler - renders a completed analysis as markdown, HTML, or PDF
// -----------------------------------------------------------------------

package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/services/analysis"
)

// ReportHandler serves rendered reports for completed analyses
type ReportHandler struct {
	analysisService interfaces.AnalysisService
	reportService   interfaces.ReportService
	logger          arbor.ILogger
}

// NewReportHandler creates a new report handler
func NewReportHandler(analysisService interfaces.AnalysisService, reportService interfaces.ReportService, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		analysisService: analysisService,
		reportService:   reportService,
		logger:          logger,
	}
}

// GetReportHandler renders the report for one analysis
// GET /api/analysis/{id}/report?format=html|pdf|md
func (h *ReportHandler) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	analysisID := PathSegment(r, 2)
	if analysisID == "" {
		WriteError(w, http.StatusBadRequest, "Analysis ID is required")
		return
	}

	record, err := h.analysisService.GetRecord(r.Context(), analysisID)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrJobNotFound):
			WriteError(w, http.StatusNotFound, "Analysis not found")
		case errors.Is(err, analysis.ErrRecordNotFound):
			WriteError(w, http.StatusNotFound, "Analysis has no report yet")
		default:
			h.logger.Error().Err(err).Str("analysis_id", analysisID).Msg("Failed to load record for report")
			WriteError(w, http.StatusInternalServerError, "Failed to load report")
		}
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "html":
		body, err := h.reportService.HTML(record)
		if err != nil {
			h.logger.Error().Err(err).Str("analysis_id", analysisID).Msg("Failed to render HTML report")
			WriteError(w, http.StatusInternalServerError, "Failed to render report")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)

	case "pdf":
		body, err := h.reportService.PDF(record)
		if err != nil {
			h.logger.Error().Err(err).Str("analysis_id", analysisID).Msg("Failed to render PDF report")
			WriteError(w, http.StatusInternalServerError, "Failed to render report")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", analysisID+".pdf"))
		w.Write(body)

	case "md", "markdown":
		body, err := h.reportService.Markdown(record)
		if err != nil {
			h.logger.Error().Err(err).Str("analysis_id", analysisID).Msg("Failed to render markdown report")
			WriteError(w, http.StatusInternalServerError, "Failed to render report")
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(body))

	default:
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Unknown report format %q", format))
	}
}
