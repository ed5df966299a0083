// -----------------------------------------------------------------------
// HTTP Routes - API surface for analysis jobs, reports and exports
// -----------------------------------------------------------------------

package server

import (
	"net/http"

	"github.com/ternarybob/specto/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Analysis jobs
	mux.HandleFunc("/api/analyze", s.app.AnalysisHandler.AnalyzeHandler)       // POST - submit a URL for analysis
	mux.HandleFunc("/api/analyses", s.app.AnalysisHandler.ListAnalysesHandler) // GET - list recent analyses
	mux.HandleFunc("/api/analysis/", s.handleAnalysisRoutes)                   // GET/DELETE /{id}, GET /{id}/report

	// API routes - Exports
	mux.HandleFunc("/api/export/spreadsheet", s.app.ExportHandler.GetSpreadsheetHandler)

	// API routes - System
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.notFoundHandler)

	return mux
}

// handleAnalysisRoutes routes /api/analysis/{id} requests to the appropriate handler
func (s *Server) handleAnalysisRoutes(w http.ResponseWriter, r *http.Request) {
	// GET /api/analysis/{id}/report
	if RouteByPathSuffix(w, r, "/api/analysis/", []PathSuffixRouter{
		{Suffix: "/report", Handler: s.app.ReportHandler.GetReportHandler},
	}) {
		return
	}

	// GET /api/analysis/{id}, DELETE /api/analysis/{id}
	RouteByMethod(w, r, MethodRouter{
		"GET":    s.app.AnalysisHandler.GetAnalysisHandler,
		"DELETE": s.app.AnalysisHandler.DeleteAnalysisHandler,
	})
}

// notFoundHandler returns a JSON 404 for unmatched API routes
func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
