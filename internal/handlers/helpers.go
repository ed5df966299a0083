package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/specto/internal/models"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// PathSegment returns the path segment at the given index, counting from
// zero after trimming slashes. "/api/analysis/an_123/report" has segments
// ["api", "analysis", "an_123", "report"].
func PathSegment(r *http.Request, index int) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if index < 0 || index >= len(parts) {
		return ""
	}
	return parts[index]
}

// QueryInt parses an integer query parameter, falling back to the default
// when absent or malformed.
func QueryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

// analysisResponse is the API envelope for a job snapshot. The merged
// record inside `result` keeps its own snake_case section keys.
type analysisResponse struct {
	AnalysisID    string                  `json:"analysisId"`
	URL           string                  `json:"url"`
	Status        models.AnalysisStatus   `json:"status"`
	Progress      models.AnalysisProgress `json:"progress"`
	StartTime     time.Time               `json:"startTime"`
	CompletedTime *time.Time              `json:"completedTime,omitempty"`
	Error         string                  `json:"error,omitempty"`
	Result        *models.BusinessRecord  `json:"result,omitempty"`
	SinkErrors    map[string]string       `json:"sinkErrors,omitempty"`
}

// toAnalysisResponse converts a job to its API shape. List endpoints set
// includeResult false to keep snapshots small.
func toAnalysisResponse(job *models.AnalysisJob, includeResult bool) analysisResponse {
	resp := analysisResponse{
		AnalysisID:    job.ID,
		URL:           job.URL,
		Status:        job.Status,
		Progress:      job.Progress,
		StartTime:     job.StartTime,
		CompletedTime: job.CompletedTime,
		Error:         job.Error,
		SinkErrors:    job.SinkErrors,
	}
	if includeResult {
		resp.Result = job.Result
	}
	return resp
}
