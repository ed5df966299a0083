// -----------------------------------------------------------------------
// Status Handler - health probe and operational status
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/services/browser"
)

// StatusHandler reports service health and component readiness
type StatusHandler struct {
	storage         interfaces.StorageManager
	pool            *browser.Pool
	analysisService interfaces.AnalysisService
	scheduler       interfaces.SchedulerService
	config          *common.Config
	logger          arbor.ILogger
	startTime       time.Time
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(storage interfaces.StorageManager, pool *browser.Pool, analysisService interfaces.AnalysisService, scheduler interfaces.SchedulerService, config *common.Config, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		storage:         storage,
		pool:            pool,
		analysisService: analysisService,
		scheduler:       scheduler,
		config:          config,
		logger:          logger,
		startTime:       time.Now(),
	}
}

// HealthHandler handles GET /api/health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": common.GetVersion(),
	})
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	totalJobs, err := h.storage.JobStorage().CountJobs()
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count jobs")
	}
	totalRecords, err := h.storage.RecordStorage().CountRecords()
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count records")
	}

	status := map[string]interface{}{
		"service":        "specto",
		"version":        common.GetVersion(),
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"analysis": map[string]interface{}{
			"total_jobs":    totalJobs,
			"total_records": totalRecords,
			"active":        h.analysisService.ActiveCount(),
		},
		"browser": h.pool.Stats(),
		"llm": map[string]interface{}{
			"provider":   string(h.config.LLM.DefaultProvider),
			"configured": h.llmConfigured(),
		},
	}

	if h.scheduler != nil {
		status["scheduler"] = map[string]interface{}{
			"running": h.scheduler.IsRunning(),
			"jobs":    h.scheduler.GetAllJobStatuses(),
		}
	}

	WriteJSON(w, http.StatusOK, status)
}

func (h *StatusHandler) llmConfigured() bool {
	switch h.config.LLM.DefaultProvider {
	case common.LLMProviderClaude:
		return h.config.Claude.APIKey != ""
	default:
		return h.config.Gemini.APIKey != ""
	}
}
