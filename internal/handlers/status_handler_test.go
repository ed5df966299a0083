package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/models"
	"github.com/ternarybob/specto/internal/services/browser"
	"github.com/ternarybob/specto/internal/services/scheduler"
	"github.com/ternarybob/specto/internal/storage/badger"
)

func newStatusHandler(t *testing.T) (*StatusHandler, *stubAnalysisService) {
	t.Helper()
	logger := arbor.NewLogger()

	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	job := models.NewAnalysisJob("an_status_1", "https://acme.example", 0)
	require.NoError(t, manager.JobStorage().SaveJob(job))

	config := common.NewDefaultConfig()
	config.Gemini.APIKey = "test-key"

	pool := browser.NewPool(&config.Browser, logger)
	sched := scheduler.NewService(logger)
	service := newStubAnalysisService()

	return NewStatusHandler(manager, pool, service, sched, config, logger), service
}

func TestHealthHandler(t *testing.T) {
	handler, _ := newStatusHandler(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.HealthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["version"])
}

func TestGetStatusHandler(t *testing.T) {
	handler, _ := newStatusHandler(t)

	req := httptest.NewRequest("GET", "/api/status", nil)
	rec := httptest.NewRecorder()
	handler.GetStatusHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "specto", body["service"])

	analysisStats, ok := body["analysis"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), analysisStats["total_jobs"])
	assert.Equal(t, float64(0), analysisStats["active"])

	browserStats, ok := body["browser"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, browserStats["initialized"])

	llmStats, ok := body["llm"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "gemini", llmStats["provider"])
	assert.Equal(t, true, llmStats["configured"])

	schedulerStats, ok := body["scheduler"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, schedulerStats["running"])
}

func TestGetStatusHandlerMethodNotAllowed(t *testing.T) {
	handler, _ := newStatusHandler(t)

	req := httptest.NewRequest("POST", "/api/status", nil)
	rec := httptest.NewRecorder()
	handler.GetStatusHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
