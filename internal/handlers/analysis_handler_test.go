package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
	"github.com/ternarybob/specto/internal/services/analysis"
)

type stubAnalysisService struct {
	mu         sync.Mutex
	submitErr  error
	jobs       map[string]*models.AnalysisJob
	records    map[string]*models.BusinessRecord
	lastURL    string
	lastDepth  int
	deletedIDs []string
}

func newStubAnalysisService() *stubAnalysisService {
	return &stubAnalysisService{
		jobs:    make(map[string]*models.AnalysisJob),
		records: make(map[string]*models.BusinessRecord),
	}
}

func (s *stubAnalysisService) Submit(ctx context.Context, url string, maxDepth int) (*models.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastURL = url
	s.lastDepth = maxDepth
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	job := models.NewAnalysisJob("an_stub_1", url, maxDepth)
	s.jobs[job.ID] = job
	return job, nil
}

func (s *stubAnalysisService) GetJob(ctx context.Context, id string) (*models.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, analysis.ErrJobNotFound
	}
	return job, nil
}

func (s *stubAnalysisService) ListJobs(ctx context.Context, limit int) ([]*models.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]*models.AnalysisJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
		if len(jobs) == limit {
			break
		}
	}
	return jobs, nil
}

func (s *stubAnalysisService) DeleteJob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return analysis.ErrJobNotFound
	}
	delete(s.jobs, id)
	s.deletedIDs = append(s.deletedIDs, id)
	return nil
}

func (s *stubAnalysisService) GetRecord(ctx context.Context, id string) (*models.BusinessRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return nil, analysis.ErrJobNotFound
	}
	record, ok := s.records[id]
	if !ok {
		return nil, analysis.ErrRecordNotFound
	}
	return record, nil
}

func (s *stubAnalysisService) ActiveCount() int { return 0 }

func (s *stubAnalysisService) Wait() {}

var _ interfaces.AnalysisService = (*stubAnalysisService)(nil)

func newAnalysisHandler(service *stubAnalysisService) *AnalysisHandler {
	return NewAnalysisHandler(service, arbor.NewLogger())
}

func TestAnalyzeHandlerAccepted(t *testing.T) {
	service := newStubAnalysisService()
	handler := newAnalysisHandler(service)

	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(`{"url": "https://acme.example"}`))
	rec := httptest.NewRecorder()
	handler.AnalyzeHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "processing", body["status"])
	assert.Equal(t, "an_stub_1", body["analysisId"])

	assert.Equal(t, "https://acme.example", service.lastURL)
	assert.Equal(t, -1, service.lastDepth, "omitted max_depth should request the default")
}

func TestAnalyzeHandlerExplicitDepth(t *testing.T) {
	service := newStubAnalysisService()
	handler := newAnalysisHandler(service)

	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(`{"url": "https://acme.example", "max_depth": 3}`))
	rec := httptest.NewRecorder()
	handler.AnalyzeHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 3, service.lastDepth)
}

func TestAnalyzeHandlerInvalidURL(t *testing.T) {
	service := newStubAnalysisService()
	service.submitErr = analysis.ErrInvalidURL
	handler := newAnalysisHandler(service)

	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(`{"url": "not a url"}`))
	rec := httptest.NewRecorder()
	handler.AnalyzeHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["error"], "invalid url")
}

func TestAnalyzeHandlerShuttingDown(t *testing.T) {
	service := newStubAnalysisService()
	service.submitErr = analysis.ErrShuttingDown
	handler := newAnalysisHandler(service)

	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(`{"url": "https://acme.example"}`))
	rec := httptest.NewRecorder()
	handler.AnalyzeHandler(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalyzeHandlerMalformedBody(t *testing.T) {
	handler := newAnalysisHandler(newStubAnalysisService())

	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(`{"url": `))
	rec := httptest.NewRecorder()
	handler.AnalyzeHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeHandlerMethodNotAllowed(t *testing.T) {
	handler := newAnalysisHandler(newStubAnalysisService())

	req := httptest.NewRequest("GET", "/api/analyze", nil)
	rec := httptest.NewRecorder()
	handler.AnalyzeHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetAnalysisHandler(t *testing.T) {
	service := newStubAnalysisService()
	job := models.NewAnalysisJob("an_existing", "https://acme.example", 1)
	job.SetProgress(45, models.StageExtracting)
	service.jobs[job.ID] = job
	handler := newAnalysisHandler(service)

	req := httptest.NewRequest("GET", "/api/analysis/an_existing", nil)
	rec := httptest.NewRecorder()
	handler.GetAnalysisHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "an_existing", body["analysisId"])
	assert.Equal(t, "https://acme.example", body["url"])
	assert.Equal(t, "processing", body["status"])

	progress, ok := body["progress"].(map[string]interface{})
	require.True(t, ok, "progress should be an object")
	assert.Equal(t, float64(45), progress["percent"])
	assert.Equal(t, "extracting", progress["stage"])

	assert.Contains(t, body, "startTime")
	assert.NotContains(t, body, "completedTime")
}

func TestGetAnalysisHandlerNotFound(t *testing.T) {
	handler := newAnalysisHandler(newStubAnalysisService())

	req := httptest.NewRequest("GET", "/api/analysis/an_missing", nil)
	rec := httptest.NewRecorder()
	handler.GetAnalysisHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAnalysisHandlerIncludesResult(t *testing.T) {
	service := newStubAnalysisService()
	job := models.NewAnalysisJob("an_done", "https://acme.example", 0)
	record := &models.BusinessRecord{
		AIAnalysis: models.AIAnalysis{BusinessName: "Acme Plumbing"},
		Metadata: models.RecordMetadata{
			AnalysisID:  job.ID,
			URLAnalyzed: job.URL,
			AnalyzedAt:  time.Now().UTC(),
			Version:     models.RecordVersion,
			Status:      "complete",
		},
	}
	job.MarkCompleted(record)
	service.jobs[job.ID] = job
	handler := newAnalysisHandler(service)

	req := httptest.NewRequest("GET", "/api/analysis/an_done", nil)
	rec := httptest.NewRecorder()
	handler.GetAnalysisHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "completed", body["status"])
	assert.Contains(t, body, "completedTime")

	result, ok := body["result"].(map[string]interface{})
	require.True(t, ok, "completed analysis should include its record")
	for _, section := range []string{"technical_metrics", "social_presence", "contact_info", "ai_analysis", "metadata"} {
		assert.Contains(t, result, section)
	}
}

func TestListAnalysesHandlerOmitsResults(t *testing.T) {
	service := newStubAnalysisService()
	job := models.NewAnalysisJob("an_list_1", "https://acme.example", 0)
	job.MarkCompleted(&models.BusinessRecord{})
	service.jobs[job.ID] = job
	handler := newAnalysisHandler(service)

	req := httptest.NewRequest("GET", "/api/analyses?limit=10", nil)
	rec := httptest.NewRecorder()
	handler.ListAnalysesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count    int                      `json:"count"`
		Analyses []map[string]interface{} `json:"analyses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.NotContains(t, body.Analyses[0], "result")
	assert.Equal(t, "an_list_1", body.Analyses[0]["analysisId"])
}

func TestDeleteAnalysisHandler(t *testing.T) {
	service := newStubAnalysisService()
	job := models.NewAnalysisJob("an_delete", "https://acme.example", 0)
	service.jobs[job.ID] = job
	handler := newAnalysisHandler(service)

	req := httptest.NewRequest("DELETE", "/api/analysis/an_delete", nil)
	rec := httptest.NewRecorder()
	handler.DeleteAnalysisHandler(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"an_delete"}, service.deletedIDs)

	rec = httptest.NewRecorder()
	handler.DeleteAnalysisHandler(rec, httptest.NewRequest("DELETE", "/api/analysis/an_delete", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
