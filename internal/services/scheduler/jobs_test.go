package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
	"github.com/ternarybob/specto/internal/storage/badger"
	"github.com/timshannon/badgerhold/v4"
)

type submitCall struct {
	url      string
	maxDepth int
}

type fakeAnalysis struct {
	mu      sync.Mutex
	submits []submitCall
}

func (f *fakeAnalysis) Submit(ctx context.Context, url string, maxDepth int) (*models.AnalysisJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, submitCall{url: url, maxDepth: maxDepth})
	return models.NewAnalysisJob(fmt.Sprintf("an_sched_%d", len(f.submits)), url, maxDepth), nil
}

func (f *fakeAnalysis) GetJob(ctx context.Context, id string) (*models.AnalysisJob, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAnalysis) ListJobs(ctx context.Context, limit int) ([]*models.AnalysisJob, error) {
	return nil, nil
}

func (f *fakeAnalysis) DeleteJob(ctx context.Context, id string) error { return nil }

func (f *fakeAnalysis) GetRecord(ctx context.Context, id string) (*models.BusinessRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAnalysis) ActiveCount() int { return 0 }

func (f *fakeAnalysis) Wait() {}

func (f *fakeAnalysis) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

func (f *fakeAnalysis) firstSubmit() submitCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits[0]
}

var _ interfaces.AnalysisService = (*fakeAnalysis)(nil)

func writePresets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPresets(t *testing.T) {
	path := writePresets(t, `
schedules:
  - name: acme-daily
    url: https://acme.example
    schedule: "0 6 * * *"
    max_depth: 1
    description: Daily check of the Acme site
  - name: competitor
    url: https://rival.example
    schedule: "@every 12h"
`)

	presets, err := LoadPresets(path)
	require.NoError(t, err)
	require.Len(t, presets, 2)

	assert.Equal(t, "acme-daily", presets[0].Name)
	assert.Equal(t, "https://acme.example", presets[0].URL)
	assert.Equal(t, "0 6 * * *", presets[0].Schedule)
	assert.Equal(t, 1, presets[0].MaxDepth)
	assert.Equal(t, "Daily check of the Acme site", presets[0].Description)

	assert.Equal(t, "competitor", presets[1].Name)
	assert.Equal(t, 0, presets[1].MaxDepth)
}

func TestLoadPresetsMissingFile(t *testing.T) {
	presets, err := LoadPresets(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, presets)
}

func TestLoadPresetsValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
schedules:
  - url: https://acme.example
    schedule: "@every 1h"
`,
			wantErr: "name is required",
		},
		{
			name: "missing url",
			content: `
schedules:
  - name: acme
    schedule: "@every 1h"
`,
			wantErr: "url is required",
		},
		{
			name: "missing schedule",
			content: `
schedules:
  - name: acme
    url: https://acme.example
`,
			wantErr: "schedule is required",
		},
		{
			name: "invalid schedule",
			content: `
schedules:
  - name: acme
    url: https://acme.example
    schedule: whenever
`,
			wantErr: "invalid schedule",
		},
		{
			name: "duplicate name",
			content: `
schedules:
  - name: acme
    url: https://acme.example
    schedule: "@every 1h"
  - name: acme
    url: https://other.example
    schedule: "@every 2h"
`,
			wantErr: "duplicate name",
		},
		{
			name: "negative depth",
			content: `
schedules:
  - name: acme
    url: https://acme.example
    schedule: "@every 1h"
    max_depth: -1
`,
			wantErr: "max_depth",
		},
		{
			name:    "malformed yaml",
			content: "schedules: [unclosed",
			wantErr: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePresets(t, tt.content)
			_, err := LoadPresets(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegisterAnalysisSchedulesSubmits(t *testing.T) {
	path := writePresets(t, `
schedules:
  - name: acme
    url: https://acme.example
    schedule: "@every 1s"
    max_depth: 2
`)

	analysis := &fakeAnalysis{}
	service := newTestScheduler(t)

	count, err := RegisterAnalysisSchedules(service, analysis, &common.SchedulesConfig{Enabled: true, PresetsFile: path}, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	status, err := service.GetJobStatus("analysis:acme")
	require.NoError(t, err)
	assert.Equal(t, "@every 1s", status.Schedule)
	assert.Contains(t, status.Description, "https://acme.example")

	require.NoError(t, service.Start())

	deadline := time.Now().Add(5 * time.Second)
	for analysis.submitCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	require.GreaterOrEqual(t, analysis.submitCount(), 1, "scheduled analysis never submitted")

	call := analysis.firstSubmit()
	assert.Equal(t, "https://acme.example", call.url)
	assert.Equal(t, 2, call.maxDepth)
}

func TestRegisterAnalysisSchedulesNoPresets(t *testing.T) {
	analysis := &fakeAnalysis{}
	service := newTestScheduler(t)

	config := &common.SchedulesConfig{Enabled: true, PresetsFile: filepath.Join(t.TempDir(), "absent.yaml")}
	count, err := RegisterAnalysisSchedules(service, analysis, config, arbor.NewLogger())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, service.GetAllJobStatuses())
}

func TestRegisterAnalysisSchedulesBadFile(t *testing.T) {
	path := writePresets(t, `
schedules:
  - name: acme
    schedule: "@every 1h"
`)

	service := newTestScheduler(t)
	_, err := RegisterAnalysisSchedules(service, &fakeAnalysis{}, &common.SchedulesConfig{PresetsFile: path}, arbor.NewLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
}

func TestRetentionSweepRemovesExpiredAnalyses(t *testing.T) {
	logger := arbor.NewLogger()
	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	jobs := manager.JobStorage()
	records := manager.RecordStorage()

	old := time.Now().UTC().Add(-2 * time.Hour)
	expired := models.NewAnalysisJob("an_sweep_expired", "https://old.example", 0)
	expired.MarkCompleted(nil)
	expired.CompletedTime = &old
	require.NoError(t, jobs.SaveJob(expired))
	require.NoError(t, records.SaveRecord(sweepRecord(expired.ID, expired.URL)))

	fresh := models.NewAnalysisJob("an_sweep_fresh", "https://new.example", 0)
	fresh.MarkCompleted(nil)
	require.NoError(t, jobs.SaveJob(fresh))
	require.NoError(t, records.SaveRecord(sweepRecord(fresh.ID, fresh.URL)))

	running := models.NewAnalysisJob("an_sweep_running", "https://busy.example", 0)
	running.StartTime = old
	require.NoError(t, jobs.SaveJob(running))

	service := newTestScheduler(t)
	config := &common.AnalysisConfig{RetentionTTL: time.Hour, SweepInterval: time.Second}
	require.NoError(t, RegisterRetentionSweep(service, jobs, records, config, logger))
	require.NoError(t, service.Start())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := jobs.GetJob(expired.ID); errors.Is(err, badgerhold.ErrNotFound) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	_, err = jobs.GetJob(expired.ID)
	require.ErrorIs(t, err, badgerhold.ErrNotFound, "expired job should be swept")
	_, err = records.GetRecord(expired.ID)
	require.ErrorIs(t, err, badgerhold.ErrNotFound, "expired record should be swept")

	kept, err := jobs.GetJob(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusCompleted, kept.Status)
	_, err = records.GetRecord(fresh.ID)
	require.NoError(t, err)

	stillRunning, err := jobs.GetJob(running.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusProcessing, stillRunning.Status)

	status, err := service.GetJobStatus(retentionJobName)
	require.NoError(t, err)
	assert.Empty(t, status.LastError)
}

func sweepRecord(id, url string) *models.BusinessRecord {
	return &models.BusinessRecord{
		Metadata: models.RecordMetadata{
			AnalysisID:  id,
			URLAnalyzed: url,
			AnalyzedAt:  time.Now().UTC(),
			Version:     models.RecordVersion,
			Status:      "complete",
		},
	}
}
