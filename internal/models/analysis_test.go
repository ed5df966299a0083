package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewAnalysisJob(t *testing.T) {
	job := NewAnalysisJob("an_123", "https://example.com", 1)

	if job.Status != AnalysisStatusProcessing {
		t.Errorf("expected processing status, got %s", job.Status)
	}
	if job.Result != nil {
		t.Error("new job must not carry a result")
	}
	if job.CompletedTime != nil {
		t.Error("new job must not have a completed time")
	}
	if job.IsTerminal() {
		t.Error("new job must not be terminal")
	}
	if job.StartTime.IsZero() {
		t.Error("start time must be set")
	}
}

func TestMarkCompleted(t *testing.T) {
	job := NewAnalysisJob("an_123", "https://example.com", 0)
	record := &BusinessRecord{}

	job.MarkCompleted(record)

	if job.Status != AnalysisStatusCompleted {
		t.Errorf("expected completed, got %s", job.Status)
	}
	if job.Result != record {
		t.Error("result not attached")
	}
	if job.CompletedTime == nil {
		t.Error("completed time not set")
	}
	if !job.IsTerminal() {
		t.Error("completed job must be terminal")
	}
	if job.Progress.Percent != 100 || job.Progress.Stage != StageDone {
		t.Errorf("expected 100%%/done progress, got %d%%/%s", job.Progress.Percent, job.Progress.Stage)
	}
}

func TestMarkError(t *testing.T) {
	job := NewAnalysisJob("an_123", "https://example.com", 0)

	job.MarkError("navigation timeout")

	if job.Status != AnalysisStatusError {
		t.Errorf("expected error status, got %s", job.Status)
	}
	if job.Error != "navigation timeout" {
		t.Errorf("unexpected error message: %s", job.Error)
	}
	if job.Result != nil {
		t.Error("failed job must not carry a result")
	}
	if job.CompletedTime == nil {
		t.Error("completed time not set on error")
	}
}

func TestSetProgressClamps(t *testing.T) {
	job := NewAnalysisJob("an_123", "https://example.com", 0)
	job.SetProgress(150, StageCrawling)
	if job.Progress.Percent != 100 {
		t.Errorf("expected clamp to 100, got %d", job.Progress.Percent)
	}

	job = NewAnalysisJob("an_456", "https://example.com", 0)
	job.SetProgress(-5, StageCrawling)
	if job.Progress.Percent != 0 {
		t.Errorf("expected clamp to 0, got %d", job.Progress.Percent)
	}
}

func TestSetProgressNeverMovesBackwards(t *testing.T) {
	job := NewAnalysisJob("an_123", "https://example.com", 0)

	job.SetProgress(70, StageSummarizing)
	job.SetProgress(25, StageCrawling)

	if job.Progress.Percent != 70 {
		t.Errorf("expected percent to hold at 70, got %d", job.Progress.Percent)
	}
	if job.Progress.Stage != StageCrawling {
		t.Errorf("stage should still update, got %s", job.Progress.Stage)
	}
}

func TestRecordSinkError(t *testing.T) {
	job := NewAnalysisJob("an_123", "https://example.com", 0)
	job.MarkCompleted(&BusinessRecord{})

	job.RecordSinkError("webhook", errFake("connection refused"))

	if job.Status != AnalysisStatusCompleted {
		t.Error("sink errors must not change job status")
	}
	if job.SinkErrors["webhook"] != "connection refused" {
		t.Errorf("unexpected sink error map: %v", job.SinkErrors)
	}

	job.RecordSinkError("spreadsheet", nil)
	if _, ok := job.SinkErrors["spreadsheet"]; ok {
		t.Error("nil errors must not be recorded")
	}
}

type errFake string

func (e errFake) Error() string { return string(e) }

func TestDuration(t *testing.T) {
	job := NewAnalysisJob("an_123", "https://example.com", 0)
	job.StartTime = time.Now().UTC().Add(-2 * time.Second)

	if job.Duration() < 2*time.Second {
		t.Errorf("expected at least 2s elapsed, got %v", job.Duration())
	}

	done := job.StartTime.Add(5 * time.Second)
	job.CompletedTime = &done
	if job.Duration() != 5*time.Second {
		t.Errorf("expected fixed 5s duration for terminal job, got %v", job.Duration())
	}
}

// Every top-level section key must survive serialization even for a
// zero-signal record.
func TestBusinessRecordSectionsAlwaysPresent(t *testing.T) {
	record := BusinessRecord{
		TechnicalMetrics: NewTechnicalMetrics(),
		SocialPresence:   NewSocialPresence(),
		ContactInfo:      NewContactInfo(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"technical_metrics", "social_presence", "contact_info", "ai_analysis", "metadata"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing top-level section %q", key)
		}
	}
}

func TestAIAnalysisFailed(t *testing.T) {
	ok := AIAnalysis{BusinessName: "Acme"}
	if ok.Failed() {
		t.Error("analysis without error must not report failed")
	}

	degraded := AIAnalysis{Error: "no JSON object found in response"}
	if !degraded.Failed() {
		t.Error("analysis with error placeholder must report failed")
	}
}

func TestAggregatedTextOrder(t *testing.T) {
	result := &CrawlResult{
		Pages: []*RenderedPage{
			{VisibleText: "parent page"},
			{VisibleText: ""},
			nil,
			{VisibleText: "child page"},
		},
	}

	got := result.AggregatedText()
	want := "parent page child page"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIsHTTPS(t *testing.T) {
	tests := []struct {
		name string
		page RenderedPage
		want bool
	}{
		{"https final url", RenderedPage{URL: "http://example.com", FinalURL: "https://example.com"}, true},
		{"http only", RenderedPage{URL: "http://example.com", FinalURL: "http://example.com"}, false},
		{"falls back to requested url", RenderedPage{URL: "https://example.com"}, true},
		{"empty", RenderedPage{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.IsHTTPS(); got != tt.want {
				t.Errorf("IsHTTPS() = %v, want %v", got, tt.want)
			}
		})
	}
}
