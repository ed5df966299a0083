package models

import (
	"time"
)

// AnalysisStatus represents the state of an analysis job
type AnalysisStatus string

const (
	AnalysisStatusProcessing AnalysisStatus = "processing"
	AnalysisStatusCompleted  AnalysisStatus = "completed"
	AnalysisStatusError      AnalysisStatus = "error"
)

// Pipeline stage names reported through AnalysisProgress
const (
	StageRendering   = "rendering"
	StageCrawling    = "crawling"
	StageExtracting  = "extracting"
	StageSummarizing = "summarizing"
	StageMerging     = "merging"
	StageExporting   = "exporting"
	StageDone        = "done"
)

// AnalysisProgress reports how far the pipeline has advanced for one job
type AnalysisProgress struct {
	Percent int    `json:"percent"` // 0-100
	Stage   string `json:"stage"`   // Current pipeline stage name
}

// AnalysisJob represents one asynchronous website analysis request.
// A job is created in processing state and transitions exactly once to
// completed or error. Terminal jobs are never mutated again.
type AnalysisJob struct {
	ID            string           `json:"id"`
	URL           string           `json:"url"`
	MaxDepth      int              `json:"max_depth"`
	Status        AnalysisStatus   `json:"status"`
	Progress      AnalysisProgress `json:"progress"`
	StartTime     time.Time        `json:"start_time"`
	CompletedTime *time.Time       `json:"completed_time,omitempty"`
	Error         string           `json:"error,omitempty"`
	Result        *BusinessRecord  `json:"result,omitempty"`
	// SinkErrors records per-sink delivery failures after the analysis
	// itself completed. Sink failures never change the job status.
	SinkErrors map[string]string `json:"sink_errors,omitempty"`
}

// NewAnalysisJob creates a job in the processing state
func NewAnalysisJob(id, url string, maxDepth int) *AnalysisJob {
	return &AnalysisJob{
		ID:        id,
		URL:       url,
		MaxDepth:  maxDepth,
		Status:    AnalysisStatusProcessing,
		Progress:  AnalysisProgress{Percent: 0, Stage: StageRendering},
		StartTime: time.Now().UTC(),
	}
}

// IsTerminal returns true once the job reached completed or error
func (j *AnalysisJob) IsTerminal() bool {
	return j.Status == AnalysisStatusCompleted || j.Status == AnalysisStatusError
}

// SetProgress updates the progress snapshot for a running job. Percent
// never moves backwards within a run.
func (j *AnalysisJob) SetProgress(percent int, stage string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent < j.Progress.Percent {
		percent = j.Progress.Percent
	}
	j.Progress = AnalysisProgress{Percent: percent, Stage: stage}
}

// MarkCompleted transitions the job to its completed terminal state
func (j *AnalysisJob) MarkCompleted(result *BusinessRecord) {
	now := time.Now().UTC()
	j.Status = AnalysisStatusCompleted
	j.Result = result
	j.CompletedTime = &now
	j.Progress = AnalysisProgress{Percent: 100, Stage: StageDone}
}

// MarkError transitions the job to its error terminal state
func (j *AnalysisJob) MarkError(message string) {
	now := time.Now().UTC()
	j.Status = AnalysisStatusError
	j.Error = message
	j.CompletedTime = &now
}

// RecordSinkError attaches a per-sink delivery failure to a terminal job
func (j *AnalysisJob) RecordSinkError(sink string, err error) {
	if err == nil {
		return
	}
	if j.SinkErrors == nil {
		j.SinkErrors = make(map[string]string)
	}
	j.SinkErrors[sink] = err.Error()
}

// Duration returns elapsed time since the job started, or total runtime
// once the job is terminal.
func (j *AnalysisJob) Duration() time.Duration {
	if j.CompletedTime != nil {
		return j.CompletedTime.Sub(j.StartTime)
	}
	return time.Since(j.StartTime)
}
