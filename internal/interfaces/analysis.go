package interfaces

import (
	"context"

	"github.com/ternarybob/specto/internal/models"
)

// AnalysisService owns the asynchronous analysis job lifecycle.
// Submit returns immediately with a job in the processing state; the
// pipeline runs unattended in the background and transitions the job
// to completed or error exactly once.
type AnalysisService interface {
	// Submit validates the URL and starts a background analysis.
	// maxDepth below zero uses the configured default.
	Submit(ctx context.Context, url string, maxDepth int) (*models.AnalysisJob, error)

	// GetJob returns the current snapshot of a job
	GetJob(ctx context.Context, id string) (*models.AnalysisJob, error)

	// ListJobs returns recent jobs, most-recent-first
	ListJobs(ctx context.Context, limit int) ([]*models.AnalysisJob, error)

	// DeleteJob removes a job and its stored record
	DeleteJob(ctx context.Context, id string) error

	// GetRecord returns the merged record of a completed job
	GetRecord(ctx context.Context, id string) (*models.BusinessRecord, error)

	// ActiveCount returns the number of analyses currently running
	ActiveCount() int

	// Wait blocks until all running analyses finish, for shutdown
	Wait()
}
