// -----------------------------------------------------------------------
// Storage Interfaces - Persistence contracts for analysis jobs and records
// -----------------------------------------------------------------------

package interfaces

import (
	"time"

	"github.com/ternarybob/specto/internal/models"
)

// JobStorage - interface for analysis job persistence
type JobStorage interface {
	// CRUD operations
	SaveJob(job *models.AnalysisJob) error
	GetJob(id string) (*models.AnalysisJob, error)
	DeleteJob(id string) error

	// List operations, most-recent-first
	ListJobs(limit, offset int) ([]*models.AnalysisJob, error)
	ListJobsByStatus(status models.AnalysisStatus) ([]*models.AnalysisJob, error)

	// Stats operations
	CountJobs() (int, error)

	// Retention: remove terminal jobs completed before the cutoff.
	// Returns the ids of the deleted jobs so callers can clean up
	// associated records.
	DeleteCompletedBefore(cutoff time.Time) ([]string, error)
}

// RecordStorage - interface for merged business record persistence
type RecordStorage interface {
	SaveRecord(record *models.BusinessRecord) error
	GetRecord(analysisID string) (*models.BusinessRecord, error)
	DeleteRecord(analysisID string) error

	// ListRecords returns completed records, most-recent-first
	ListRecords(limit, offset int) ([]*models.BusinessRecord, error)
	CountRecords() (int, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	JobStorage() JobStorage
	RecordStorage() RecordStorage
	DB() interface{}
	Close() error
}
