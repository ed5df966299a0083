package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(job *models.AnalysisJob) error {
	if job == nil {
		return fmt.Errorf("job is required")
	}
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(id string) (*models.AnalysisJob, error) {
	var job models.AnalysisJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("job not found: %s: %w", id, badgerhold.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) DeleteJob(id string) error {
	if err := s.db.Store().Delete(id, &models.AnalysisJob{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("job not found: %s: %w", id, badgerhold.ErrNotFound)
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *JobStorage) ListJobs(limit, offset int) ([]*models.AnalysisJob, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("StartTime").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var jobs []models.AnalysisJob
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.AnalysisJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) ListJobsByStatus(status models.AnalysisStatus) ([]*models.AnalysisJob, error) {
	query := badgerhold.Where("Status").Eq(status).SortBy("StartTime").Reverse()

	var jobs []models.AnalysisJob
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs by status: %w", err)
	}

	result := make([]*models.AnalysisJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) CountJobs() (int, error) {
	count, err := s.db.Store().Count(&models.AnalysisJob{}, nil)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// DeleteCompletedBefore removes terminal jobs whose completion time is older
// than the cutoff. Jobs still processing are never touched.
func (s *JobStorage) DeleteCompletedBefore(cutoff time.Time) ([]string, error) {
	var jobs []models.AnalysisJob
	query := badgerhold.Where("Status").Ne(models.AnalysisStatusProcessing)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to query terminal jobs: %w", err)
	}

	deleted := []string{}
	for i := range jobs {
		job := &jobs[i]
		if job.CompletedTime == nil || !job.CompletedTime.Before(cutoff) {
			continue
		}
		if err := s.db.Store().Delete(job.ID, &models.AnalysisJob{}); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to delete expired job")
			continue
		}
		deleted = append(deleted, job.ID)
	}

	if len(deleted) > 0 {
		s.logger.Debug().Int("deleted", len(deleted)).Msg("Expired analysis jobs removed")
	}
	return deleted, nil
}
