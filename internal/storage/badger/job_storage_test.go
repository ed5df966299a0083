package badger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func openTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store}
}

func TestJobPersistence(t *testing.T) {
	db := openTestDB(t)
	storage := NewJobStorage(db, arbor.NewLogger())

	job := models.NewAnalysisJob("an_persist", "https://example.com", 1)
	if err := storage.SaveJob(job); err != nil {
		t.Fatalf("Failed to save job: %v", err)
	}

	loaded, err := storage.GetJob(job.ID)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if loaded.URL != "https://example.com" {
		t.Errorf("Expected URL https://example.com, got %s", loaded.URL)
	}
	if loaded.Status != models.AnalysisStatusProcessing {
		t.Errorf("Expected status processing, got %s", loaded.Status)
	}
	if loaded.MaxDepth != 1 {
		t.Errorf("Expected max depth 1, got %d", loaded.MaxDepth)
	}

	// Status transition should persist through upsert
	job.MarkError("browser crashed")
	if err := storage.SaveJob(job); err != nil {
		t.Fatalf("Failed to update job: %v", err)
	}
	loaded, err = storage.GetJob(job.ID)
	if err != nil {
		t.Fatalf("Failed to reload job: %v", err)
	}
	if loaded.Status != models.AnalysisStatusError {
		t.Errorf("Expected status error, got %s", loaded.Status)
	}
	if loaded.Error != "browser crashed" {
		t.Errorf("Expected error message to persist, got %q", loaded.Error)
	}
	if loaded.CompletedTime == nil {
		t.Error("Expected completed time to be set")
	}
}

func TestGetJobNotFound(t *testing.T) {
	db := openTestDB(t)
	storage := NewJobStorage(db, arbor.NewLogger())

	_, err := storage.GetJob("an_missing")
	if err == nil {
		t.Fatal("Expected error for missing job")
	}
	if !errors.Is(err, badgerhold.ErrNotFound) {
		t.Errorf("Expected ErrNotFound in chain, got %v", err)
	}
}

func TestListJobsOrdering(t *testing.T) {
	db := openTestDB(t)
	storage := NewJobStorage(db, arbor.NewLogger())

	base := time.Now().Add(-1 * time.Hour)
	ids := make([]string, 3)
	for i := 0; i < 3; i++ {
		job := models.NewAnalysisJob(fmt.Sprintf("an_order_%d", i), "https://example.com", 0)
		job.StartTime = base.Add(time.Duration(i) * time.Minute)
		ids[i] = job.ID
		if err := storage.SaveJob(job); err != nil {
			t.Fatalf("Failed to save job %d: %v", i, err)
		}
	}

	jobs, err := storage.ListJobs(0, 0)
	if err != nil {
		t.Fatalf("Failed to list jobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("Expected 3 jobs, got %d", len(jobs))
	}
	// Most recent first
	if jobs[0].ID != ids[2] || jobs[2].ID != ids[0] {
		t.Errorf("Expected newest-first ordering, got %s, %s, %s", jobs[0].ID, jobs[1].ID, jobs[2].ID)
	}

	limited, err := storage.ListJobs(2, 1)
	if err != nil {
		t.Fatalf("Failed to list jobs with paging: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("Expected 2 jobs with limit, got %d", len(limited))
	}
	if limited[0].ID != ids[1] {
		t.Errorf("Expected offset to skip newest job, got %s", limited[0].ID)
	}
}

func TestListJobsByStatus(t *testing.T) {
	db := openTestDB(t)
	storage := NewJobStorage(db, arbor.NewLogger())

	running := models.NewAnalysisJob("an_running", "https://example.com/a", 0)
	if err := storage.SaveJob(running); err != nil {
		t.Fatal(err)
	}

	done := models.NewAnalysisJob("an_done", "https://example.com/b", 0)
	done.MarkCompleted(nil)
	if err := storage.SaveJob(done); err != nil {
		t.Fatal(err)
	}

	completed, err := storage.ListJobsByStatus(models.AnalysisStatusCompleted)
	if err != nil {
		t.Fatalf("Failed to list by status: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != done.ID {
		t.Errorf("Expected only completed job, got %d jobs", len(completed))
	}

	count, err := storage.CountJobs()
	if err != nil {
		t.Fatalf("Failed to count jobs: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 jobs total, got %d", count)
	}
}

func TestDeleteCompletedBefore(t *testing.T) {
	db := openTestDB(t)
	storage := NewJobStorage(db, arbor.NewLogger())

	cutoff := time.Now().Add(-30 * time.Minute)

	// Old but still processing: must survive the sweep
	stale := models.NewAnalysisJob("an_stale", "https://example.com/stale", 0)
	stale.StartTime = time.Now().Add(-2 * time.Hour)
	if err := storage.SaveJob(stale); err != nil {
		t.Fatal(err)
	}

	// Completed before the cutoff: should be removed
	expired := models.NewAnalysisJob("an_expired", "https://example.com/expired", 0)
	expired.MarkCompleted(nil)
	old := time.Now().Add(-1 * time.Hour)
	expired.CompletedTime = &old
	if err := storage.SaveJob(expired); err != nil {
		t.Fatal(err)
	}

	// Completed after the cutoff: should be kept
	fresh := models.NewAnalysisJob("an_fresh", "https://example.com/fresh", 0)
	fresh.MarkCompleted(nil)
	if err := storage.SaveJob(fresh); err != nil {
		t.Fatal(err)
	}

	deleted, err := storage.DeleteCompletedBefore(cutoff)
	if err != nil {
		t.Fatalf("Failed to sweep jobs: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != expired.ID {
		t.Errorf("Expected only the expired job id, got %v", deleted)
	}

	if _, err := storage.GetJob(expired.ID); err == nil {
		t.Error("Expected expired job to be deleted")
	}
	if _, err := storage.GetJob(stale.ID); err != nil {
		t.Errorf("Expected processing job to survive sweep: %v", err)
	}
	if _, err := storage.GetJob(fresh.ID); err != nil {
		t.Errorf("Expected fresh job to survive sweep: %v", err)
	}
}

func TestDeleteJob(t *testing.T) {
	db := openTestDB(t)
	storage := NewJobStorage(db, arbor.NewLogger())

	job := models.NewAnalysisJob("an_delete", "https://example.com", 0)
	if err := storage.SaveJob(job); err != nil {
		t.Fatal(err)
	}
	if err := storage.DeleteJob(job.ID); err != nil {
		t.Fatalf("Failed to delete job: %v", err)
	}
	if _, err := storage.GetJob(job.ID); err == nil {
		t.Error("Expected job to be gone after delete")
	}
	if err := storage.DeleteJob(job.ID); !errors.Is(err, badgerhold.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}
