package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RecordEntry is the stored form of a business record. The analysis ID and
// timestamp are lifted to top-level fields so badgerhold can key and sort
// without reaching into the nested record.
type RecordEntry struct {
	AnalysisID string `badgerhold:"key"`
	URL        string
	AnalyzedAt time.Time
	Record     *models.BusinessRecord
}

// RecordStorage implements the RecordStorage interface for Badger
type RecordStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRecordStorage creates a new RecordStorage instance
func NewRecordStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RecordStorage {
	return &RecordStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RecordStorage) SaveRecord(record *models.BusinessRecord) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	if record.Metadata.AnalysisID == "" {
		return fmt.Errorf("record analysis ID is required")
	}

	entry := &RecordEntry{
		AnalysisID: record.Metadata.AnalysisID,
		URL:        record.Metadata.URLAnalyzed,
		AnalyzedAt: record.Metadata.AnalyzedAt,
		Record:     record,
	}
	if err := s.db.Store().Upsert(entry.AnalysisID, entry); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func (s *RecordStorage) GetRecord(analysisID string) (*models.BusinessRecord, error) {
	var entry RecordEntry
	if err := s.db.Store().Get(analysisID, &entry); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("record not found: %s: %w", analysisID, badgerhold.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return entry.Record, nil
}

func (s *RecordStorage) DeleteRecord(analysisID string) error {
	if err := s.db.Store().Delete(analysisID, &RecordEntry{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("record not found: %s: %w", analysisID, badgerhold.ErrNotFound)
		}
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (s *RecordStorage) ListRecords(limit, offset int) ([]*models.BusinessRecord, error) {
	query := badgerhold.Where("AnalysisID").Ne("").SortBy("AnalyzedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var entries []RecordEntry
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	result := make([]*models.BusinessRecord, 0, len(entries))
	for i := range entries {
		if entries[i].Record != nil {
			result = append(result, entries[i].Record)
		}
	}
	return result, nil
}

func (s *RecordStorage) CountRecords() (int, error) {
	count, err := s.db.Store().Count(&RecordEntry{}, nil)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
