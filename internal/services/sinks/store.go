package sinks

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
)

// StoreSink persists the merged record so it can be fetched and
// exported later. It is always registered; the other sinks are
// optional.
type StoreSink struct {
	records interfaces.RecordStorage
	logger  arbor.ILogger
}

// NewStoreSink creates the record persistence sink
func NewStoreSink(records interfaces.RecordStorage, logger arbor.ILogger) *StoreSink {
	return &StoreSink{
		records: records,
		logger:  logger,
	}
}

// Name identifies the sink in logs and error maps
func (s *StoreSink) Name() string {
	return "store"
}

// Deliver writes the record to storage keyed by analysis id
func (s *StoreSink) Deliver(ctx context.Context, job *models.AnalysisJob, record *models.BusinessRecord) error {
	if err := s.records.SaveRecord(record); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

var _ interfaces.ResultSink = (*StoreSink)(nil)
