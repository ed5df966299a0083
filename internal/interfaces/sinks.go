package interfaces

import (
	"context"

	"github.com/ternarybob/specto/internal/models"
)

// ResultSink receives the finished record of a completed analysis.
// Sinks are best-effort: a delivery failure is reported to the caller
// for bookkeeping but must never affect the analysis outcome or other
// sinks.
type ResultSink interface {
	// Name identifies the sink in logs and per-sink error maps
	Name() string

	// Deliver pushes one completed analysis to the sink
	Deliver(ctx context.Context, job *models.AnalysisJob, record *models.BusinessRecord) error
}

// SinkDispatcher fans a completed analysis out to every registered sink.
// Each sink failure is isolated; the returned map holds one entry per
// failed sink and is empty when every delivery succeeded.
type SinkDispatcher interface {
	Dispatch(ctx context.Context, job *models.AnalysisJob, record *models.BusinessRecord) map[string]error
}
