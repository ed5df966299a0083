// -----------------------------------------------------------------------
// Sink Fanout - delivers completed analyses to every configured sink
// -----------------------------------------------------------------------

package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
)

// Fanout pushes one completed analysis to every registered sink in
// order. Sinks are isolated from each other: a failing or panicking
// sink is reported in the returned map and the remaining sinks still
// run.
type Fanout struct {
	sinks  []interfaces.ResultSink
	events interfaces.EventService
	logger arbor.ILogger
}

// NewFanout creates a dispatcher over the given sinks
func NewFanout(events interfaces.EventService, logger arbor.ILogger, sinks ...interfaces.ResultSink) *Fanout {
	return &Fanout{
		sinks:  sinks,
		events: events,
		logger: logger,
	}
}

// Dispatch delivers the record to each sink and collects failures.
// The returned map is empty when every delivery succeeded.
func (f *Fanout) Dispatch(ctx context.Context, job *models.AnalysisJob, record *models.BusinessRecord) map[string]error {
	failures := make(map[string]error)

	for _, sink := range f.sinks {
		if err := f.deliver(ctx, sink, job, record); err != nil {
			failures[sink.Name()] = err
		}
	}

	return failures
}

// deliver runs one sink, containing panics so a broken sink cannot
// take down the pipeline or the sinks after it
func (f *Fanout) deliver(ctx context.Context, sink interfaces.ResultSink, job *models.AnalysisJob, record *models.BusinessRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()

	start := time.Now()
	err = sink.Deliver(ctx, job, record)
	elapsed := time.Since(start)

	if err != nil {
		f.logger.Warn().
			Err(err).
			Str("sink", sink.Name()).
			Str("analysis_id", job.ID).
			Dur("elapsed", elapsed).
			Msg("Sink delivery failed")
		f.publish(interfaces.EventSinkFailed, job, sink.Name(), err)
		return err
	}

	f.logger.Debug().
		Str("sink", sink.Name()).
		Str("analysis_id", job.ID).
		Dur("elapsed", elapsed).
		Msg("Sink delivery succeeded")
	f.publish(interfaces.EventSinkDelivered, job, sink.Name(), nil)
	return nil
}

func (f *Fanout) publish(eventType interfaces.EventType, job *models.AnalysisJob, sinkName string, deliveryErr error) {
	if f.events == nil {
		return
	}

	payload := map[string]interface{}{
		"analysis_id": job.ID,
		"url":         job.URL,
		"sink":        sinkName,
	}
	if deliveryErr != nil {
		payload["error"] = deliveryErr.Error()
	}

	if err := f.events.Publish(context.Background(), interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		f.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish sink event")
	}
}

var _ interfaces.SinkDispatcher = (*Fanout)(nil)
