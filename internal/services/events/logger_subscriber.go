package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/interfaces"
)

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		// Extract common fields from payload if available
		var analysisID, url, status string
		if payload, ok := event.Payload.(map[string]interface{}); ok {
			if id, ok := payload["analysis_id"].(string); ok {
				analysisID = id
			}
			if u, ok := payload["url"].(string); ok {
				url = u
			}
			if s, ok := payload["status"].(string); ok {
				status = s
			}
		}

		// Log event with structured fields
		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		if analysisID != "" {
			logEvent = logEvent.Str("analysis_id", analysisID)
		}
		if url != "" {
			logEvent = logEvent.Str("url", url)
		}
		if status != "" {
			logEvent = logEvent.Str("status", status)
		}

		logEvent.Msg("Event published")

		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all known event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	// Subscribe to all event types
	eventTypes := []interfaces.EventType{
		interfaces.EventAnalysisStarted,
		interfaces.EventAnalysisProgress,
		interfaces.EventAnalysisCompleted,
		interfaces.EventAnalysisFailed,
		interfaces.EventPageCrawled,
		interfaces.EventSinkDelivered,
		interfaces.EventSinkFailed,
	}

	for _, eventType := range eventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Info().
		Int("event_type_count", len(eventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}
