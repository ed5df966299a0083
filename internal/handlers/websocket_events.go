package handlers

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/interfaces"
	"golang.org/x/time/rate"
)

// EventSubscriber bridges analysis lifecycle events to WebSocket
// broadcasts with config-driven filtering and throttling
type EventSubscriber struct {
	handler       *WebSocketHandler
	eventService  interfaces.EventService
	logger        arbor.ILogger
	allowedEvents map[string]bool          // Whitelist of events to broadcast (empty = allow all)
	throttlers    map[string]*rate.Limiter // Rate limiters for high-frequency events
}

// NewEventSubscriber creates the subscriber and registers it for all
// analysis lifecycle events
func NewEventSubscriber(handler *WebSocketHandler, eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *EventSubscriber {
	s := &EventSubscriber{
		handler:      handler,
		eventService: eventService,
		logger:       logger,
	}

	s.allowedEvents = make(map[string]bool)
	if config != nil && len(config.AllowedEvents) > 0 {
		for _, eventType := range config.AllowedEvents {
			s.allowedEvents[eventType] = true
		}
	}

	s.throttlers = make(map[string]*rate.Limiter)
	if config != nil && len(config.ThrottleIntervals) > 0 {
		for eventType, intervalStr := range config.ThrottleIntervals {
			duration, err := time.ParseDuration(intervalStr)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("event_type", eventType).
					Str("interval", intervalStr).
					Msg("Failed to parse throttle interval - skipping throttler")
				continue
			}
			s.throttlers[eventType] = rate.NewLimiter(rate.Every(duration), 1)
			logger.Debug().
				Str("event_type", eventType).
				Str("interval", intervalStr).
				Msg("Throttler initialized for event type")
		}
	}

	if eventService == nil {
		logger.Warn().Msg("EventSubscriber created with nil eventService - subscriptions will be skipped")
		return s
	}

	s.SubscribeAll()
	return s
}

// SubscribeAll registers subscriptions for all analysis lifecycle events
func (s *EventSubscriber) SubscribeAll() {
	if s.eventService == nil {
		return
	}

	s.eventService.Subscribe(interfaces.EventAnalysisStarted, s.handleStatusEvent)
	s.eventService.Subscribe(interfaces.EventAnalysisCompleted, s.handleStatusEvent)
	s.eventService.Subscribe(interfaces.EventAnalysisFailed, s.handleStatusEvent)
	s.eventService.Subscribe(interfaces.EventAnalysisProgress, s.handleProgressEvent)
	s.eventService.Subscribe(interfaces.EventPageCrawled, s.handlePageCrawledEvent)
	s.eventService.Subscribe(interfaces.EventSinkDelivered, s.handleSinkEvent)
	s.eventService.Subscribe(interfaces.EventSinkFailed, s.handleSinkEvent)

	s.logger.Info().Msg("EventSubscriber registered for analysis lifecycle events")
}

// shouldBroadcastEvent checks the whitelist and the per-event throttler
func (s *EventSubscriber) shouldBroadcastEvent(eventType string) bool {
	if len(s.allowedEvents) > 0 && !s.allowedEvents[eventType] {
		return false
	}

	if limiter, ok := s.throttlers[eventType]; ok {
		if !limiter.Allow() {
			return false
		}
	}

	return true
}

func (s *EventSubscriber) handleStatusEvent(ctx context.Context, event interfaces.Event) error {
	if !s.shouldBroadcastEvent(string(event.Type)) {
		return nil
	}

	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Invalid event payload type")
		return nil
	}

	update := AnalysisStatusUpdate{
		AnalysisID: getString(payload, "analysis_id"),
		URL:        getString(payload, "url"),
		Status:     getString(payload, "status"),
		Error:      getString(payload, "error"),
		DurationMs: int64(getInt(payload, "duration_ms")),
		Timestamp:  time.Now(),
	}

	s.handler.BroadcastStatus(update)
	return nil
}

func (s *EventSubscriber) handleProgressEvent(ctx context.Context, event interfaces.Event) error {
	if !s.shouldBroadcastEvent(string(event.Type)) {
		return nil
	}

	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		s.logger.Warn().Msg("Invalid progress event payload type")
		return nil
	}

	update := AnalysisProgressUpdate{
		AnalysisID: getString(payload, "analysis_id"),
		URL:        getString(payload, "url"),
		Percent:    getInt(payload, "percent"),
		Stage:      getString(payload, "stage"),
		Timestamp:  time.Now(),
	}

	s.handler.BroadcastProgress(update)
	return nil
}

func (s *EventSubscriber) handlePageCrawledEvent(ctx context.Context, event interfaces.Event) error {
	if !s.shouldBroadcastEvent(string(event.Type)) {
		return nil
	}

	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		s.logger.Warn().Msg("Invalid page crawled event payload type")
		return nil
	}

	update := PageCrawledUpdate{
		AnalysisID: getString(payload, "analysis_id"),
		URL:        getString(payload, "url"),
		Depth:      getInt(payload, "depth"),
		Timestamp:  time.Now(),
	}

	s.handler.BroadcastPageCrawled(update)
	return nil
}

func (s *EventSubscriber) handleSinkEvent(ctx context.Context, event interfaces.Event) error {
	if !s.shouldBroadcastEvent(string(event.Type)) {
		return nil
	}

	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		s.logger.Warn().Msg("Invalid sink event payload type")
		return nil
	}

	update := SinkUpdate{
		AnalysisID: getString(payload, "analysis_id"),
		URL:        getString(payload, "url"),
		Sink:       getString(payload, "sink"),
		Error:      getString(payload, "error"),
		Timestamp:  time.Now(),
	}

	s.handler.BroadcastSink(update)
	return nil
}

func getString(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	switch val := m[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	}
	return 0
}
