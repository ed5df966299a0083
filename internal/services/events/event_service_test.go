package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/interfaces"
)

func TestPublishSyncDeliversToAllSubscribers(t *testing.T) {
	logger := arbor.NewLogger()
	svc := NewService(logger)
	defer svc.Close()

	var count int32
	handler := func(ctx context.Context, event interfaces.Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	}

	if err := svc.Subscribe(interfaces.EventAnalysisCompleted, handler); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := svc.Subscribe(interfaces.EventAnalysisCompleted, handler); err != nil {
		t.Fatalf("Second subscribe failed: %v", err)
	}

	event := interfaces.Event{
		Type:    interfaces.EventAnalysisCompleted,
		Payload: map[string]interface{}{"analysis_id": "an_1"},
	}
	if err := svc.PublishSync(context.Background(), event); err != nil {
		t.Fatalf("PublishSync failed: %v", err)
	}

	if got := atomic.LoadInt32(&count); got != 2 {
		t.Errorf("Expected 2 handler invocations, got %d", got)
	}
}

func TestPublishSyncAggregatesHandlerErrors(t *testing.T) {
	logger := arbor.NewLogger()
	svc := NewService(logger)
	defer svc.Close()

	failing := func(ctx context.Context, event interfaces.Event) error {
		return errors.New("handler exploded")
	}
	if err := svc.Subscribe(interfaces.EventAnalysisFailed, failing); err != nil {
		t.Fatal(err)
	}

	err := svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventAnalysisFailed})
	if err == nil {
		t.Error("Expected aggregated error from failing handler")
	}
}

func TestPublishAsyncDoesNotBlock(t *testing.T) {
	logger := arbor.NewLogger()
	svc := NewService(logger)
	defer svc.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	handler := func(ctx context.Context, event interfaces.Event) error {
		defer wg.Done()
		return nil
	}
	if err := svc.Subscribe(interfaces.EventPageCrawled, handler); err != nil {
		t.Fatal(err)
	}

	if err := svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventPageCrawled}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Async handler was never invoked")
	}
}

func TestPublishWithNoSubscribers(t *testing.T) {
	logger := arbor.NewLogger()
	svc := NewService(logger)
	defer svc.Close()

	if err := svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventSinkDelivered}); err != nil {
		t.Errorf("Publish with no subscribers should be a no-op, got %v", err)
	}
	if err := svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventSinkDelivered}); err != nil {
		t.Errorf("PublishSync with no subscribers should be a no-op, got %v", err)
	}
}

func TestSubscribeRejectsNilHandler(t *testing.T) {
	logger := arbor.NewLogger()
	svc := NewService(logger)
	defer svc.Close()

	if err := svc.Subscribe(interfaces.EventAnalysisStarted, nil); err == nil {
		t.Error("Expected error subscribing nil handler")
	}
}

func TestUnsubscribeRemovesHandler(t *testing.T) {
	logger := arbor.NewLogger()
	svc := NewService(logger)
	defer svc.Close()

	var count int32
	handler := func(ctx context.Context, event interfaces.Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	}

	if err := svc.Subscribe(interfaces.EventAnalysisProgress, handler); err != nil {
		t.Fatal(err)
	}
	if err := svc.Unsubscribe(interfaces.EventAnalysisProgress, handler); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	if err := svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventAnalysisProgress}); err != nil {
		t.Fatalf("PublishSync failed: %v", err)
	}
	if got := atomic.LoadInt32(&count); got != 0 {
		t.Errorf("Expected no invocations after unsubscribe, got %d", got)
	}
}

func TestLoggerSubscriberHandlesPayloads(t *testing.T) {
	logger := arbor.NewLogger()
	subscriber := NewLoggerSubscriber(logger)

	ctx := context.Background()
	event := interfaces.Event{
		Type: interfaces.EventAnalysisStarted,
		Payload: map[string]interface{}{
			"analysis_id": "an_test-123",
			"url":         "https://example.com",
			"status":      "processing",
		},
	}
	if err := subscriber(ctx, event); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	// Event without payload should not panic
	if err := subscriber(ctx, interfaces.Event{Type: interfaces.EventSinkFailed}); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

func TestSubscribeLoggerToAllEvents(t *testing.T) {
	logger := arbor.NewLogger()
	svc := NewService(logger)
	defer svc.Close()

	if err := SubscribeLoggerToAllEvents(svc, logger); err != nil {
		t.Fatalf("Failed to subscribe logger: %v", err)
	}
}
