package sinks

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/models"
)

type recordingSink struct {
	name  string
	err   error
	panic bool

	mu    sync.Mutex
	calls int
}

func (s *recordingSink) Name() string {
	return s.name
}

func (s *recordingSink) Deliver(ctx context.Context, job *models.AnalysisJob, record *models.BusinessRecord) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.panic {
		panic("sink exploded")
	}
	return s.err
}

func (s *recordingSink) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func sampleJob(id string) *models.AnalysisJob {
	return models.NewAnalysisJob(id, "https://acme.example", 0)
}

func sampleRecord(id string) *models.BusinessRecord {
	technical := models.NewTechnicalMetrics()
	technical.SSL = true
	technical.MobileFriendly.Friendly = true
	technical.TechStack.CMS = "WordPress"
	technical.TechStack.Analytics = "Google Analytics"
	technical.Performance.LoadTimeMs = 1234

	social := models.NewSocialPresence()
	social.Platforms["facebook"] = models.PlatformPresence{Present: true, URL: "https://facebook.com/acme"}
	social.Platforms["instagram"] = models.PlatformPresence{Present: true, URL: "https://instagram.com/acme"}
	social.PresenceScore = 2

	contact := models.NewContactInfo()
	contact.Emails = []string{"hello@acme.example"}
	contact.Phones = []string{"+1 555 0100"}

	return &models.BusinessRecord{
		TechnicalMetrics: technical,
		SocialPresence:   social,
		ContactInfo:      contact,
		AIAnalysis: models.AIAnalysis{
			BusinessName: "Acme Plumbing",
			Industry:     "Home Services",
			Insights:     models.AIInsights{ExecutiveSummary: "Solid local presence."},
		},
		Metadata: models.RecordMetadata{
			AnalysisID:  id,
			URLAnalyzed: "https://acme.example",
			AnalyzedAt:  time.Now().UTC(),
			Version:     models.RecordVersion,
			Status:      "complete",
		},
	}
}

func TestDispatchAllSucceed(t *testing.T) {
	first := &recordingSink{name: "first"}
	second := &recordingSink{name: "second"}
	fanout := NewFanout(nil, arbor.NewLogger(), first, second)

	failures := fanout.Dispatch(context.Background(), sampleJob("an_1"), sampleRecord("an_1"))

	assert.Empty(t, failures)
	assert.Equal(t, 1, first.callCount())
	assert.Equal(t, 1, second.callCount())
}

func TestDispatchIsolatesFailures(t *testing.T) {
	broken := &recordingSink{name: "webhook", err: fmt.Errorf("endpoint down")}
	healthy := &recordingSink{name: "store"}
	fanout := NewFanout(nil, arbor.NewLogger(), broken, healthy)

	failures := fanout.Dispatch(context.Background(), sampleJob("an_1"), sampleRecord("an_1"))

	assert.Len(t, failures, 1)
	assert.EqualError(t, failures["webhook"], "endpoint down")
	assert.Equal(t, 1, healthy.callCount(), "remaining sinks still run after a failure")
}

func TestDispatchContainsPanics(t *testing.T) {
	exploding := &recordingSink{name: "spreadsheet", panic: true}
	healthy := &recordingSink{name: "store"}
	fanout := NewFanout(nil, arbor.NewLogger(), exploding, healthy)

	failures := fanout.Dispatch(context.Background(), sampleJob("an_1"), sampleRecord("an_1"))

	assert.Len(t, failures, 1)
	assert.Contains(t, failures["spreadsheet"].Error(), "sink panicked")
	assert.Equal(t, 1, healthy.callCount())
}

func TestDispatchNoSinks(t *testing.T) {
	fanout := NewFanout(nil, arbor.NewLogger())

	failures := fanout.Dispatch(context.Background(), sampleJob("an_1"), sampleRecord("an_1"))

	assert.Empty(t, failures)
}
