// -----------------------------------------------------------------------
// Analysis Service - async job lifecycle and pipeline orchestration
// -----------------------------------------------------------------------

package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
	"github.com/ternarybob/specto/internal/services/extractors"
	"github.com/timshannon/badgerhold/v4"
)

// queueCapacity bounds how many submitted jobs can wait for a worker
const queueCapacity = 100

var (
	// ErrInvalidURL is returned when a submitted URL fails validation
	ErrInvalidURL = errors.New("invalid url")
	// ErrJobNotFound is returned for unknown or malformed job ids
	ErrJobNotFound = errors.New("analysis job not found")
	// ErrRecordNotFound is returned when a job has no merged record
	ErrRecordNotFound = errors.New("analysis record not found")
	// ErrShuttingDown is returned for submissions after shutdown started
	ErrShuttingDown = errors.New("analysis service is shutting down")
)

type submitRequest struct {
	URL string `validate:"required,url"`
}

// Service owns the analysis job lifecycle. Submit enqueues a job and
// returns immediately; a fixed pool of workers consumes the queue and
// runs the pipeline, so each job executes at most once. Jobs transition
// processing -> completed/error exactly once and are never retried.
type Service struct {
	crawler    interfaces.SiteCrawler
	technical  *extractors.TechnicalExtractor
	social     *extractors.SocialExtractor
	contact    *extractors.ContactExtractor
	summarizer *Summarizer
	merger     *Merger
	storage    interfaces.StorageManager
	events     interfaces.EventService
	sinks      interfaces.SinkDispatcher
	config     *common.AnalysisConfig
	logger     arbor.ILogger
	validate   *validator.Validate

	pending chan *models.AnalysisJob
	workers sync.WaitGroup
	active  int64

	mu      sync.RWMutex
	stopped bool
}

// NewService creates the analysis service and starts its worker pool
func NewService(
	crawler interfaces.SiteCrawler,
	summarizer *Summarizer,
	storage interfaces.StorageManager,
	eventService interfaces.EventService,
	sinks interfaces.SinkDispatcher,
	config *common.AnalysisConfig,
	logger arbor.ILogger,
) *Service {
	s := &Service{
		crawler:    crawler,
		technical:  extractors.NewTechnicalExtractor(logger),
		social:     extractors.NewSocialExtractor(logger),
		contact:    extractors.NewContactExtractor(logger),
		summarizer: summarizer,
		merger:     NewMerger(logger),
		storage:    storage,
		events:     eventService,
		sinks:      sinks,
		config:     config,
		logger:     logger,
		validate:   validator.New(),
		pending:    make(chan *models.AnalysisJob, queueCapacity),
	}

	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	for i := 0; i < maxConcurrent; i++ {
		workerID := i
		s.workers.Add(1)
		common.SafeGo(logger, fmt.Sprintf("analysis-worker-%d", workerID), func() {
			defer s.workers.Done()
			s.workerLoop(workerID)
		})
	}

	logger.Info().
		Int("workers", maxConcurrent).
		Int("queue_capacity", queueCapacity).
		Msg("Analysis service started")

	return s
}

// Submit validates the URL, persists a new job in the processing state
// and hands it to the worker queue. The caller never blocks on the
// pipeline. maxDepth below zero uses the configured default.
func (s *Service) Submit(ctx context.Context, url string, maxDepth int) (*models.AnalysisJob, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidURL)
	}

	// Bare domains get the https scheme so "example.com" just works
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	if err := s.validate.Struct(&submitRequest{URL: url}); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}

	if maxDepth < 0 {
		maxDepth = s.config.DefaultMaxDepth
	}

	job := models.NewAnalysisJob(common.NewAnalysisID(), url, maxDepth)
	if err := s.storage.JobStorage().SaveJob(job); err != nil {
		return nil, fmt.Errorf("failed to persist analysis job: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		if err := s.storage.JobStorage().DeleteJob(job.ID); err != nil {
			s.logger.Warn().Err(err).Str("analysis_id", job.ID).Msg("Failed to remove job after shutdown")
		}
		return nil, ErrShuttingDown
	}

	select {
	case s.pending <- job:
	default:
		if err := s.storage.JobStorage().DeleteJob(job.ID); err != nil {
			s.logger.Warn().Err(err).Str("analysis_id", job.ID).Msg("Failed to remove job after full queue")
		}
		return nil, fmt.Errorf("analysis queue is full, try again later")
	}

	s.logger.Info().
		Str("analysis_id", job.ID).
		Str("url", url).
		Int("max_depth", maxDepth).
		Msg("Analysis submitted")

	return job, nil
}

// GetJob returns the current snapshot of a job
func (s *Service) GetJob(ctx context.Context, id string) (*models.AnalysisJob, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrJobNotFound
	}

	job, err := s.storage.JobStorage().GetJob(id)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListJobs returns recent jobs, most-recent-first
func (s *Service) ListJobs(ctx context.Context, limit int) ([]*models.AnalysisJob, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.storage.JobStorage().ListJobs(limit, 0)
}

// DeleteJob removes a job and its stored record
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	if _, err := s.GetJob(ctx, id); err != nil {
		return err
	}

	if err := s.storage.RecordStorage().DeleteRecord(id); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		s.logger.Warn().Err(err).Str("analysis_id", id).Msg("Failed to delete analysis record")
	}

	return s.storage.JobStorage().DeleteJob(id)
}

// GetRecord returns the merged record of a completed job
func (s *Service) GetRecord(ctx context.Context, id string) (*models.BusinessRecord, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	if job.Result != nil {
		return job.Result, nil
	}

	record, err := s.storage.RecordStorage().GetRecord(id)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return record, nil
}

// ActiveCount returns the number of analyses currently running
func (s *Service) ActiveCount() int {
	return int(atomic.LoadInt64(&s.active))
}

// Wait stops accepting submissions, drains the queue and blocks until
// every worker finished. Queued jobs still run to completion because
// mid-pipeline cancellation is not supported.
func (s *Service) Wait() {
	s.mu.Lock()
	alreadyStopped := s.stopped
	s.stopped = true
	if !alreadyStopped {
		close(s.pending)
	}
	s.mu.Unlock()

	s.workers.Wait()
}

// workerLoop consumes jobs until the queue closes
func (s *Service) workerLoop(id int) {
	for job := range s.pending {
		s.process(job)
	}
	s.logger.Debug().Int("worker", id).Msg("Analysis worker stopped")
}

// process runs the full pipeline for one job. Panics are contained and
// surface as a job error, never as a dead worker.
func (s *Service) process(job *models.AnalysisJob) {
	atomic.AddInt64(&s.active, 1)
	defer atomic.AddInt64(&s.active, -1)

	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			s.logger.Error().
				Str("analysis_id", job.ID).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(buf[:n])).
				Msg("Analysis pipeline panicked")
			s.markFailed(job, fmt.Sprintf("internal error: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	s.logger.Info().
		Str("analysis_id", job.ID).
		Str("url", job.URL).
		Int("max_depth", job.MaxDepth).
		Msg("Starting analysis")
	s.publish(interfaces.EventAnalysisStarted, map[string]interface{}{
		"analysis_id": job.ID,
		"url":         job.URL,
		"status":      string(job.Status),
	})

	s.setProgress(job, 10, models.StageRendering)

	crawlResult, err := s.crawler.Crawl(ctx, job.URL, job.MaxDepth)
	if err != nil {
		s.markFailed(job, fmt.Sprintf("failed to load site: %v", err))
		return
	}
	if len(crawlResult.Pages) == 0 {
		s.markFailed(job, "crawl returned no pages")
		return
	}
	s.setProgress(job, 25, models.StageCrawling)

	for _, page := range crawlResult.Pages {
		s.publish(interfaces.EventPageCrawled, map[string]interface{}{
			"analysis_id": job.ID,
			"url":         page.URL,
			"depth":       page.Depth,
		})
	}

	// Extractors run against the rendered start page only
	startPage := crawlResult.Pages[0]
	s.setProgress(job, 45, models.StageExtracting)
	technical := s.technical.Extract(startPage)
	social := s.social.Extract(startPage)
	contact := s.contact.Extract(startPage)

	if ctx.Err() != nil {
		s.markFailed(job, "analysis timed out")
		return
	}
	s.setProgress(job, 70, models.StageSummarizing)
	ai := s.summarizer.Summarize(ctx, crawlResult.AggregatedText())
	if ctx.Err() != nil {
		s.markFailed(job, "analysis timed out")
		return
	}

	s.setProgress(job, 85, models.StageMerging)
	record := s.merger.Merge(technical, social, contact, ai, job.URL, job.ID)

	s.setProgress(job, 95, models.StageExporting)
	job.MarkCompleted(record)
	if err := s.storage.JobStorage().SaveJob(job); err != nil {
		s.logger.Error().Err(err).Str("analysis_id", job.ID).Msg("Failed to persist completed job")
	}
	s.publish(interfaces.EventAnalysisCompleted, map[string]interface{}{
		"analysis_id": job.ID,
		"url":         job.URL,
		"status":      string(job.Status),
		"duration_ms": job.Duration().Milliseconds(),
	})

	// Sink failures are recorded on the job but never change its status.
	// Delivery is not bound by the pipeline timeout; each sink carries its
	// own bound (webhook client timeout, SMTP dial timeout).
	if s.sinks != nil {
		failures := s.sinks.Dispatch(context.Background(), job, record)
		if len(failures) > 0 {
			for name, sinkErr := range failures {
				job.RecordSinkError(name, sinkErr)
			}
			if err := s.storage.JobStorage().SaveJob(job); err != nil {
				s.logger.Warn().Err(err).Str("analysis_id", job.ID).Msg("Failed to persist sink errors")
			}
		}
	}

	s.logger.Info().
		Str("analysis_id", job.ID).
		Str("url", job.URL).
		Int("pages_crawled", crawlResult.Summary.PagesCrawled).
		Bool("ai_degraded", ai.Failed()).
		Int64("duration_ms", job.Duration().Milliseconds()).
		Msg("Analysis completed")
}

// setProgress persists and broadcasts a progress snapshot
func (s *Service) setProgress(job *models.AnalysisJob, percent int, stage string) {
	job.SetProgress(percent, stage)
	if err := s.storage.JobStorage().SaveJob(job); err != nil {
		s.logger.Warn().Err(err).Str("analysis_id", job.ID).Msg("Failed to persist job progress")
	}

	s.publish(interfaces.EventAnalysisProgress, map[string]interface{}{
		"analysis_id": job.ID,
		"url":         job.URL,
		"status":      string(job.Status),
		"percent":     percent,
		"stage":       stage,
	})
}

// markFailed transitions a job to its error state. Terminal jobs are
// left untouched.
func (s *Service) markFailed(job *models.AnalysisJob, message string) {
	if job.IsTerminal() {
		s.logger.Warn().
			Str("analysis_id", job.ID).
			Str("error", message).
			Msg("Ignoring failure for terminal job")
		return
	}

	job.MarkError(message)
	if err := s.storage.JobStorage().SaveJob(job); err != nil {
		s.logger.Error().Err(err).Str("analysis_id", job.ID).Msg("Failed to persist failed job")
	}

	s.publish(interfaces.EventAnalysisFailed, map[string]interface{}{
		"analysis_id": job.ID,
		"url":         job.URL,
		"status":      string(job.Status),
		"error":       message,
	})

	s.logger.Warn().
		Str("analysis_id", job.ID).
		Str("url", job.URL).
		Str("error", message).
		Msg("Analysis failed")
}

// publish sends an event without blocking the pipeline
func (s *Service) publish(eventType interfaces.EventType, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(context.Background(), interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish event")
	}
}

var _ interfaces.AnalysisService = (*Service)(nil)
