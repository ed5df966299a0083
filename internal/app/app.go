// -----------------------------------------------------------------------
// Application - dependency wiring for the analysis pipeline
// -----------------------------------------------------------------------

package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/handlers"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/services/analysis"
	"github.com/ternarybob/specto/internal/services/browser"
	"github.com/ternarybob/specto/internal/services/crawler"
	"github.com/ternarybob/specto/internal/services/events"
	"github.com/ternarybob/specto/internal/services/llm"
	"github.com/ternarybob/specto/internal/services/reports"
	"github.com/ternarybob/specto/internal/services/scheduler"
	"github.com/ternarybob/specto/internal/services/sinks"
	"github.com/ternarybob/specto/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Event bus
	EventService interfaces.EventService

	// Browser pool and crawl pipeline
	BrowserPool *browser.Pool

	// LLM provider factory (Gemini and Claude)
	ProviderFactory *llm.ProviderFactory

	// Analysis pipeline
	AnalysisService interfaces.AnalysisService
	ReportService   interfaces.ReportService
	SinkDispatcher  interfaces.SinkDispatcher

	// Recurring analyses and retention sweep
	SchedulerService interfaces.SchedulerService

	// Log streaming to WebSocket clients
	LogStreamer *handlers.LogStreamer

	// HTTP handlers
	AnalysisHandler *handlers.AnalysisHandler
	ReportHandler   *handlers.ReportHandler
	ExportHandler   *handlers.ExportHandler
	StatusHandler   *handlers.StatusHandler
	WSHandler       *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize WebSocket handler early so log streaming can attach
	// before services start emitting
	app.EventService = events.NewService(app.Logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.Logger)

	// Stream server logs to connected WebSocket clients
	app.LogStreamer = handlers.NewLogStreamer(app.WSHandler, app.Logger, &cfg.WebSocket)
	if err := app.LogStreamer.Start(); err != nil {
		return nil, fmt.Errorf("failed to start log streamer: %w", err)
	}
	app.Logger.SetChannel("context", app.LogStreamer.GetChannel())

	// Initialize services
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	logger.Info().
		Str("llm_provider", string(cfg.LLM.DefaultProvider)).
		Bool("schedules_enabled", cfg.Schedules.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	// 1. Browser pool. Analyses cannot run without a rendered page, so
	// pool failures abort startup.
	a.BrowserPool = browser.NewPool(&a.Config.Browser, a.Logger)
	if err := a.BrowserPool.Init(); err != nil {
		return fmt.Errorf("failed to initialize browser pool: %w", err)
	}
	a.Logger.Debug().
		Int("pool_size", a.Config.Browser.PoolSize).
		Msg("Browser pool initialized")

	// 2. Page renderer and same-origin crawler
	renderer := browser.NewRenderer(a.BrowserPool, &a.Config.Browser, a.Logger)
	siteCrawler := crawler.NewCrawler(renderer, a.Config.Crawler, a.Logger)
	a.Logger.Debug().Msg("Crawler initialized")

	// 3. LLM provider factory and summarizer. A missing API key is not
	// fatal: the summarizer degrades to an error placeholder section.
	a.ProviderFactory = llm.NewProviderFactory(&a.Config.Gemini, &a.Config.Claude, &a.Config.LLM, a.Logger)
	summarizer, err := analysis.NewSummarizer(a.ProviderFactory, &a.Config.LLM, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create summarizer: %w", err)
	}
	if a.Config.Gemini.APIKey == "" && a.Config.Claude.APIKey == "" {
		a.Logger.Warn().Msg("No LLM API key configured - AI summaries will be unavailable")
		a.Logger.Info().Msg("To enable AI summaries, set SPECTO_GEMINI_API_KEY or ANTHROPIC_API_KEY")
	}

	// 4. Report rendering
	a.ReportService = reports.NewService(a.Logger)

	// 5. Result sinks. The store sink is always active; the rest are
	// opt-in via configuration.
	sinkList := []interfaces.ResultSink{
		sinks.NewStoreSink(a.StorageManager.RecordStorage(), a.Logger),
	}
	if a.Config.Sinks.Spreadsheet.Enabled {
		sinkList = append(sinkList, sinks.NewSpreadsheetSink(a.Config.Sinks.Spreadsheet, a.Logger))
	}
	if a.Config.Sinks.Webhook.Enabled {
		sinkList = append(sinkList, sinks.NewWebhookSink(a.Config.Sinks.Webhook, a.Logger))
	}
	if a.Config.Sinks.Email.Enabled {
		sinkList = append(sinkList, sinks.NewEmailSink(a.Config.Sinks.Email, a.ReportService, a.Logger))
	}
	a.SinkDispatcher = sinks.NewFanout(a.EventService, a.Logger, sinkList...)
	a.Logger.Debug().
		Int("sinks", len(sinkList)).
		Msg("Result sinks initialized")

	// 6. Analysis service (starts its worker pool)
	a.AnalysisService = analysis.NewService(
		siteCrawler,
		summarizer,
		a.StorageManager,
		a.EventService,
		a.SinkDispatcher,
		&a.Config.Analysis,
		a.Logger,
	)

	// 7. Debug-level event logging
	if err := events.SubscribeLoggerToAllEvents(a.EventService, a.Logger); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to subscribe logger to events")
	}

	// 8. Scheduler: retention sweep plus optional recurring analyses
	a.SchedulerService = scheduler.NewService(a.Logger)

	if err := scheduler.RegisterRetentionSweep(
		a.SchedulerService,
		a.StorageManager.JobStorage(),
		a.StorageManager.RecordStorage(),
		&a.Config.Analysis,
		a.Logger,
	); err != nil {
		return fmt.Errorf("failed to register retention sweep: %w", err)
	}

	if a.Config.Schedules.Enabled {
		count, err := scheduler.RegisterAnalysisSchedules(a.SchedulerService, a.AnalysisService, &a.Config.Schedules, a.Logger)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to register analysis schedules")
		} else {
			a.Logger.Debug().Int("schedules", count).Msg("Analysis schedules registered")
		}
	}

	if err := a.SchedulerService.Start(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to start scheduler service")
	} else {
		a.Logger.Debug().Msg("Scheduler service started")
	}

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.AnalysisHandler = handlers.NewAnalysisHandler(a.AnalysisService, a.Logger)
	a.ReportHandler = handlers.NewReportHandler(a.AnalysisService, a.ReportService, a.Logger)
	a.ExportHandler = handlers.NewExportHandler(&a.Config.Sinks.Spreadsheet, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(
		a.StorageManager,
		a.BrowserPool,
		a.AnalysisService,
		a.SchedulerService,
		a.Config,
		a.Logger,
	)

	// Bridge analysis lifecycle events to WebSocket clients with
	// config-driven filtering and throttling
	_ = handlers.NewEventSubscriber(a.WSHandler, a.EventService, a.Logger, &a.Config.WebSocket)
	a.Logger.Debug().
		Int("allowed_events", len(a.Config.WebSocket.AllowedEvents)).
		Int("throttle_intervals", len(a.Config.WebSocket.ThrottleIntervals)).
		Msg("EventSubscriber initialized")

	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	// Stop scheduled submissions first so the drain below is bounded
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	// Stop accepting new analyses and wait for in-flight jobs
	if a.AnalysisService != nil {
		a.AnalysisService.Wait()
		a.Logger.Info().Msg("Analysis workers drained")
	}

	// Stop log streaming
	if a.LogStreamer != nil {
		if err := a.LogStreamer.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop log streamer")
		}
	}

	// Shut down browser contexts
	if a.BrowserPool != nil {
		if err := a.BrowserPool.Shutdown(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to shut down browser pool")
		}
	}

	// Release LLM clients
	if a.ProviderFactory != nil {
		if err := a.ProviderFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM provider factory")
		}
	}

	// Close event service
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	// Close storage
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
