package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/services/analysis"
	"github.com/ternarybob/specto/internal/services/browser"
	"github.com/ternarybob/specto/internal/services/crawler"
	"github.com/ternarybob/specto/internal/services/events"
	"github.com/ternarybob/specto/internal/services/llm"
	"github.com/ternarybob/specto/internal/services/reports"
	"github.com/ternarybob/specto/internal/services/sinks"
	"github.com/ternarybob/specto/internal/storage"
)

func main() {
	// Load configuration
	configPath := os.Getenv("SPECTO_CONFIG")
	if configPath == "" {
		if _, err := os.Stat("specto.toml"); err == nil {
			configPath = "specto.toml"
		}
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize minimal logger for MCP server (console only, no file output).
	// Warn level keeps MCP stdio clean.
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	// Initialize storage
	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer storageManager.Close()

	// Initialize the analysis pipeline: browser pool, crawler, LLM
	// summarizer and sinks, same wiring as the HTTP server
	pool := browser.NewPool(&config.Browser, logger)
	if err := pool.Init(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize browser pool")
	}
	defer pool.Shutdown()

	renderer := browser.NewRenderer(pool, &config.Browser, logger)
	siteCrawler := crawler.NewCrawler(renderer, config.Crawler, logger)

	providerFactory := llm.NewProviderFactory(&config.Gemini, &config.Claude, &config.LLM, logger)
	summarizer, err := analysis.NewSummarizer(providerFactory, &config.LLM, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create summarizer")
	}

	eventService := events.NewService(logger)
	defer eventService.Close()

	reportService := reports.NewService(logger)

	sinkList := []interfaces.ResultSink{
		sinks.NewStoreSink(storageManager.RecordStorage(), logger),
	}
	if config.Sinks.Spreadsheet.Enabled {
		sinkList = append(sinkList, sinks.NewSpreadsheetSink(config.Sinks.Spreadsheet, logger))
	}
	if config.Sinks.Webhook.Enabled {
		sinkList = append(sinkList, sinks.NewWebhookSink(config.Sinks.Webhook, logger))
	}
	if config.Sinks.Email.Enabled {
		sinkList = append(sinkList, sinks.NewEmailSink(config.Sinks.Email, reportService, logger))
	}
	sinkDispatcher := sinks.NewFanout(eventService, logger, sinkList...)

	analysisService := analysis.NewService(
		siteCrawler,
		summarizer,
		storageManager,
		eventService,
		sinkDispatcher,
		&config.Analysis,
		logger,
	)
	defer analysisService.Wait()

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"specto",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	// Register analysis tools
	mcpServer.AddTool(createAnalyzeWebsiteTool(), handleAnalyzeWebsite(analysisService, logger))
	mcpServer.AddTool(createGetAnalysisTool(), handleGetAnalysis(analysisService, reportService, logger))
	mcpServer.AddTool(createListAnalysesTool(), handleListAnalyses(analysisService, logger))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
