package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	plog "github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/levels"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/specto/internal/common"
)

// Buffer for log batches between arbor and the streaming goroutine
const logStreamBufferSize = 10

// defaultExcludePatterns drops chatter that would feed back into the
// stream it came from
var defaultExcludePatterns = []string{
	"WebSocket client connected",
	"WebSocket client disconnected",
	"HTTP request",
	"HTTP response",
	"Publishing event",
}

// LogStreamer consumes arbor log batches and broadcasts them to
// WebSocket clients. It attaches to the logger via SetChannel so every
// log line the server emits is eligible for streaming, subject to the
// configured level and pattern filters.
type LogStreamer struct {
	handler         *WebSocketHandler
	logger          arbor.ILogger
	channel         chan []arbormodels.LogEvent
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	minLevel        levels.LogLevel
	excludePatterns []string
}

// NewLogStreamer creates a log streamer for the given WebSocket handler
func NewLogStreamer(handler *WebSocketHandler, logger arbor.ILogger, wsConfig *common.WebSocketConfig) *LogStreamer {
	minLevel := levels.InfoLevel
	excludePatterns := defaultExcludePatterns

	if wsConfig != nil {
		minLevel = parseLogLevel(wsConfig.MinLevel)
		if len(wsConfig.ExcludePatterns) > 0 {
			excludePatterns = wsConfig.ExcludePatterns
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &LogStreamer{
		handler:         handler,
		logger:          logger,
		channel:         make(chan []arbormodels.LogEvent, logStreamBufferSize),
		ctx:             ctx,
		cancel:          cancel,
		minLevel:        minLevel,
		excludePatterns: excludePatterns,
	}
}

// GetChannel returns the channel for arbor to send log batches to
func (s *LogStreamer) GetChannel() chan []arbormodels.LogEvent {
	return s.channel
}

// Start launches the streaming goroutine
func (s *LogStreamer) Start() error {
	s.wg.Add(1)
	go s.consume()
	return nil
}

// Stop gracefully shuts down the streamer
func (s *LogStreamer) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return nil
}

// consume processes log batches from arbor and broadcasts them
func (s *LogStreamer) consume() {
	defer s.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Log streamer panic recovered")
		}
	}()

	for {
		select {
		case batch, ok := <-s.channel:
			if !ok {
				return
			}
			for _, entry := range batch {
				s.broadcast(entry)
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// broadcast applies level and pattern filters, then fans the entry out
// to connected clients
func (s *LogStreamer) broadcast(entry arbormodels.LogEvent) {
	level := plogToArborLevel(entry.Level)
	if level < s.minLevel {
		return
	}

	for _, pattern := range s.excludePatterns {
		if strings.Contains(entry.Message, pattern) {
			return
		}
	}

	s.handler.BroadcastLog(LogEntry{
		Timestamp: entry.Timestamp.Format("15:04:05"),
		Level:     mapLevel(level),
		Message:   entry.Message,
	})
}

// plogToArborLevel converts phuslu/log.Level to arbor levels.LogLevel
func plogToArborLevel(level plog.Level) levels.LogLevel {
	switch level {
	case plog.ErrorLevel:
		return levels.ErrorLevel
	case plog.WarnLevel:
		return levels.WarnLevel
	case plog.InfoLevel:
		return levels.InfoLevel
	case plog.DebugLevel:
		return levels.DebugLevel
	default:
		return levels.InfoLevel
	}
}

// parseLogLevel converts string log level to arbor levels.LogLevel
func parseLogLevel(level string) levels.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return levels.ErrorLevel
	case "warn", "warning":
		return levels.WarnLevel
	case "info":
		return levels.InfoLevel
	case "debug":
		return levels.DebugLevel
	default:
		return levels.InfoLevel
	}
}

// mapLevel maps arbor log levels to client-facing strings
func mapLevel(level levels.LogLevel) string {
	switch level {
	case levels.ErrorLevel:
		return "error"
	case levels.WarnLevel:
		return "warn"
	case levels.InfoLevel:
		return "info"
	case levels.DebugLevel:
		return "debug"
	default:
		return "info"
	}
}
