package handlers

import (
	"testing"
	"time"

	plog "github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/specto/internal/common"
)

func newTestStreamer(t *testing.T, handler *WebSocketHandler, wsConfig *common.WebSocketConfig) *LogStreamer {
	t.Helper()

	streamer := NewLogStreamer(handler, arbor.NewLogger(), wsConfig)
	require.NoError(t, streamer.Start())
	t.Cleanup(func() { _ = streamer.Stop() })
	return streamer
}

func TestLogStreamerBroadcastsEntries(t *testing.T) {
	handler := NewWebSocketHandler(arbor.NewLogger())
	conn := dialTestClient(t, handler)
	readMessage(t, conn)

	streamer := newTestStreamer(t, handler, &common.WebSocketConfig{MinLevel: "info"})

	streamer.GetChannel() <- []arbormodels.LogEvent{
		{Timestamp: time.Now(), Level: plog.WarnLevel, Message: "analysis queue backlog growing"},
	}

	msg := readMessage(t, conn)
	require.Equal(t, "log", msg.Type)

	payload, ok := msg.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "warn", payload["level"])
	assert.Equal(t, "analysis queue backlog growing", payload["message"])
	assert.NotEmpty(t, payload["timestamp"])
}

func TestLogStreamerFiltersLevelAndPatterns(t *testing.T) {
	handler := NewWebSocketHandler(arbor.NewLogger())
	conn := dialTestClient(t, handler)
	readMessage(t, conn)

	streamer := newTestStreamer(t, handler, &common.WebSocketConfig{MinLevel: "info"})

	// Both entries should be dropped: one below the level threshold, one
	// matching a default exclude pattern.
	streamer.GetChannel() <- []arbormodels.LogEvent{
		{Timestamp: time.Now(), Level: plog.DebugLevel, Message: "resolving selectors"},
		{Timestamp: time.Now(), Level: plog.InfoLevel, Message: "HTTP request"},
	}
	streamer.GetChannel() <- []arbormodels.LogEvent{
		{Timestamp: time.Now(), Level: plog.ErrorLevel, Message: "render failed"},
	}

	// The first message to arrive must be the error entry, proving the
	// earlier batch was filtered out entirely.
	msg := readMessage(t, conn)
	require.Equal(t, "log", msg.Type)

	payload, ok := msg.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "error", payload["level"])
	assert.Equal(t, "render failed", payload["message"])
}

func TestLogStreamerStopIsIdempotent(t *testing.T) {
	handler := NewWebSocketHandler(arbor.NewLogger())
	streamer := NewLogStreamer(handler, arbor.NewLogger(), nil)

	require.NoError(t, streamer.Start())
	require.NoError(t, streamer.Stop())
	require.NoError(t, streamer.Stop())
}
