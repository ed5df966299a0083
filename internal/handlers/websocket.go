// -----------------------------------------------------------------------
// WebSocket Handler - streams analysis events and server logs to clients
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the envelope for every message sent to clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// LogEntry is a server log line formatted for client display
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// AnalysisStatusUpdate announces a lifecycle transition
type AnalysisStatusUpdate struct {
	AnalysisID string    `json:"analysisId"`
	URL        string    `json:"url"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"durationMs,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// AnalysisProgressUpdate reports pipeline progress for one analysis
type AnalysisProgressUpdate struct {
	AnalysisID string    `json:"analysisId"`
	URL        string    `json:"url"`
	Percent    int       `json:"percent"`
	Stage      string    `json:"stage"`
	Timestamp  time.Time `json:"timestamp"`
}

// PageCrawledUpdate reports one crawled page
type PageCrawledUpdate struct {
	AnalysisID string    `json:"analysisId"`
	URL        string    `json:"url"`
	Depth      int       `json:"depth"`
	Timestamp  time.Time `json:"timestamp"`
}

// SinkUpdate reports a sink delivery outcome
type SinkUpdate struct {
	AnalysisID string    `json:"analysisId"`
	URL        string    `json:"url"`
	Sink       string    `json:"sink"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// WebSocketHandler fans messages out to connected clients. Writes are
// serialized per connection; gorilla conns do not allow concurrent
// writers.
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	serverInstanceID string
}

// NewWebSocketHandler creates the handler. The server instance id lets
// clients detect a restart and reset their state.
func NewWebSocketHandler(logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		serverInstanceID: uuid.New().String(),
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized")
	return h
}

// HandleWebSocket upgrades the connection and keeps it registered until
// the client goes away
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Msgf("WebSocket client connected (total: %d)", total)

	h.sendToConn(conn, WSMessage{
		Type: "connected",
		Payload: map[string]string{
			"serverInstanceId": h.serverInstanceID,
		},
	})

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", remaining)
	}()

	// Read loop only detects disconnects; clients do not send commands
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastLog sends a log line to all connected clients
func (h *WebSocketHandler) BroadcastLog(entry LogEntry) {
	h.Broadcast(WSMessage{Type: "log", Payload: entry})
}

// BroadcastStatus sends a lifecycle transition to all connected clients
func (h *WebSocketHandler) BroadcastStatus(update AnalysisStatusUpdate) {
	h.Broadcast(WSMessage{Type: "analysis_status", Payload: update})
}

// BroadcastProgress sends a progress update to all connected clients
func (h *WebSocketHandler) BroadcastProgress(update AnalysisProgressUpdate) {
	h.Broadcast(WSMessage{Type: "analysis_progress", Payload: update})
}

// BroadcastPageCrawled sends a crawled-page notice to all connected clients
func (h *WebSocketHandler) BroadcastPageCrawled(update PageCrawledUpdate) {
	h.Broadcast(WSMessage{Type: "page_crawled", Payload: update})
}

// BroadcastSink sends a sink delivery outcome to all connected clients
func (h *WebSocketHandler) BroadcastSink(update SinkUpdate) {
	h.Broadcast(WSMessage{Type: "sink_status", Payload: update})
}

// Broadcast marshals the message once and writes it to every client
func (h *WebSocketHandler) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		mutex := mutexes[i]
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send message to client")
		}
	}
}

func (h *WebSocketHandler) sendToConn(conn *websocket.Conn, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	mutex, ok := h.clientMutex[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	mutex.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	mutex.Unlock()

	if err != nil {
		h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send message to client")
	}
}
