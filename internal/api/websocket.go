package api

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-hearth/internal/infrastructure/config"
	"github.com/nerrad567/gray-hearth/internal/infrastructure/logging"
	"github.com/nerrad567/gray-hearth/internal/scheduler"
	"github.com/nerrad567/gray-hearth/internal/stove"
	"github.com/nerrad567/gray-hearth/internal/stovesync"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// channels lists what a client may subscribe to. The stove.* channels
// honour a subscription's stove filter; world.* channels always go to every
// subscriber.
var channels = map[string]bool{
	scheduler.ChannelStoveSynced:  true,
	scheduler.ChannelStoveRemoved: true,
	scheduler.ChannelCookEvent:    true,
	scheduler.ChannelItemsSpawned: false,
	scheduler.ChannelParticles:    false,
}

// WSMessage is a frame sent to or from a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe frames.
// Stoves, when non-empty, narrows the stove.* channels to those IDs; a later
// subscribe replaces the filter.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
	Stoves   []string `json:"stoves,omitempty"`
}

// Hub fans scheduler broadcasts out to WebSocket clients.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient is one connected WebSocket client.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	channels map[string]struct{}
	stoves   map[string]struct{} // empty means every stove
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS middleware decides which origins reach the handler.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client. Only the call that actually removes it
// closes the send channel.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// Broadcast sends payload to every client subscribed to channel whose stove
// filter admits it. Slow clients drop frames rather than stall the caller.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast", "channel", channel, "error", err)
		return
	}

	stoveID := ""
	if channels[channel] {
		stoveID = stoveOf(payload)
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.wants(channel, stoveID) {
			c.trySend(data)
			sent++
		}
	}
	if sent > 0 {
		h.logger.Debug("broadcast sent", "channel", channel, "recipients", sent)
	}
}

// stoveOf extracts the stove a stove.* payload concerns.
func stoveOf(payload any) string {
	switch p := payload.(type) {
	case stovesync.Payload:
		return p.ID
	case stove.CookEvent:
		return p.StoveID
	case map[string]string:
		return p["id"]
	}
	return ""
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects every client so their write pumps exit.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
}

// handleWebSocket upgrades the connection. Clients then send subscribe
// frames naming channels, e.g. {"type":"subscribe","payload":{"channels":["stove.synced"]}}.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	hub := s.Hub()
	c := &WSClient{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		channels: make(map[string]struct{}),
		stoves:   make(map[string]struct{}),
	}
	hub.Register(c)

	ka := newKeepalive(s.wsCfg)
	go c.writePump(ka)
	go c.readPump(ka, int64(s.wsCfg.MaxMessageSize))
}

// keepalive holds the ping cadence and how long a silent peer survives.
type keepalive struct {
	ping time.Duration
	wait time.Duration
}

func newKeepalive(cfg config.WebSocketConfig) keepalive {
	return keepalive{
		ping: time.Duration(cfg.PingInterval) * time.Second,
		wait: time.Duration(cfg.PongTimeout) * time.Second,
	}
}

func (k keepalive) readDeadline() time.Time  { return time.Now().Add(k.ping + k.wait) }
func (k keepalive) writeDeadline() time.Time { return time.Now().Add(k.wait) }

// readPump handles inbound frames until the connection fails.
func (c *WSClient) readPump(ka keepalive, limit int64) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(limit)
	//nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetReadDeadline(ka.readDeadline())
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(ka.readDeadline())
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Application frames count as liveness too.
		//nolint:errcheck // a failed deadline surfaces as a read error
		c.conn.SetReadDeadline(ka.readDeadline())
		c.handleMessage(data)
	}
}

// writePump drains the send channel and pings on the keepalive cadence.
func (c *WSClient) writePump(ka keepalive) {
	ticker := time.NewTicker(ka.ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case msg, ok := <-c.send:
			if !ok {
				//nolint:errcheck // connection is going away regardless
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			kind, data = websocket.TextMessage, msg
		case <-ticker.C:
			kind = websocket.PingMessage
		}

		//nolint:errcheck // write error caught below
		c.conn.SetWriteDeadline(ka.writeDeadline())
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.handleSubscription(msg)
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// handleSubscription applies a subscribe or unsubscribe frame. Unknown
// channels reject the whole frame.
func (c *WSClient) handleSubscription(msg WSMessage) {
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		c.sendError(msg.ID, "invalid payload")
		return
	}
	var sub WSSubscribePayload
	if err := json.Unmarshal(raw, &sub); err != nil {
		c.sendError(msg.ID, "invalid "+msg.Type+" payload")
		return
	}
	for _, ch := range sub.Channels {
		if _, ok := channels[ch]; !ok {
			c.sendError(msg.ID, "unknown channel "+ch+"; valid: "+knownChannels())
			return
		}
	}

	c.mu.Lock()
	if msg.Type == WSTypeSubscribe {
		for _, ch := range sub.Channels {
			c.channels[ch] = struct{}{}
		}
		if len(sub.Stoves) > 0 {
			c.stoves = make(map[string]struct{}, len(sub.Stoves))
			for _, id := range sub.Stoves {
				c.stoves[id] = struct{}{}
			}
		}
	} else {
		for _, ch := range sub.Channels {
			delete(c.channels, ch)
		}
	}
	c.mu.Unlock()

	key := "subscribed"
	if msg.Type == WSTypeUnsubscribe {
		key = "unsubscribed"
	}
	c.hub.logger.Debug("websocket subscription changed", key, sub.Channels, "stoves", sub.Stoves)
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{key: sub.Channels})
}

func knownChannels() string {
	return strings.Join(slices.Sorted(maps.Keys(channels)), ", ")
}

// wants reports whether the client should receive a frame on channel about
// stoveID. An empty stoveID bypasses the stove filter.
func (c *WSClient) wants(channel, stoveID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.channels[channel]; !ok {
		return false
	}
	if stoveID == "" || len(c.stoves) == 0 {
		return true
	}
	_, ok := c.stoves[stoveID]
	return ok
}

// trySend queues data without blocking. A full buffer drops the frame; a
// channel closed by a concurrent disconnect is absorbed.
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // send on a channel closed by Unregister
	}()

	select {
	case c.send <- data:
	default:
	}
}

func (c *WSClient) sendResponse(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
