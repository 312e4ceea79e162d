package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/StrathCole/oracle-watch/pkg/events"
	"github.com/StrathCole/oracle-watch/pkg/logging"
	"github.com/StrathCole/oracle-watch/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	clientSendSize = 256
)

// WebSocketServer streams bus events to connected clients as JSON envelopes.
type WebSocketServer struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*WebSocketClient]bool
	closed  bool
}

// WebSocketClient represents a connected WebSocket client.
type WebSocketClient struct {
	conn          *websocket.Conn
	send          chan []byte
	server        *WebSocketServer
	mu            sync.RWMutex
	subscribedAll bool
	kinds         map[events.Kind]bool
}

// WebSocketMessage represents a client message.
type WebSocketMessage struct {
	Type  string   `json:"type"`  // "subscribe", "unsubscribe", "ping"
	Kinds []string `json:"kinds"` // event kinds, empty or "*" for all
}

type controlMessage struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
}

// NewWebSocketServer creates a new WebSocket event feed. allowedOrigins empty or "*" accepts any origin.
func NewWebSocketServer(allowedOrigins []string, logger *logging.Logger) *WebSocketServer {
	s := &WebSocketServer{
		logger:  logger,
		clients: make(map[*WebSocketClient]bool),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return s
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Run broadcasts events from in until the channel closes or ctx is done, then disconnects every client.
func (s *WebSocketServer) Run(ctx context.Context, in <-chan events.Event) error {
	defer s.closeAll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-in:
			if !ok {
				return nil
			}
			s.Broadcast(ev)
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *WebSocketServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// HandleWebSocket upgrades the request and registers the client.
func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.RecordHTTPRequest("/v1/events/ws", "400", time.Since(start))
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}
	metrics.RecordHTTPRequest("/v1/events/ws", "101", time.Since(start))

	client := &WebSocketClient{
		conn:          conn,
		send:          make(chan []byte, clientSendSize),
		server:        s,
		subscribedAll: true,
		kinds:         make(map[events.Kind]bool),
	}

	if !s.registerClient(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	s.logger.Info("New WebSocket client connected", "remote", conn.RemoteAddr().String())
}

func (s *WebSocketServer) registerClient(client *WebSocketClient) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[client] = true
	metrics.WebsocketClients.Set(float64(len(s.clients)))
	return true
}

func (s *WebSocketServer) unregisterClient(client *WebSocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
		metrics.WebsocketClients.Set(float64(len(s.clients)))
	}
}

func (s *WebSocketServer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for client := range s.clients {
		delete(s.clients, client)
		close(client.send)
	}
	metrics.WebsocketClients.Set(0)
}

// Broadcast sends ev to every client subscribed to its kind. Slow clients miss the event.
func (s *WebSocketServer) Broadcast(ev events.Event) {
	data, err := events.NewEnvelope(ev).Marshal()
	if err != nil {
		s.logger.Error("Failed to marshal event", "kind", string(ev.Kind()), "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for client := range s.clients {
		if !client.shouldReceive(ev.Kind()) {
			continue
		}
		select {
		case client.send <- data:
		default:
			s.logger.Warn("Client send buffer full, skipping event", "kind", string(ev.Kind()))
		}
	}
}

// writePump sends messages to the WebSocket connection.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.server.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads messages from the WebSocket connection.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.server.unregisterClient(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// handleMessage processes client messages.
func (c *WebSocketClient) handleMessage(data []byte) {
	var msg WebSocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.server.logger.Warn("Invalid client message", "error", err)
		c.reply(controlMessage{Type: "error", Error: "invalid message"})
		return
	}

	switch msg.Type {
	case "subscribe":
		c.subscribe(msg.Kinds)
	case "unsubscribe":
		c.unsubscribe(msg.Kinds)
	case "ping":
		c.reply(controlMessage{Type: "pong"})
	default:
		c.server.logger.Warn("Unknown message type", "type", msg.Type)
		c.reply(controlMessage{Type: "error", Error: "unknown message type"})
	}
}

func isWildcard(names []string) bool {
	return len(names) == 0 || (len(names) == 1 && names[0] == "*")
}

// subscribe adds kinds to the client filter.
func (c *WebSocketClient) subscribe(names []string) {
	if isWildcard(names) {
		c.mu.Lock()
		c.subscribedAll = true
		c.kinds = make(map[events.Kind]bool)
		c.mu.Unlock()
		return
	}

	kinds, err := events.ParseKinds(names)
	if err != nil {
		c.reply(controlMessage{Type: "error", Error: err.Error()})
		return
	}

	c.mu.Lock()
	c.subscribedAll = false
	for _, k := range kinds {
		c.kinds[k] = true
	}
	c.mu.Unlock()

	c.server.logger.Debug("Client subscribed", "kinds", names)
}

// unsubscribe removes kinds from the client filter.
func (c *WebSocketClient) unsubscribe(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isWildcard(names) {
		c.subscribedAll = false
		c.kinds = make(map[events.Kind]bool)
		return
	}
	if c.subscribedAll {
		c.subscribedAll = false
		for _, k := range events.AllKinds {
			c.kinds[k] = true
		}
	}
	for _, name := range names {
		delete(c.kinds, events.Kind(name))
	}
}

func (c *WebSocketClient) shouldReceive(kind events.Kind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscribedAll || c.kinds[kind]
}

// reply queues a control message. The server lock guards against a concurrent close of send.
func (c *WebSocketClient) reply(msg controlMessage) {
	data, _ := json.Marshal(msg)
	c.server.mu.RLock()
	defer c.server.mu.RUnlock()
	if !c.server.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
