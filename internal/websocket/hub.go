// Package websocket pushes routing updates to the terminal UI so screens
// re-render on state changes without polling.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lemonpos/internal/flow"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	pongWait       = 60 * time.Second
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The hub is bound to localhost; the UI is the only origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RouteUpdate is the message pushed on every route change.
type RouteUpdate struct {
	Type  string     `json:"type"`
	Route flow.Route `json:"route"`
}

// Hub fans route changes out to connected UI clients.
type Hub struct {
	gate   *flow.Gate
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub constructs a Hub over the routing gate.
func NewHub(gate *flow.Gate, logger *slog.Logger) *Hub {
	return &Hub{
		gate:    gate,
		logger:  logger.With(slog.String("component", "websocket")),
		clients: make(map[*client]bool),
	}
}

// Run subscribes to the gate and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	routes, cancel := h.gate.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case route, ok := <-routes:
			if !ok {
				return
			}
			h.broadcast(RouteUpdate{Type: "route", Route: route})
		}
	}
}

// ServeHTTP upgrades the connection and registers the client. The current
// route is sent immediately so a freshly connected UI renders the right
// screen.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	if payload, err := json.Marshal(RouteUpdate{Type: "route", Route: h.gate.Route()}); err == nil {
		c.send <- payload
	}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) broadcast(update RouteUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		h.logger.Error("failed to marshal route update", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Slow consumer: drop the connection rather than block the hub.
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
