// Package server publishes reports over HTTP and WebSocket while the
// profiler runs.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"pgstatprof/pkg/report"

	"github.com/gorilla/schema"
	"github.com/gorilla/websocket"
)

// clientBuffer is how many reports may queue for a slow client before
// newer ones are dropped for it.
const clientBuffer = 16

// WSMessage is the envelope for every WebSocket message.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ReportQuery holds the query parameters of GET /api/report.
type ReportQuery struct {
	Top int `schema:"top"`
}

// Client is a WebSocket subscriber.
type Client struct {
	conn *websocket.Conn
	send chan report.Report
}

// Hub keeps the latest report and fans reports out to WebSocket clients.
// It implements report.Reporter.
type Hub struct {
	mu      sync.Mutex
	latest  *report.Report
	clients map[*Client]bool

	upgrader websocket.Upgrader
	decoder  *schema.Decoder
	metrics  http.Handler
}

// NewHub creates a hub. metrics, if non-nil, is served at /metrics.
func NewHub(metrics http.Handler) *Hub {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &Hub{
		clients: make(map[*Client]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		decoder: decoder,
		metrics: metrics,
	}
}

// Emit stores r as the latest report and queues it for every client. It
// never blocks on a client.
func (h *Hub) Emit(r report.Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = &r
	for c := range h.clients {
		select {
		case c.send <- r:
		default:
			slog.Warn("websocket client too slow, dropping report", "remote", c.conn.RemoteAddr().String())
		}
	}
	return nil
}

// Latest returns the most recent report, if any.
func (h *Hub) Latest() (report.Report, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return report.Report{}, false
	}
	return *h.latest, true
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// register adds c and queues the latest report for it, so the client sees
// reports in emission order.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.latest != nil {
		c.send <- *h.latest
	}
	h.clients[c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// writeLoop sends queued reports until the channel closes or a write fails.
func (c *Client) writeLoop() {
	defer c.conn.Close()
	for r := range c.send {
		data, err := json.Marshal(r)
		if err != nil {
			slog.Error("failed to marshal report", "error", err)
			continue
		}
		if err := c.conn.WriteJSON(WSMessage{Type: "report", Data: data}); err != nil {
			slog.Debug("websocket write failed", "remote", c.conn.RemoteAddr().String(), "error", err)
			return
		}
	}
}
