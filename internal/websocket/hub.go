// Package websocket broadcasts ingest progress to the browser form.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Message type constants
const (
	TypeConnection = "connection"
	TypeProgress   = "progress"
)

// ProgressMessage is the wire format for per-file ingest progress updates.
type ProgressMessage struct {
	Type      string  `json:"type"`
	Fraction  float64 `json:"fraction"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	quit    chan struct{}
	running bool
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
	}
}

// Run processes register, unregister and broadcast events until Stop.
func (h *Hub) Run() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.sendConnectionAck(client)
			h.logger.Info("client connected",
				slog.String("client_id", client.id),
				slog.Int("clients", h.ClientCount()))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected",
				slog.String("client_id", client.id),
				slog.Int("clients", h.ClientCount()))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client cannot keep up; drop it.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.running = false
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts down the hub and disconnects all clients
func (h *Hub) Stop() {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if running {
		close(h.quit)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sendConnectionAck greets a newly registered client so the form can show
// the live-progress indicator.
func (h *Hub) sendConnectionAck(client *Client) {
	payload, err := json.Marshal(map[string]string{
		"type":      TypeConnection,
		"status":    "connected",
		"timestamp": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
	}
}

// BroadcastProgress sends a per-file progress update to all clients.
// Delivery is best effort; a full broadcast queue drops the update rather
// than blocking the ingest path.
func (h *Hub) BroadcastProgress(fraction float64, message string) {
	payload, err := json.Marshal(ProgressMessage{
		Type:      TypeProgress,
		Fraction:  fraction,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		h.logger.Error("failed to marshal progress message", slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("broadcast queue full, dropping progress update")
	}
}
