// Package websocket carries the cross-window sync protocol and run
// notifications over WebSocket connections.
//
// Every connection belongs to one run. Window messages (READY,
// NAVIGATE_PDF, NAVIGATE_TO_PAGE) are dispatched to that run's relay, which
// addresses other connections of the same run. Hub broadcasts deliver run
// events to the connections of the event's run.
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/logging"
	"github.com/agentstation/fillmap/pkg/windowsync"
)

// Message is a run notification frame.
type Message struct {
	Type      string   `json:"type"`
	RunID     string   `json:"run_id,omitempty"`
	Timestamp utc.Time `json:"timestamp"`
	Data      any      `json:"data"`
}

// Hub maintains active connections and one relay per run.
type Hub struct {
	clients   map[*Client]bool
	relays    map[string]*windowsync.Relay
	broadcast chan Message
	register  chan *Client
	mu        sync.RWMutex
	logger    *zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		clients:   make(map[*Client]bool),
		relays:    make(map[string]*windowsync.Relay),
		broadcast: make(chan Message, constants.ChannelBufferSize),
		register:  make(chan *Client, 10),
		logger:    logging.OrNop(logger),
	}
}

// Run starts the hub's main loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.close()
			}
			h.clients = make(map[*Client]bool)
			h.relays = make(map[string]*windowsync.Relay)
			h.mu.Unlock()
			h.logger.Info().Msg("WebSocket hub shut down")
			return

		case client := <-h.register:
			if client.Closed() {
				continue
			}
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().
				Str("client_id", client.id).
				Str("run_id", client.runID).
				Int("total_clients", n).
				Msg("WebSocket client connected")

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// Register adds a client.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client and closes its send queue. It does not
// depend on Run, so pumps can exit after shutdown.
func (h *Hub) Unregister(client *Client) {
	h.remove(client)
}

// Broadcast queues a notification for the clients of message.RunID, or
// for every client when RunID is empty.
func (h *Hub) Broadcast(message Message) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn().Msg("Broadcast channel full, message dropped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Relay returns the relay of runID, creating it on first use.
func (h *Hub) Relay(runID string) *windowsync.Relay {
	h.mu.Lock()
	defer h.mu.Unlock()
	relay, ok := h.relays[runID]
	if !ok {
		l := h.logger.With().Str("run_id", runID).Logger()
		relay = windowsync.NewRelay(windowsync.WithRelayLogger(&l))
		h.relays[runID] = relay
	}
	return relay
}

func (h *Hub) remove(client *Client) {
	client.close()

	h.mu.Lock()
	_, registered := h.clients[client]
	delete(h.clients, client)
	remaining := 0
	for c := range h.clients {
		if c.runID == client.runID {
			remaining++
		}
	}
	relay := h.relays[client.runID]
	if remaining == 0 {
		delete(h.relays, client.runID)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if relay != nil {
		if role, ok := client.Role(); ok {
			relay.Unregister(role, client)
		}
	}
	if registered {
		h.logger.Info().
			Str("client_id", client.id).
			Str("run_id", client.runID).
			Int("total_clients", n).
			Msg("WebSocket client disconnected")
	}
}

func (h *Hub) deliver(message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().Err(err).Str("type", message.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if message.RunID != "" && client.runID != message.RunID {
			continue
		}
		if !client.enqueue(data) {
			// Client buffer full, disconnect
			client.close()
			delete(h.clients, client)
		}
	}
}
