package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/windowsync"
)

// Client is one window's connection. It is the windowsync.Handle the run's
// relay uses to reach that window.
type Client struct {
	id    string
	runID string
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte

	mu     sync.RWMutex
	closed bool
	role   windowsync.Role
}

// NewClient creates a new WebSocket client for runID.
func NewClient(id, runID string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:    id,
		runID: runID,
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, constants.ChannelBufferSize),
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// RunID returns the run the connection watches.
func (c *Client) RunID() string { return c.runID }

// Role returns the role announced with READY.
func (c *Client) Role() (windowsync.Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role, c.role != ""
}

// Send implements windowsync.Handle.
func (c *Client) Send(msg windowsync.Message) bool {
	data, err := windowsync.Encode(msg)
	if err != nil {
		return false
	}
	return c.enqueue(data)
}

// Closed implements windowsync.Handle.
func (c *Client) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) enqueue(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump decodes window messages and dispatches them to the run's relay.
// Invalid messages are dropped.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(constants.MaxWebSocketMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPongWait))
		return nil
	})

	logger := c.hub.logger.With().Str("client_id", c.id).Str("run_id", c.runID).Logger()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error().Err(err).Msg("WebSocket read error")
			}
			return
		}

		msg, err := windowsync.Decode(data)
		if err != nil {
			logger.Debug().Err(err).Msg("Dropping invalid window message")
			continue
		}
		if msg.Type == windowsync.TypeReady {
			c.mu.Lock()
			c.role = msg.Role
			c.mu.Unlock()
		}
		if err := c.hub.Relay(c.runID).Dispatch(ctx, c, msg); err != nil {
			logger.Debug().Err(err).Msg("Relay rejected window message")
		}
	}
}

// WritePump writes queued frames and pings to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(constants.WebSocketPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
