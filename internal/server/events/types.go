// Package events fans run notifications out to the real-time transports.
//
// The run service publishes to a Broker. The server subscribes the
// WebSocket hub and the SSE broadcaster, which deliver each event to the
// windows watching that run.
package events

import "github.com/agentstation/utc"

// EventType names a run notification.
type EventType string

const (
	// RunUpdated tells windows to re-fetch the whole run.
	RunUpdated EventType = "run.updated"

	WindowConnected    EventType = "window.connected"
	WindowDisconnected EventType = "window.disconnected"
)

// Event is a notification scoped to one run. An empty RunID reaches
// every window. Seq increases by one per delivered event.
type Event struct {
	Seq       uint64    `json:"seq"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp utc.Time  `json:"timestamp"`
	Data      any       `json:"data"`
}

// Subscriber receives published events in order. Notify must not block.
type Subscriber interface {
	Notify(Event)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(Event)

// Notify calls f(e).
func (f SubscriberFunc) Notify(e Event) { f(e) }
