// Package sse streams run notifications to review windows as
// Server-Sent Events. Each stream follows one run; events without a run id
// go to every stream.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/logging"
)

// Event is one SSE frame. Data is JSON encoded onto the data line.
type Event struct {
	Event string
	ID    string
	RunID string
	Data  any
}

type stream struct {
	runID  string
	events chan Event
	done   chan struct{}
}

// Broadcaster tracks open streams and copies events into them.
type Broadcaster struct {
	mu       sync.RWMutex
	streams  map[*stream]struct{}
	shutdown bool

	heartbeat time.Duration
	logger    *zerolog.Logger
}

// NewBroadcaster returns a Broadcaster sending keep-alive comments every
// constants.SSEHeartbeat.
func NewBroadcaster(logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		streams:   make(map[*stream]struct{}),
		heartbeat: constants.SSEHeartbeat,
		logger:    logging.OrNop(logger),
	}
}

// Run blocks until ctx is cancelled, then ends every open stream and
// refuses new ones.
func (b *Broadcaster) Run(ctx context.Context) {
	<-ctx.Done()

	b.mu.Lock()
	b.shutdown = true
	n := len(b.streams)
	for s := range b.streams {
		close(s.done)
		delete(b.streams, s)
	}
	b.mu.Unlock()

	b.logger.Info().Int("streams", n).Msg("SSE broadcaster shut down")
}

// Broadcast hands event to the streams of its run. A stream whose buffer
// is full misses the event.
func (b *Broadcaster) Broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.streams {
		if event.RunID != "" && s.runID != event.RunID {
			continue
		}
		select {
		case s.events <- event:
		default:
			b.logger.Warn().Str("run_id", s.runID).Str("event", event.Event).Msg("SSE stream behind, event skipped")
		}
	}
}

// ClientCount returns the number of open streams.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.streams)
}

func (b *Broadcaster) open(runID string) (*stream, bool) {
	s := &stream{
		runID:  runID,
		events: make(chan Event, constants.ChannelBufferSize),
		done:   make(chan struct{}),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shutdown {
		return nil, false
	}
	b.streams[s] = struct{}{}
	b.logger.Debug().Str("run_id", runID).Int("streams", len(b.streams)).Msg("SSE stream opened")
	return s, true
}

func (b *Broadcaster) release(s *stream) {
	b.mu.Lock()
	delete(b.streams, s)
	b.mu.Unlock()
	b.logger.Debug().Str("run_id", s.runID).Msg("SSE stream closed")
}

// Serve holds the request open and streams the events of runID until the
// client leaves or the broadcaster shuts down. The first frame is a
// "connected" event.
func (b *Broadcaster) Serve(w http.ResponseWriter, r *http.Request, runID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	s, ok := b.open(runID)
	if !ok {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer b.release(s)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	send := func(e Event) {
		if err := writeFrame(w, e); err != nil {
			b.logger.Error().Err(err).Str("event", e.Event).Msg("Failed to encode SSE event")
			return
		}
		flusher.Flush()
	}
	send(Event{Event: "connected", Data: map[string]any{"run_id": runID, "timestamp": utc.Now()}})

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case e := <-s.events:
			send(e)
		case <-ticker.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-s.done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// ServeHTTP streams the events of every run.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.Serve(w, r, "")
}

func writeFrame(w io.Writer, e Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	var frame []byte
	if e.Event != "" {
		frame = fmt.Appendf(frame, "event: %s\n", e.Event)
	}
	if e.ID != "" {
		frame = fmt.Appendf(frame, "id: %s\n", e.ID)
	}
	frame = fmt.Appendf(frame, "data: %s\n\n", data)
	_, err = w.Write(frame)
	return err
}
