// Package server provides the HTTP server for the fillmap API: the REST
// surface over the run service, the WebSocket window relay and the SSE
// reload stream.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/internal/runs"
	"github.com/agentstation/fillmap/internal/server/events"
	"github.com/agentstation/fillmap/internal/server/sse"
	ws "github.com/agentstation/fillmap/internal/server/websocket"
	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/logging"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	runs           *runs.Service
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	done           chan struct{}
	startTime      time.Time
}

// New creates a new server instance over the run service.
func New(service *runs.Service, cfg Config, logger *zerolog.Logger) *Server {
	logger = logging.OrNop(logger)
	logger.Debug().Msg("Creating new server instance")

	if cfg.PathPrefix == "" {
		cfg.PathPrefix = DefaultConfig().PathPrefix
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)

	broker.Subscribe(events.SubscriberFunc(func(e events.Event) {
		wsHub.Broadcast(ws.Message{Type: string(e.Type), RunID: e.RunID, Timestamp: e.Timestamp, Data: e.Data})
	}))
	broker.Subscribe(events.SubscriberFunc(func(e events.Event) {
		sseBroadcaster.Broadcast(sse.Event{Event: string(e.Type), ID: strconv.FormatUint(e.Seq, 10), RunID: e.RunID, Data: e.Data})
	}))

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		runs:           service,
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin validation is a no-op: every origin may open a window socket.
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		startTime: time.Now(),
	}

	s.connectHooks()

	logger.Debug().Msg("Server instance created successfully")
	return s
}

// connectHooks publishes run.updated for every committed run mutation.
func (s *Server) connectHooks() {
	s.runs.OnUpdated(func(_ context.Context, update runs.Update) {
		s.broker.Publish(events.RunUpdated, update.RunID, update)
		s.logger.Debug().
			Str("run_id", update.RunID).
			Str("reason", string(update.Reason)).
			Msg("Run updated event published")
	})
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster).
func (s *Server) Start() {
	s.logger.Debug().Msg("Starting background services")

	services := []func(context.Context){
		s.broker.Run,
		s.wsHub.Run,
		s.sseBroadcaster.Run,
	}
	remaining := make(chan struct{}, len(services))
	for _, run := range services {
		go func() {
			run(s.ctx)
			remaining <- struct{}{}
		}()
	}
	go func() {
		for range services {
			<-remaining
		}
		close(s.done)
	}()
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// HTTPServer returns an http.Server for the configured address and timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// Shutdown stops background services and waits for them until ctx expires.
// Start must have been called.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")
	s.cancel()

	timeout := time.NewTimer(constants.ShutdownTimeout)
	defer timeout.Stop()

	select {
	case <-s.done:
		s.logger.Info().Msg("Background services shut down successfully")
		return nil
	case <-timeout.C:
		s.logger.Warn().Msg("Background services shutdown timed out")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *ws.Hub {
	return s.wsHub
}

// SSEBroadcaster returns the SSE broadcaster.
func (s *Server) SSEBroadcaster() *sse.Broadcaster {
	return s.sseBroadcaster
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
