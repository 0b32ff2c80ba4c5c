// Package handlers provides HTTP request handlers for the fillmap API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/internal/runs"
	"github.com/agentstation/fillmap/internal/server/sse"
	ws "github.com/agentstation/fillmap/internal/server/websocket"
	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/errors"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	ctx            context.Context
	runs           *runs.Service
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	startTime      time.Time
}

// New creates a new Handlers instance. ctx bounds the lifetime of
// long-lived connections.
func New(
	ctx context.Context,
	service *runs.Service,
	wsHub *ws.Hub,
	sseBroadcaster *sse.Broadcaster,
	upgrader websocket.Upgrader,
	logger *zerolog.Logger,
) *Handlers {
	return &Handlers{
		ctx:            ctx,
		runs:           service,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader:       upgrader,
		logger:         logger,
		startTime:      time.Now(),
	}
}

// decodeJSON reads a size-limited JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.WrapParse("json", "", err)
	}
	return nil
}
