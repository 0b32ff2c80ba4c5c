package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/agentstation/fillmap/internal/server/response"
	ws "github.com/agentstation/fillmap/internal/server/websocket"
)

// HandleWindowSocket handles WebSocket connections at /api/v1/runs/{id}/windows/ws.
// Each connection is one window of the run: it announces its role with
// READY and exchanges navigation messages through the run's relay.
// @Summary Window sync socket
// @Description WebSocket transport for cross-window navigation and run notifications
// @Tags realtime
// @Param id path string true "Run ID"
// @Success 101 "Switching Protocols"
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/runs/{id}/windows/ws [get].
func (h *Handlers) HandleWindowSocket(w http.ResponseWriter, r *http.Request, runID string) {
	if _, err := h.runs.Get(r.Context(), runID); err != nil {
		response.ErrorFromType(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", runID).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(uuid.NewString(), runID, h.wsHub, conn)
	h.wsHub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.ctx)
}

// HandleRunEvents handles Server-Sent Events at /api/v1/runs/{id}/events.
// @Summary Run events stream
// @Description run.updated notifications telling windows to reload the run
// @Tags realtime
// @Produce text/event-stream
// @Param id path string true "Run ID"
// @Success 200 "Event stream"
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/runs/{id}/events [get].
func (h *Handlers) HandleRunEvents(w http.ResponseWriter, r *http.Request, runID string) {
	if _, err := h.runs.Get(r.Context(), runID); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	// The stream outlives the server write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug().Err(err).Str("run_id", runID).Msg("Cannot clear SSE write deadline")
	}
	h.sseBroadcaster.Serve(w, r, runID)
}
