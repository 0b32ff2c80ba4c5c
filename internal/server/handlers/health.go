package handlers

import (
	"net/http"
	"time"

	"github.com/agentstation/fillmap/internal/server/response"
)

// Liveness is the body of GET /health.
type Liveness struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Readiness is the body of GET /ready.
type Readiness struct {
	Status   string         `json:"status"`
	Runs     int            `json:"runs"`
	ByStatus map[string]int `json:"by_status"`
	Windows  int            `json:"windows"`
	Streams  int            `json:"streams"`
	Uptime   string         `json:"uptime"`
}

// HandleHealth handles GET /health.
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} response.Response{data=Liveness}
// @Router /health [get].
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, Liveness{Status: "healthy", Service: "fillmap"})
}

// HandleReady handles GET /ready. It fails with 503 while the run store
// cannot be listed.
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} response.Response{data=Readiness}
// @Failure 503 {object} response.Response{error=response.Error}
// @Router /ready [get].
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	list, err := h.runs.List(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Readiness check failed")
		response.ServiceUnavailable(w, "Run store not available")
		return
	}

	byStatus := make(map[string]int)
	for _, run := range list {
		byStatus[string(run.Status)]++
	}

	response.OK(w, Readiness{
		Status:   "ready",
		Runs:     len(list),
		ByStatus: byStatus,
		Windows:  h.wsHub.ClientCount(),
		Streams:  h.sseBroadcaster.ClientCount(),
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
	})
}
