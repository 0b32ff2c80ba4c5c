package handlers

import (
	"net/http"

	"github.com/agentstation/fillmap/internal/server/filter"
	"github.com/agentstation/fillmap/internal/server/response"
	"github.com/agentstation/fillmap/pkg/fillrun"
	"github.com/agentstation/fillmap/pkg/grid"
)

// HandleListRuns handles GET /api/v1/runs.
// @Summary List runs
// @Description List fill runs with optional filtering
// @Tags runs
// @Produce json
// @Param status query string false "Filter by status (comma-separated)"
// @Param template_id query string false "Filter by template id"
// @Param document_id query string false "Filter by document id"
// @Param editable query boolean false "Filter by whether the run accepts edits"
// @Param sort query string false "Sort field (id, status, created_at, updated_at)"
// @Param order query string false "Sort order (asc, desc)"
// @Param limit query integer false "Maximum number of results (default: 100, max: 1000)"
// @Param offset query integer false "Result offset for pagination"
// @Success 200 {object} response.Response{data=object}
// @Failure 500 {object} response.Response{error=response.Error}
// @Router /api/v1/runs [get].
func (h *Handlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	all, err := h.runs.List(r.Context())
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	f := filter.ParseRunFilter(r)
	filtered := f.Apply(all)

	response.OK(w, map[string]any{
		"runs": f.Page(filtered),
		"pagination": map[string]any{
			"total":  len(filtered),
			"limit":  f.Limit,
			"offset": f.Offset,
		},
	})
}

// HandleGetRun handles GET /api/v1/runs/{id}.
// @Summary Get run
// @Description Full run state: mappings, fields, extracted data, status and artifact
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Response{data=fillrun.FillRun}
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/runs/{id} [get].
func (h *Handlers) HandleGetRun(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := h.runs.Get(r.Context(), runID)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, run)
}

// HandleResolveCell handles GET /api/v1/runs/{id}/cells/{sheet}/{cell}.
// @Summary Resolve cell
// @Description Display value of a cell and where it came from
// @Tags cells
// @Produce json
// @Param id path string true "Run ID"
// @Param sheet path string true "Sheet name"
// @Param cell path string true "A1 address"
// @Success 200 {object} response.Response{data=object}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/runs/{id}/cells/{sheet}/{cell} [get].
func (h *Handlers) HandleResolveCell(w http.ResponseWriter, r *http.Request, runID, sheet, cell string) {
	ref, err := fillrun.NewCellRef(sheet, cell)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	res, err := h.runs.Resolve(r.Context(), runID, ref)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, map[string]any{
		"cell":       ref.String(),
		"resolution": res,
	})
}

// HandleGrid handles GET /api/v1/runs/{id}/grid.
// @Summary Grid projection
// @Description Cell views of a sheet range with mapping indicators and confidence tiers
// @Tags cells
// @Produce json
// @Param id path string true "Run ID"
// @Param sheet query string false "Sheet name (default: first sheet)"
// @Param range query string false "A1 range such as A1:J50"
// @Param rows query string false "Row span such as 1-50"
// @Param cols query string false "Column span such as 1-10 or A-J"
// @Success 200 {object} response.Response{data=object}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/runs/{id}/grid [get].
func (h *Handlers) HandleGrid(w http.ResponseWriter, r *http.Request, runID string) {
	q := r.URL.Query()

	var (
		rng grid.Range
		err error
	)
	switch {
	case q.Get("range") != "":
		rng, err = grid.ParseRange(q.Get("range"))
	case q.Get("rows") != "" || q.Get("cols") != "":
		rng, err = grid.ParseSpans(q.Get("rows"), q.Get("cols"))
	}
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	res, err := h.runs.Grid(r.Context(), runID, q.Get("sheet"), rng)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, res)
}

// HandleCitations handles GET /api/v1/runs/{id}/citations.
// @Summary Parse citations
// @Description Split text into literal segments and navigable citation tokens
// @Tags citations
// @Produce json
// @Param id path string true "Run ID"
// @Param text query string true "Text containing [D<n>:p<m>] tokens"
// @Success 200 {object} response.Response{data=object}
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/runs/{id}/citations [get].
func (h *Handlers) HandleCitations(w http.ResponseWriter, r *http.Request, runID string) {
	res, err := h.runs.Citations(r.Context(), runID, r.URL.Query().Get("text"))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	unresolved := make([]string, 0, len(res.Unresolved))
	for _, u := range res.Unresolved {
		unresolved = append(unresolved, u.Token)
	}
	response.OK(w, map[string]any{
		"segments":   res.Segments,
		"citations":  res.Citations(),
		"unresolved": unresolved,
	})
}

// HandleProvenance handles GET /api/v1/runs/{id}/provenance.
// @Summary Cell provenance
// @Description Latest write per cell made through this server
// @Tags cells
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Response{data=object}
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/runs/{id}/provenance [get].
func (h *Handlers) HandleProvenance(w http.ResponseWriter, r *http.Request, runID string) {
	if _, err := h.runs.Get(r.Context(), runID); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, map[string]any{
		"cells": h.runs.Provenance(runID).Sorted(),
	})
}

type statusRequest struct {
	Status       fillrun.Status `json:"status"`
	ArtifactPath string         `json:"artifact_path,omitempty"`
}

// HandleObserveStatus handles POST /api/v1/runs/{id}/status.
// @Summary Observe status
// @Description Record a status reported by the extraction pipeline, optionally attaching the generated artifact
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Response{data=fillrun.FillRun}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 404 {object} response.Response{error=response.Error}
// @Failure 409 {object} response.Response{error=response.Error}
// @Router /api/v1/runs/{id}/status [post].
func (h *Handlers) HandleObserveStatus(w http.ResponseWriter, r *http.Request, runID string) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}

	var (
		run *fillrun.FillRun
		err error
	)
	if req.ArtifactPath != "" {
		run, err = h.runs.ObserveStatusWithArtifact(r.Context(), runID, req.Status, req.ArtifactPath)
	} else {
		run, err = h.runs.ObserveStatus(r.Context(), runID, req.Status)
	}
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, run)
}
