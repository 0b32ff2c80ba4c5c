package handlers

import (
	"net/http"

	"github.com/agentstation/fillmap/internal/server/response"
	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
	"github.com/agentstation/fillmap/pkg/reconcile"
)

// mappingRequest is the body of add and edit. Cell is either "Sheet!A1"
// or an A1 address with Sheet set.
type mappingRequest struct {
	Sheet      string   `json:"sheet,omitempty"`
	Cell       string   `json:"cell"`
	FieldID    *string  `json:"field_id,omitempty"`
	Value      *string  `json:"value,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Reasoning  *string  `json:"reasoning,omitempty"`
	Label      *string  `json:"label,omitempty"`
}

func (m mappingRequest) ref() (fillrun.CellRef, error) {
	return cellRef(m.Sheet, m.Cell)
}

func (m mappingRequest) options() []reconcile.MutationOption {
	var opts []reconcile.MutationOption
	if m.Value != nil {
		opts = append(opts, reconcile.WithValue(*m.Value))
	}
	if m.Confidence != nil {
		opts = append(opts, reconcile.WithConfidence(*m.Confidence))
	}
	if m.Reasoning != nil {
		opts = append(opts, reconcile.WithReasoning(*m.Reasoning))
	}
	if m.Label != nil {
		opts = append(opts, reconcile.WithLabel(*m.Label))
	}
	return opts
}

func cellRef(sheet, cell string) (fillrun.CellRef, error) {
	if cell == "" {
		return fillrun.CellRef{}, errors.NewValidationError("cell", cell, "is required")
	}
	if sheet == "" {
		return fillrun.ParseCellRef(cell)
	}
	return fillrun.NewCellRef(sheet, cell)
}

// HandleAddMapping handles POST /api/v1/runs/{id}/mappings.
// @Summary Add mapping
// @Description Link a cell to a detected field, or write a manual value when field_id is omitted
// @Tags mappings
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Response{data=fillrun.FillRun}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 404 {object} response.Response{error=response.Error}
// @Failure 409 {object} response.Response{error=response.Error}
// @Failure 422 {object} response.Response{error=response.Error}
// @Router /api/v1/runs/{id}/mappings [post].
func (h *Handlers) HandleAddMapping(w http.ResponseWriter, r *http.Request, runID string) {
	var req mappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	ref, err := req.ref()
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	fieldID := ""
	if req.FieldID != nil {
		fieldID = *req.FieldID
	}
	run, err := h.runs.AddMapping(r.Context(), runID, ref, fieldID, req.options()...)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, run)
}

// HandleEditMapping handles PATCH /api/v1/runs/{id}/mappings.
// @Summary Edit mapping
// @Description Change the value, field link or metadata of a cell; an empty field_id unlinks the field
// @Tags mappings
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Response{data=fillrun.FillRun}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 404 {object} response.Response{error=response.Error}
// @Failure 409 {object} response.Response{error=response.Error}
// @Failure 422 {object} response.Response{error=response.Error}
// @Router /api/v1/runs/{id}/mappings [patch].
func (h *Handlers) HandleEditMapping(w http.ResponseWriter, r *http.Request, runID string) {
	var req mappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	ref, err := req.ref()
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	opts := req.options()
	if req.FieldID != nil {
		opts = append(opts, reconcile.WithField(*req.FieldID))
	}
	run, err := h.runs.EditMapping(r.Context(), runID, ref, opts...)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, run)
}

// HandleRemoveMapping handles DELETE /api/v1/runs/{id}/mappings?sheet=&cell=.
// @Summary Remove mapping
// @Description Delete the mapping of a cell; the cell reverts to its template value
// @Tags mappings
// @Produce json
// @Param id path string true "Run ID"
// @Param sheet query string false "Sheet name"
// @Param cell query string true "A1 address, or Sheet!A1 when sheet is omitted"
// @Success 200 {object} response.Response{data=fillrun.FillRun}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 404 {object} response.Response{error=response.Error}
// @Failure 409 {object} response.Response{error=response.Error}
// @Router /api/v1/runs/{id}/mappings [delete].
func (h *Handlers) HandleRemoveMapping(w http.ResponseWriter, r *http.Request, runID string) {
	q := r.URL.Query()
	ref, err := cellRef(q.Get("sheet"), q.Get("cell"))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	run, err := h.runs.RemoveMapping(r.Context(), runID, ref)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, run)
}
