package handlers

import (
	"net/http"

	"github.com/agentstation/fillmap/internal/server/response"
	"github.com/agentstation/fillmap/pkg/overlay"
)

type overlayRequest struct {
	BBox     overlay.BBox      `json:"bbox"`
	PageSize *overlay.PageSize `json:"page_size,omitempty"`
}

// HandleOverlay handles POST /api/v1/overlay.
// @Summary Normalize bounding box
// @Description Convert an inch bounding box to percentages of the rendered page (default US Letter)
// @Tags overlay
// @Accept json
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Failure 400 {object} response.Response{error=response.Error}
// @Router /api/v1/overlay [post].
func (h *Handlers) HandleOverlay(w http.ResponseWriter, r *http.Request) {
	var req overlayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}

	size := overlay.Letter
	if req.PageSize != nil {
		size = *req.PageSize
	}
	rect, err := overlay.Normalize(req.BBox, size)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, map[string]any{
		"bbox":      req.BBox,
		"page_size": size,
		"rect":      rect,
	})
}
