package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mesa-campaigns/internal/core/domain"
)

type enqueueReq struct {
	Priority domain.PriorityTier `json:"priority"`
}

type moveReq struct {
	Position int `json:"position"`
}

func (h *Handler) handleAddToQueue(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	var req enqueueReq
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	c, err := h.svc.Queue.AddToQueue(r.Context(), id, req.Priority)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(*c))
}

func (h *Handler) handleRemoveFromQueue(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Queue.RemoveFromQueue(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMoveInQueue(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	var req moveReq
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.Queue.MoveInQueue(r.Context(), id, req.Position); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	placement := domain.Placement(chi.URLParam(r, "placement"))
	campaigns, err := h.svc.Queue.GetQueuedCampaigns(r.Context(), placement)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewsOf(campaigns))
}

func (h *Handler) handleReorderQueue(w http.ResponseWriter, r *http.Request) {
	placement := domain.Placement(chi.URLParam(r, "placement"))
	if err := h.svc.Queue.ReorderQueue(r.Context(), placement); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
