package httpadapter

import "net/http"

type impressionReq struct {
	UserID string `json:"user_id"`
}

type clickReq struct {
	CTA string `json:"cta"`
}

func (h *Handler) handleImpression(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	var req impressionReq
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.Analytics.TrackImpression(r.Context(), id, req.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClick(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	var req clickReq
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.Analytics.TrackClick(r.Context(), id, req.CTA); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleConversion(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Analytics.TrackConversion(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	resp, err := h.svc.Analytics.GetAnalytics(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}
