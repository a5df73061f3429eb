package httpadapter

import (
	"net/http"

	"mesa-campaigns/internal/core/domain"
)

type eligibilityResp struct {
	CampaignID int64  `json:"campaign_id"`
	UserID     string `json:"user_id,omitempty"`
	Eligible   bool   `json:"eligible"`
}

// handleCheckTargeting evaluates the campaign for the `user_id` query
// parameter. Without it the caller is treated as a guest.
func (h *Handler) handleCheckTargeting(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	userID := r.URL.Query().Get("user_id")
	eligible, err := h.svc.Targeting.CheckUserTargeting(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, eligibilityResp{CampaignID: id, UserID: userID, Eligible: eligible})
}

// handleTargetedCampaigns lists active campaigns for `user_id`, optionally
// narrowed by `placement` and `type`.
func (h *Handler) handleTargetedCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	campaigns, err := h.svc.Targeting.GetTargetedCampaignsForUser(r.Context(),
		q.Get("user_id"),
		domain.Placement(q.Get("placement")),
		domain.CampaignType(q.Get("type")),
	)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewsOf(campaigns))
}

func (h *Handler) handleUpdateTargeting(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	var t domain.Targeting
	if !h.decode(w, r, &t) {
		return
	}
	c, err := h.svc.Targeting.UpdateTargeting(r.Context(), id, t)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(*c))
}
