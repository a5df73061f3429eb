package httpadapter

import (
	"net/http"
	"time"

	"mesa-campaigns/internal/core/domain"
	"mesa-campaigns/internal/core/port"
)

// handleSchedule merges the request body into the campaign schedule.
func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	var req port.ScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.svc.Scheduler.ScheduleCampaign(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(*c))
}

func (h *Handler) handleUnschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Scheduler.UnscheduleCampaign(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(*c))
}

// handleActivate returns 200 when the campaign became active and 202 when
// its conflict policy deferred activation.
func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Scheduler.AutoActivateCampaign(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeActivation(w, res)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Scheduler.AutoDeactivateCampaign(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateRecurrence(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	var details domain.RecurrenceDetails
	if !h.decode(w, r, &details) {
		return
	}
	c, err := h.svc.Scheduler.UpdateRecurrence(r.Context(), id, details)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(*c))
}

type resolveReq struct {
	ConflictResolution domain.ConflictResolution `json:"conflict_resolution"`
}

func (h *Handler) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	var req resolveReq
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Scheduler.ResolveScheduleConflict(r.Context(), id, req.ConflictResolution)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeActivation(w, res)
}

func (h *Handler) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Scheduler.DeleteCampaign(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleScheduledByDate lists scheduled campaigns starting between the
// RFC3339 `from` and `to` query parameters. The period defaults to the
// next 7 days.
func (h *Handler) handleScheduledByDate(w http.ResponseWriter, r *http.Request) {
	var (
		q    = r.URL.Query()
		from = time.Now()
		to   time.Time
		err  error
	)
	if s := q.Get("from"); s != "" {
		if from, err = time.Parse(time.RFC3339, s); err != nil {
			http.Error(w, "invalid 'from' timestamp", http.StatusBadRequest)
			return
		}
	}
	to = from.Add(7 * 24 * time.Hour)
	if s := q.Get("to"); s != "" {
		if to, err = time.Parse(time.RFC3339, s); err != nil {
			http.Error(w, "invalid 'to' timestamp", http.StatusBadRequest)
			return
		}
	}
	campaigns, err := h.svc.Scheduler.GetScheduledCampaignsByDate(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewsOf(campaigns))
}

func (h *Handler) handleConflicts(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.svc.Scheduler.GetCampaignsWithConflicts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if pairs == nil {
		pairs = []domain.ConflictPair{}
	}
	h.writeJSON(w, http.StatusOK, pairs)
}

func (h *Handler) handleProcessQueue(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Scheduler.ProcessQueue(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleBoundaries(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Scheduler.RunBoundaryChecks(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) writeActivation(w http.ResponseWriter, res *port.ActivationResult) {
	status := http.StatusOK
	if !res.Activated() {
		status = http.StatusAccepted
	}
	h.writeJSON(w, status, res)
}
