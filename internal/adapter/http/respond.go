package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mesa-campaigns/internal/core/domain"
)

// campaignView is the wire form of a campaign.
type campaignView struct {
	ID                 int64                     `json:"id"`
	Reference          string                    `json:"reference"`
	Name               string                    `json:"name"`
	Type               domain.CampaignType       `json:"type"`
	Placement          domain.Placement          `json:"placement"`
	Priority           int                       `json:"priority"`
	Status             domain.Status             `json:"status"`
	StartDate          *time.Time                `json:"start_date,omitempty"`
	EndDate            *time.Time                `json:"end_date,omitempty"`
	Timezone           string                    `json:"timezone,omitempty"`
	IsActive           bool                      `json:"is_active"`
	IsScheduled        bool                      `json:"is_scheduled"`
	IsQueued           bool                      `json:"is_queued"`
	QueuePosition      *int                      `json:"queue_position,omitempty"`
	QueuePriority      domain.PriorityTier       `json:"queue_priority,omitempty"`
	ConflictResolution domain.ConflictResolution `json:"conflict_resolution,omitempty"`
	IsRecurring        bool                      `json:"is_recurring"`
	Recurrence         *domain.RecurrenceDetails `json:"recurrence_details,omitempty"`
	NextOccurrence     *time.Time                `json:"next_occurrence,omitempty"`
	CurrentOccurrences int                       `json:"current_occurrences"`
	Targeting          domain.Targeting          `json:"targeting"`
	Analytics          domain.Analytics          `json:"analytics"`
	Version            int                       `json:"version"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

func viewOf(c domain.Campaign) campaignView {
	sc := c.Schedule
	v := campaignView{
		ID:                 c.ID,
		Reference:          c.Reference,
		Name:               c.Name,
		Type:               c.Type,
		Placement:          c.Placement,
		Priority:           c.Priority,
		Status:             c.Status,
		EndDate:            sc.EndDate,
		Timezone:           sc.Timezone,
		IsActive:           sc.IsActive,
		IsScheduled:        sc.IsScheduled,
		IsQueued:           sc.IsQueued,
		QueuePosition:      sc.QueuePosition,
		QueuePriority:      sc.QueuePriority,
		ConflictResolution: sc.ConflictResolution,
		IsRecurring:        sc.IsRecurring,
		Recurrence:         sc.Recurrence,
		NextOccurrence:     sc.NextOccurrence,
		CurrentOccurrences: sc.CurrentOccurrences,
		Targeting:          c.Targeting,
		Analytics:          c.Analytics,
		Version:            c.Version,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
	if !sc.StartDate.IsZero() {
		start := sc.StartDate
		v.StartDate = &start
	}
	return v
}

func viewsOf(campaigns []domain.Campaign) []campaignView {
	out := make([]campaignView, len(campaigns))
	for i, c := range campaigns {
		out[i] = viewOf(c)
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

// writeError maps error kinds onto status codes. Unexpected errors are
// logged and reported without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrCampaignActive), errors.Is(err, domain.ErrConflictUnresolved):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		h.logger.Error("store unavailable", slog.String("path", r.URL.Path), slog.Any("error", err))
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func campaignID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
