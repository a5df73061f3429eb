package domain

import "time"

// ConflictResolution is the policy applied when a campaign's activation
// window collides with an active campaign at the same placement.
type ConflictResolution string

const (
	ResolutionSkip    ConflictResolution = "skip"
	ResolutionReplace ConflictResolution = "replace"
	ResolutionQueue   ConflictResolution = "queue"
	ResolutionOverlap ConflictResolution = "overlap"
)

// Valid reports whether r is a known policy. The empty policy is invalid.
func (r ConflictResolution) Valid() bool {
	switch r {
	case ResolutionSkip, ResolutionReplace, ResolutionQueue, ResolutionOverlap:
		return true
	}
	return false
}

// PriorityTier is the named queue priority of a campaign.
type PriorityTier string

const (
	TierUrgent PriorityTier = "urgent"
	TierHigh   PriorityTier = "high"
	TierNormal PriorityTier = "normal"
	TierLow    PriorityTier = "low"
)

// Valid reports whether t is a known tier.
func (t PriorityTier) Valid() bool {
	switch t {
	case TierUrgent, TierHigh, TierNormal, TierLow:
		return true
	}
	return false
}

// Weight maps a tier to its numeric queue weight. Unknown tiers rank as normal.
func (t PriorityTier) Weight() int {
	switch t {
	case TierUrgent:
		return 4
	case TierHigh:
		return 3
	case TierLow:
		return 1
	default:
		return 2
	}
}

// FrequencyUnit is the step unit of a recurring schedule.
type FrequencyUnit string

const (
	UnitDaily   FrequencyUnit = "daily"
	UnitWeekly  FrequencyUnit = "weekly"
	UnitMonthly FrequencyUnit = "monthly"
	UnitYearly  FrequencyUnit = "yearly"
)

// RecurrenceDetails bounds and paces a recurring campaign.
type RecurrenceDetails struct {
	FrequencyUnit       FrequencyUnit `json:"frequency_unit" validate:"required,oneof=daily weekly monthly yearly"`
	IntervalCount       int           `json:"interval_count" validate:"min=1,max=1000"`
	EndAfterOccurrences *int          `json:"end_after_occurrences,omitempty" validate:"omitempty,min=1"`
	EndOnDate           *time.Time    `json:"end_on_date,omitempty"`
}

// Schedule is the activation state of a campaign at its placement.
type Schedule struct {
	StartDate          time.Time
	EndDate            *time.Time
	Timezone           string
	IsActive           bool
	IsScheduled        bool
	IsQueued           bool
	QueuePosition      *int
	QueuePriority      PriorityTier
	ConflictResolution ConflictResolution
	IsRecurring        bool
	Recurrence         *RecurrenceDetails
	NextOccurrence     *time.Time
	CurrentOccurrences int
	LastOccurrence     *time.Time
}

// Window is a half-open time interval [Start, End). A nil End is open-ended.
type Window struct {
	Start time.Time
	End   *time.Time
}

// Overlaps reports whether two windows intersect.
func (w Window) Overlaps(o Window) bool {
	if w.End != nil && !o.Start.Before(*w.End) {
		return false
	}
	if o.End != nil && !w.Start.Before(*o.End) {
		return false
	}
	return true
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	return w.End == nil || t.Before(*w.End)
}

// Window returns the schedule's current activation window. Recurring
// schedules repeat the StartDate..EndDate length from their current anchor.
func (s Schedule) Window() Window {
	if !s.IsRecurring {
		return Window{Start: s.StartDate, End: s.EndDate}
	}
	anchor := s.StartDate
	switch {
	case s.IsActive && s.LastOccurrence != nil:
		anchor = *s.LastOccurrence
	case s.NextOccurrence != nil:
		anchor = *s.NextOccurrence
	}
	w := Window{Start: anchor}
	if s.EndDate != nil {
		end := anchor.Add(s.EndDate.Sub(s.StartDate))
		w.End = &end
	}
	return w
}

// Location resolves the schedule timezone, falling back to UTC.
func (s Schedule) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RecurrenceExhausted reports whether the occurrence-count bound has been reached.
func (s Schedule) RecurrenceExhausted() bool {
	if s.Recurrence == nil || s.Recurrence.EndAfterOccurrences == nil {
		return false
	}
	return s.CurrentOccurrences >= *s.Recurrence.EndAfterOccurrences
}
