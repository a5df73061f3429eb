package port

import (
	"context"
	"fmt"
	"time"

	"mesa-campaigns/internal/core/domain"
)

// SchedulerUseCase owns the activation lifecycle of campaigns at their
// placements. Mock implementations can be generated from this interface
// for testing.
type SchedulerUseCase interface {
	// ScheduleCampaign merges req into the campaign schedule and marks it
	// scheduled and inactive. Recurring schedules get a next occurrence;
	// queued requests are handed to the queue.
	ScheduleCampaign(ctx context.Context, id int64, req ScheduleRequest) (*domain.Campaign, error)
	// UnscheduleCampaign clears the scheduled flag and removes the campaign
	// from its queue.
	UnscheduleCampaign(ctx context.Context, id int64) (*domain.Campaign, error)
	// AutoActivateCampaign activates a campaign, applying its conflict
	// resolution policy against active campaigns at the same placement.
	AutoActivateCampaign(ctx context.Context, id int64) (*ActivationResult, error)
	// AutoDeactivateCampaign deactivates a campaign and removes it from its
	// queue. It is idempotent.
	AutoDeactivateCampaign(ctx context.Context, id int64) error
	// ProcessQueue activates queued campaigns whose start date has arrived,
	// in ascending queue position per placement.
	ProcessQueue(ctx context.Context) (*ProcessReport, error)
	// RunBoundaryChecks deactivates campaigns whose window has ended and
	// activates scheduled or recurring campaigns that became due.
	RunBoundaryChecks(ctx context.Context) (*ProcessReport, error)
	// UpdateRecurrence replaces recurrence details and recomputes the next
	// occurrence.
	UpdateRecurrence(ctx context.Context, id int64, details domain.RecurrenceDetails) (*domain.Campaign, error)
	// ResolveScheduleConflict sets the conflict policy and retries activation.
	ResolveScheduleConflict(ctx context.Context, id int64, policy domain.ConflictResolution) (*ActivationResult, error)
	// GetScheduledCampaignsByDate lists scheduled campaigns starting in [from, to].
	GetScheduledCampaignsByDate(ctx context.Context, from, to time.Time) ([]domain.Campaign, error)
	// GetCampaignsWithConflicts reports colliding active or scheduled
	// campaigns across all placements.
	GetCampaignsWithConflicts(ctx context.Context) ([]domain.ConflictPair, error)
	// DeleteCampaign removes an inactive campaign, dequeuing it first.
	DeleteCampaign(ctx context.Context, id int64) error
}

// QueueUseCase maintains one contiguous priority-ordered queue per placement.
type QueueUseCase interface {
	AddToQueue(ctx context.Context, id int64, tier domain.PriorityTier) (*domain.Campaign, error)
	RemoveFromQueue(ctx context.Context, id int64) error
	MoveInQueue(ctx context.Context, id int64, newPosition int) error
	ReorderQueue(ctx context.Context, placement domain.Placement) error
	GetQueuedCampaigns(ctx context.Context, placement domain.Placement) ([]domain.Campaign, error)
}

// TargetingUseCase decides campaign eligibility for users.
type TargetingUseCase interface {
	// CheckUserTargeting reports whether the user may see the campaign. An
	// empty userID denotes a guest.
	CheckUserTargeting(ctx context.Context, campaignID int64, userID string) (bool, error)
	// GetTargetedCampaignsForUser returns active campaigns the user is
	// eligible for, highest priority first.
	GetTargetedCampaignsForUser(ctx context.Context, userID string, placement domain.Placement, ctype domain.CampaignType) ([]domain.Campaign, error)
	// UpdateTargeting validates and stores targeting rules.
	UpdateTargeting(ctx context.Context, campaignID int64, t domain.Targeting) (*domain.Campaign, error)
}

// AnalyticsUseCase maintains raw campaign counters.
type AnalyticsUseCase interface {
	TrackImpression(ctx context.Context, campaignID int64, userID string) error
	TrackClick(ctx context.Context, campaignID int64, cta string) error
	TrackConversion(ctx context.Context, campaignID int64) error
	GetAnalytics(ctx context.Context, campaignID int64) (*AnalyticsResp, error)
}

// ScheduleRequest carries schedule fields to merge into a campaign. Nil
// fields keep their current value.
type ScheduleRequest struct {
	StartDate          *time.Time                `json:"start_date"`
	EndDate            *time.Time                `json:"end_date"`
	Timezone           *string                   `json:"timezone" validate:"omitempty,timezone"`
	IsQueued           bool                      `json:"is_queued"`
	QueuePriority      domain.PriorityTier       `json:"queue_priority" validate:"omitempty,oneof=urgent high normal low"`
	ConflictResolution domain.ConflictResolution `json:"conflict_resolution" validate:"omitempty,oneof=skip replace queue overlap"`
	IsRecurring        *bool                     `json:"is_recurring"`
	Recurrence         *domain.RecurrenceDetails `json:"recurrence_details"`
}

// Outcome is the result of an activation attempt.
type Outcome string

const (
	OutcomeActivated Outcome = "activated"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeQueued    Outcome = "queued"
)

// ActivationResult describes what AutoActivateCampaign did. Deferred
// outcomes are not failures.
type ActivationResult struct {
	CampaignID    int64   `json:"campaign_id"`
	Outcome       Outcome `json:"outcome"`
	Conflicts     []int64 `json:"conflicts,omitempty"`
	Replaced      []int64 `json:"replaced,omitempty"`
	QueuePosition *int    `json:"queue_position,omitempty"`
}

// Activated reports whether the campaign is now active.
func (r *ActivationResult) Activated() bool {
	return r != nil && r.Outcome == OutcomeActivated
}

// Err returns domain.ErrConflictUnresolved when activation was deferred.
func (r *ActivationResult) Err() error {
	if r == nil || r.Activated() {
		return nil
	}
	return fmt.Errorf("campaign %d %s: %w", r.CampaignID, r.Outcome, domain.ErrConflictUnresolved)
}

// ProcessReport counts the effects of a periodic pass.
type ProcessReport struct {
	Activated   int `json:"activated"`
	Deferred    int `json:"deferred"`
	Deactivated int `json:"deactivated"`
	Failed      int `json:"failed"`
}

// AnalyticsResp is the analytics DTO with derived rates.
type AnalyticsResp struct {
	CampaignID     int64            `json:"campaign_id"`
	Impressions    int64            `json:"impressions"`
	Clicks         int64            `json:"clicks"`
	Conversions    int64            `json:"conversions"`
	CTR            float64          `json:"ctr"`
	ConversionRate float64          `json:"conversion_rate"`
	CTAClicks      map[string]int64 `json:"cta_clicks,omitempty"`
}
