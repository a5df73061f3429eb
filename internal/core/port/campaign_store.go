package port

import (
	"context"
	"time"

	"mesa-campaigns/internal/core/domain"
)

// CampaignStore defines the persistence layer for campaigns. It is an
// outbound port in hexagonal architecture. Lookups of unknown ids return
// (nil, nil); infrastructure failures are reported as domain.StoreError.
// Implementations must apply every single call atomically.
type CampaignStore interface {
	// Create inserts a campaign and assigns its ID, Reference and timestamps.
	Create(ctx context.Context, c *domain.Campaign) error
	// FindByID returns a campaign by id.
	FindByID(ctx context.Context, id int64) (*domain.Campaign, error)
	// FindByPlacementAndActiveWindow returns active campaigns at placement
	// whose current window contains asOf.
	FindByPlacementAndActiveWindow(ctx context.Context, placement domain.Placement, asOf time.Time) ([]domain.Campaign, error)
	// FindActive returns active campaigns matching the filter.
	FindActive(ctx context.Context, f ActiveFilter) ([]domain.Campaign, error)
	// FindByPlacement returns every campaign at placement that is active,
	// scheduled or queued.
	FindByPlacement(ctx context.Context, placement domain.Placement) ([]domain.Campaign, error)
	// FindQueued returns queued campaigns at placement by ascending position.
	FindQueued(ctx context.Context, placement domain.Placement) ([]domain.Campaign, error)
	// FindScheduledBetween returns scheduled campaigns whose start date falls
	// within [from, to].
	FindScheduledBetween(ctx context.Context, from, to time.Time) ([]domain.Campaign, error)
	// FindDueForActivation returns inactive, unqueued campaigns that are
	// scheduled with start <= now, or recurring with next occurrence <= now.
	FindDueForActivation(ctx context.Context, now time.Time) ([]domain.Campaign, error)

	// UpdateFields applies a partial update and increments the version.
	UpdateFields(ctx context.Context, id int64, upd domain.CampaignUpdate) error
	// ShiftQueuePositions adds delta to the position of every queued campaign
	// at placement whose position is in (after, upTo]. upTo <= 0 means no
	// upper bound.
	ShiftQueuePositions(ctx context.Context, placement domain.Placement, after, upTo, delta int) error
	// SetQueuePositions assigns positions to queued campaigns in one transaction.
	SetQueuePositions(ctx context.Context, placement domain.Placement, positions map[int64]int) error
	// IncrementAnalytics adds the delta to the campaign counters.
	IncrementAnalytics(ctx context.Context, id int64, delta domain.AnalyticsDelta) error
	// Delete removes a campaign. It fails with domain.ErrCampaignActive when
	// the campaign is currently active.
	Delete(ctx context.Context, id int64) error
}

// ActiveFilter narrows FindActive. Zero values disable a criterion.
type ActiveFilter struct {
	Placement domain.Placement
	Type      domain.CampaignType
	AsOf      time.Time
}

// UserStore is the read-only user lookup used by targeting.
type UserStore interface {
	// FindByID returns a user by id, or (nil, nil) when unknown.
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// PlacementLocker serialises mutations of queue positions and activation
// state per placement.
type PlacementLocker interface {
	// Lock blocks until the placement lock is held or ctx is done. The
	// returned function releases the lock.
	Lock(ctx context.Context, placement domain.Placement) (func(), error)
}

// ViewStats summarises a user's impressions of one campaign.
type ViewStats struct {
	Count        int64
	LastViewedAt *time.Time
}

// ImpressionLog records per-user impressions for frequency capping.
type ImpressionLog interface {
	RecordView(ctx context.Context, campaignID int64, userID string, at time.Time) error
	ViewStats(ctx context.Context, campaignID int64, userID string) (ViewStats, error)
}
