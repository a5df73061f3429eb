package usecase

import (
	"context"
	"log/slog"
	"sort"

	"mesa-campaigns/internal/core/domain"
	"mesa-campaigns/internal/core/port"
	"mesa-campaigns/internal/metrics"
)

// QueueManager maintains one contiguous, priority-ordered queue per
// placement. Every mutation runs under the placement lock, and positions are
// changed only through explicit store mutations so that queued campaigns at
// a placement always occupy positions 1..N.
type QueueManager struct {
	store  port.CampaignStore
	locker port.PlacementLocker
	logger *slog.Logger
}

// NewQueueManager creates a queue manager over the given store and locker.
func NewQueueManager(store port.CampaignStore, locker port.PlacementLocker, logger *slog.Logger) *QueueManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueManager{store: store, locker: locker, logger: logger}
}

// AddToQueue appends the campaign to its placement queue with the given
// tier and reorders the queue.
func (q *QueueManager) AddToQueue(ctx context.Context, id int64, tier domain.PriorityTier) (*domain.Campaign, error) {
	if tier != "" && !tier.Valid() {
		return nil, domain.Invalid("priority", "must be one of urgent, high, normal, low")
	}
	c, unlock, err := lockCampaign(ctx, q.store, q.locker, id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if err = q.enqueueLocked(ctx, c, tier); err != nil {
		return nil, err
	}
	return loadCampaign(ctx, q.store, id)
}

// RemoveFromQueue takes the campaign out of its queue and closes the gap.
// Removing a campaign that is not queued is a no-op.
func (q *QueueManager) RemoveFromQueue(ctx context.Context, id int64) error {
	c, unlock, err := lockCampaign(ctx, q.store, q.locker, id)
	if err != nil {
		return err
	}
	defer unlock()
	return q.dequeueLocked(ctx, c)
}

// MoveInQueue moves the campaign to newPosition, shifting the campaigns in
// between by one.
func (q *QueueManager) MoveInQueue(ctx context.Context, id int64, newPosition int) error {
	c, unlock, err := lockCampaign(ctx, q.store, q.locker, id)
	if err != nil {
		return err
	}
	defer unlock()

	if !c.Schedule.IsQueued || c.Schedule.QueuePosition == nil {
		return domain.Invalid("campaign", "is not queued")
	}
	queued, err := q.store.FindQueued(ctx, c.Placement)
	if err != nil {
		return err
	}
	if newPosition < 1 || newPosition > len(queued) {
		return domain.Invalid("position", "must be between 1 and queue length")
	}
	current := *c.Schedule.QueuePosition
	switch {
	case newPosition == current:
		return nil
	case newPosition > current:
		err = q.store.ShiftQueuePositions(ctx, c.Placement, current, newPosition, -1)
	default:
		err = q.store.ShiftQueuePositions(ctx, c.Placement, newPosition-1, current-1, 1)
	}
	if err != nil {
		return err
	}
	if err = q.store.SetQueuePositions(ctx, c.Placement, map[int64]int{id: newPosition}); err != nil {
		return err
	}
	q.logger.Info("campaign moved in queue",
		slog.Int64("campaign_id", id),
		slog.String("placement", string(c.Placement)),
		slog.Int("from", current),
		slog.Int("to", newPosition),
	)
	return nil
}

// ReorderQueue sorts the placement queue by tier weight, keeping the
// current order among campaigns of equal weight.
func (q *QueueManager) ReorderQueue(ctx context.Context, placement domain.Placement) error {
	if !placement.Valid() {
		return domain.Invalid("placement", "unknown placement "+string(placement))
	}
	unlock, err := q.locker.Lock(ctx, placement)
	if err != nil {
		return err
	}
	defer unlock()
	return q.reorderLocked(ctx, placement)
}

// GetQueuedCampaigns lists the queue of a placement in position order.
func (q *QueueManager) GetQueuedCampaigns(ctx context.Context, placement domain.Placement) ([]domain.Campaign, error) {
	if !placement.Valid() {
		return nil, domain.Invalid("placement", "unknown placement "+string(placement))
	}
	return q.store.FindQueued(ctx, placement)
}

func (q *QueueManager) enqueueLocked(ctx context.Context, c *domain.Campaign, tier domain.PriorityTier) error {
	if c.Schedule.IsActive {
		return domain.Invalid("campaign", "active campaign cannot be queued")
	}
	if tier == "" {
		tier = c.Schedule.QueuePriority
	}
	if tier == "" {
		tier = domain.TierNormal
	}
	sched := c.Schedule
	sched.QueuePriority = tier
	if !sched.IsQueued {
		queued, err := q.store.FindQueued(ctx, c.Placement)
		if err != nil {
			return err
		}
		pos := len(queued) + 1
		sched.IsQueued = true
		sched.QueuePosition = &pos
	}
	status := domain.StatusScheduled
	if err := q.store.UpdateFields(ctx, c.ID, domain.CampaignUpdate{Schedule: &sched, Status: &status}); err != nil {
		return err
	}
	c.Schedule = sched
	c.Status = status
	return q.reorderLocked(ctx, c.Placement)
}

func (q *QueueManager) dequeueLocked(ctx context.Context, c *domain.Campaign) error {
	if !c.Schedule.IsQueued || c.Schedule.QueuePosition == nil {
		return nil
	}
	removed := *c.Schedule.QueuePosition
	sched := c.Schedule
	sched.IsQueued = false
	sched.QueuePosition = nil
	if err := q.store.UpdateFields(ctx, c.ID, domain.CampaignUpdate{Schedule: &sched}); err != nil {
		return err
	}
	c.Schedule = sched
	if err := q.store.ShiftQueuePositions(ctx, c.Placement, removed, 0, -1); err != nil {
		return err
	}
	q.observeLength(ctx, c.Placement)
	return nil
}

func (q *QueueManager) reorderLocked(ctx context.Context, placement domain.Placement) error {
	queued, err := q.store.FindQueued(ctx, placement)
	if err != nil {
		return err
	}
	sort.SliceStable(queued, func(i, j int) bool {
		return queued[i].Schedule.QueuePriority.Weight() > queued[j].Schedule.QueuePriority.Weight()
	})
	positions := make(map[int64]int, len(queued))
	for i, c := range queued {
		positions[c.ID] = i + 1
	}
	if err = q.store.SetQueuePositions(ctx, placement, positions); err != nil {
		return err
	}
	metrics.QueueLength.WithLabelValues(string(placement)).Set(float64(len(queued)))
	return nil
}

func (q *QueueManager) observeLength(ctx context.Context, placement domain.Placement) {
	queued, err := q.store.FindQueued(ctx, placement)
	if err != nil {
		q.logger.Warn("queue length unavailable", slog.String("placement", string(placement)), slog.Any("error", err))
		return
	}
	metrics.QueueLength.WithLabelValues(string(placement)).Set(float64(len(queued)))
}
