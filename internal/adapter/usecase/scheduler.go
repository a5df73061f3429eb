package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mesa-campaigns/internal/core/domain"
	"mesa-campaigns/internal/core/port"
	"mesa-campaigns/internal/metrics"
	"mesa-campaigns/internal/validation"
)

// Scheduler provides business logic for the activation lifecycle of
// campaigns. It orchestrates the campaign store, the placement locker and
// the queue manager to implement port.SchedulerUseCase. Time-based
// triggering is left to an external driver that calls ProcessQueue and
// RunBoundaryChecks.
type Scheduler struct {
	store  port.CampaignStore
	locker port.PlacementLocker
	queue  *QueueManager
	logger *slog.Logger
	now    func() time.Time
}

// NewScheduler creates a scheduler sharing the queue manager's store and
// locker.
func NewScheduler(queue *QueueManager, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:  queue.store,
		locker: queue.locker,
		queue:  queue,
		logger: logger,
		now:    time.Now,
	}
}

// ScheduleCampaign merges req into the campaign schedule, marks the
// campaign scheduled and inactive, computes the next occurrence of
// recurring schedules and enqueues the campaign when requested.
func (s *Scheduler) ScheduleCampaign(ctx context.Context, id int64, req port.ScheduleRequest) (*domain.Campaign, error) {
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}
	c, unlock, err := lockCampaign(ctx, s.store, s.locker, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sched := mergeSchedule(c.Schedule, req)
	if err = validateSchedule(sched); err != nil {
		return nil, err
	}
	wasActive := sched.IsActive
	sched.IsScheduled = true
	sched.IsActive = false
	sched.NextOccurrence = nil
	if sched.IsRecurring {
		sched.NextOccurrence = s.nextOccurrence(sched)
	}
	status := domain.StatusScheduled
	if err = s.store.UpdateFields(ctx, id, domain.CampaignUpdate{Schedule: &sched, Status: &status}); err != nil {
		return nil, err
	}
	if wasActive {
		metrics.DeactivationsTotal.WithLabelValues(string(c.Placement)).Inc()
	}
	c.Schedule, c.Status = sched, status

	if req.IsQueued {
		if err = s.queue.enqueueLocked(ctx, c, req.QueuePriority); err != nil {
			return nil, err
		}
	}
	s.logger.Info("campaign scheduled",
		slog.Int64("campaign_id", id),
		slog.String("placement", string(c.Placement)),
		slog.Time("start_date", sched.StartDate),
		slog.Bool("queued", req.IsQueued),
	)
	return loadCampaign(ctx, s.store, id)
}

// UnscheduleCampaign clears the scheduled flag, drops the next occurrence
// and removes the campaign from its queue. Active campaigns stay active.
func (s *Scheduler) UnscheduleCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	c, unlock, err := lockCampaign(ctx, s.store, s.locker, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err = s.queue.dequeueLocked(ctx, c); err != nil {
		return nil, err
	}
	sched := c.Schedule
	sched.IsScheduled = false
	sched.NextOccurrence = nil
	upd := domain.CampaignUpdate{Schedule: &sched}
	if !sched.IsActive {
		status := domain.StatusDraft
		upd.Status = &status
	}
	if err = s.store.UpdateFields(ctx, id, upd); err != nil {
		return nil, err
	}
	return loadCampaign(ctx, s.store, id)
}

// AutoActivateCampaign activates the campaign unless its conflict policy
// defers activation. See activateLocked.
func (s *Scheduler) AutoActivateCampaign(ctx context.Context, id int64) (*port.ActivationResult, error) {
	c, unlock, err := lockCampaign(ctx, s.store, s.locker, id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.activateLocked(ctx, c)
}

// AutoDeactivateCampaign marks the campaign inactive and unscheduled.
func (s *Scheduler) AutoDeactivateCampaign(ctx context.Context, id int64) error {
	c, unlock, err := lockCampaign(ctx, s.store, s.locker, id)
	if err != nil {
		return err
	}
	defer unlock()
	return s.deactivateLocked(ctx, c)
}

// ProcessQueue walks every placement queue in ascending position and
// activates campaigns whose start date has arrived. Placements are processed
// concurrently; within a placement each activation takes the lock on its
// own, so the pass can stop between activations when ctx is cancelled.
func (s *Scheduler) ProcessQueue(ctx context.Context) (*port.ProcessReport, error) {
	start := time.Now()
	defer func() {
		metrics.TickDuration.WithLabelValues("queue").Observe(time.Since(start).Seconds())
	}()

	var (
		mu     sync.Mutex
		report port.ProcessReport
		g      errgroup.Group
	)
	for _, placement := range domain.Placements {
		placement := placement
		g.Go(func() error {
			r, err := s.processPlacementQueue(ctx, placement)
			mu.Lock()
			report.Activated += r.Activated
			report.Deferred += r.Deferred
			report.Failed += r.Failed
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()
	return &report, err
}

func (s *Scheduler) processPlacementQueue(ctx context.Context, placement domain.Placement) (port.ProcessReport, error) {
	var report port.ProcessReport
	queued, err := s.store.FindQueued(ctx, placement)
	if err != nil {
		return report, err
	}
	for _, candidate := range queued {
		if err = ctx.Err(); err != nil {
			return report, err
		}
		if candidate.Schedule.StartDate.After(s.now()) {
			continue
		}
		res, err := s.activateIf(ctx, candidate.ID, func(c *domain.Campaign) bool {
			return c.Schedule.IsQueued && !c.Schedule.StartDate.After(s.now())
		})
		if !s.tally(&report, res, err, candidate.ID) {
			return report, err
		}
	}
	return report, nil
}

// RunBoundaryChecks deactivates active campaigns whose window has ended,
// then activates scheduled campaigns whose start date has arrived and
// recurring campaigns whose next occurrence is due.
func (s *Scheduler) RunBoundaryChecks(ctx context.Context) (*port.ProcessReport, error) {
	start := time.Now()
	defer func() {
		metrics.TickDuration.WithLabelValues("boundaries").Observe(time.Since(start).Seconds())
	}()

	var report port.ProcessReport
	now := s.now()
	active, err := s.store.FindActive(ctx, port.ActiveFilter{})
	if err != nil {
		return &report, err
	}
	for _, c := range active {
		if err = ctx.Err(); err != nil {
			return &report, err
		}
		if !windowEnded(c.Schedule, now) {
			continue
		}
		deactivated, err := s.deactivateIf(ctx, c.ID, func(c *domain.Campaign) bool {
			return c.Schedule.IsActive && windowEnded(c.Schedule, s.now())
		})
		if err != nil {
			if errors.Is(err, domain.ErrStoreUnavailable) {
				return &report, err
			}
			report.Failed++
			s.logger.Error("boundary deactivation failed", slog.Int64("campaign_id", c.ID), slog.Any("error", err))
			continue
		}
		if deactivated {
			report.Deactivated++
		}
	}

	due, err := s.store.FindDueForActivation(ctx, now)
	if err != nil {
		return &report, err
	}
	for _, c := range due {
		if err = ctx.Err(); err != nil {
			return &report, err
		}
		res, err := s.activateIf(ctx, c.ID, func(c *domain.Campaign) bool {
			return isDue(c.Schedule, s.now())
		})
		if !s.tally(&report, res, err, c.ID) {
			return &report, err
		}
	}
	return &report, nil
}

// UpdateRecurrence replaces the recurrence details of a campaign, marks it
// recurring and recomputes its next occurrence.
func (s *Scheduler) UpdateRecurrence(ctx context.Context, id int64, details domain.RecurrenceDetails) (*domain.Campaign, error) {
	if err := validation.Struct(&details); err != nil {
		return nil, err
	}
	c, unlock, err := lockCampaign(ctx, s.store, s.locker, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sched := c.Schedule
	sched.IsRecurring = true
	sched.Recurrence = &details
	if err = validateSchedule(sched); err != nil {
		return nil, err
	}
	sched.NextOccurrence = s.nextOccurrence(sched)
	if err = s.store.UpdateFields(ctx, id, domain.CampaignUpdate{Schedule: &sched}); err != nil {
		return nil, err
	}
	return loadCampaign(ctx, s.store, id)
}

// ResolveScheduleConflict stores a new conflict policy for the campaign and
// retries its activation under that policy.
func (s *Scheduler) ResolveScheduleConflict(ctx context.Context, id int64, policy domain.ConflictResolution) (*port.ActivationResult, error) {
	if !policy.Valid() {
		return nil, domain.Invalid("conflict_resolution", "must be one of skip, replace, queue, overlap")
	}
	c, unlock, err := lockCampaign(ctx, s.store, s.locker, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sched := c.Schedule
	sched.ConflictResolution = policy
	if err = s.store.UpdateFields(ctx, id, domain.CampaignUpdate{Schedule: &sched}); err != nil {
		return nil, err
	}
	c.Schedule = sched
	return s.activateLocked(ctx, c)
}

// GetScheduledCampaignsByDate lists scheduled campaigns starting in [from, to].
func (s *Scheduler) GetScheduledCampaignsByDate(ctx context.Context, from, to time.Time) ([]domain.Campaign, error) {
	if to.Before(from) {
		return nil, domain.Invalid("to", "must not be before from")
	}
	return s.store.FindScheduledBetween(ctx, from, to)
}

// GetCampaignsWithConflicts reports every pair of active or scheduled,
// unqueued campaigns whose windows collide at a placement.
func (s *Scheduler) GetCampaignsWithConflicts(ctx context.Context) ([]domain.ConflictPair, error) {
	var pairs []domain.ConflictPair
	for _, placement := range domain.Placements {
		campaigns, err := s.store.FindByPlacement(ctx, placement)
		if err != nil {
			return nil, err
		}
		candidates := campaigns[:0]
		for _, c := range campaigns {
			if !c.Schedule.IsQueued {
				candidates = append(candidates, c)
			}
		}
		pairs = append(pairs, domain.FindConflicts(candidates)...)
	}
	return pairs, nil
}

// DeleteCampaign removes an inactive campaign. A queued campaign leaves its
// queue first so that positions stay contiguous.
func (s *Scheduler) DeleteCampaign(ctx context.Context, id int64) error {
	c, unlock, err := lockCampaign(ctx, s.store, s.locker, id)
	if err != nil {
		return err
	}
	defer unlock()

	if c.Schedule.IsActive {
		return fmt.Errorf("delete campaign %d: %w", id, domain.ErrCampaignActive)
	}
	if err = s.queue.dequeueLocked(ctx, c); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// activateLocked runs conflict detection against the active campaigns at
// the placement and applies the campaign's policy:
//   - skip: leave the campaign scheduled
//   - replace: deactivate every conflicting campaign, then activate
//   - queue: enqueue instead of activating
//   - overlap: activate regardless
//
// Each deactivation is idempotent and the activation is the final write, so
// a failure midway is repaired by calling it again.
func (s *Scheduler) activateLocked(ctx context.Context, c *domain.Campaign) (*port.ActivationResult, error) {
	res := &port.ActivationResult{CampaignID: c.ID}
	if c.Schedule.IsActive {
		res.Outcome = port.OutcomeActivated
		return res, nil
	}
	policy := c.Schedule.ConflictResolution
	if !policy.Valid() {
		return nil, domain.Invalid("conflict_resolution", "must be set to one of skip, replace, queue, overlap")
	}

	now := s.now()
	activated := activatedSchedule(c.Schedule, now, s.nextOccurrence)
	candidate := *c
	candidate.Schedule = activated

	active, err := s.store.FindActive(ctx, port.ActiveFilter{Placement: c.Placement})
	if err != nil {
		return nil, err
	}
	var conflicts []domain.Campaign
	for _, a := range active {
		if domain.Conflicts(candidate, a) {
			conflicts = append(conflicts, a)
			res.Conflicts = append(res.Conflicts, a.ID)
		}
	}

	if len(conflicts) > 0 {
		switch policy {
		case domain.ResolutionSkip:
			res.Outcome = port.OutcomeSkipped
			s.observeActivation(c, res)
			return res, nil
		case domain.ResolutionQueue:
			if err = s.queue.enqueueLocked(ctx, c, c.Schedule.QueuePriority); err != nil {
				return nil, err
			}
			queued, err := loadCampaign(ctx, s.store, c.ID)
			if err != nil {
				return nil, err
			}
			res.Outcome = port.OutcomeQueued
			res.QueuePosition = queued.Schedule.QueuePosition
			s.observeActivation(c, res)
			return res, nil
		case domain.ResolutionReplace:
			for i := range conflicts {
				if err = s.deactivateLocked(ctx, &conflicts[i]); err != nil {
					return nil, fmt.Errorf("replace campaign %d: %w", conflicts[i].ID, err)
				}
				res.Replaced = append(res.Replaced, conflicts[i].ID)
			}
		case domain.ResolutionOverlap:
		}
	}

	if err = s.queue.dequeueLocked(ctx, c); err != nil {
		return nil, err
	}
	status := domain.StatusActive
	if err = s.store.UpdateFields(ctx, c.ID, domain.CampaignUpdate{Schedule: &activated, Status: &status}); err != nil {
		return nil, err
	}
	res.Outcome = port.OutcomeActivated
	s.observeActivation(c, res)
	return res, nil
}

// deactivateLocked also takes the campaign out of its queue, otherwise the
// next queue pass would activate it again.
func (s *Scheduler) deactivateLocked(ctx context.Context, c *domain.Campaign) error {
	if !c.Schedule.IsActive && !c.Schedule.IsScheduled && !c.Schedule.IsQueued {
		return nil
	}
	if err := s.queue.dequeueLocked(ctx, c); err != nil {
		return err
	}
	wasActive := c.Schedule.IsActive
	sched := c.Schedule
	sched.IsActive = false
	sched.IsScheduled = false
	status := s.statusAfterDeactivation(sched)
	if err := s.store.UpdateFields(ctx, c.ID, domain.CampaignUpdate{Schedule: &sched, Status: &status}); err != nil {
		return err
	}
	c.Schedule, c.Status = sched, status
	if wasActive {
		metrics.DeactivationsTotal.WithLabelValues(string(c.Placement)).Inc()
		s.logger.Info("campaign deactivated",
			slog.Int64("campaign_id", c.ID),
			slog.String("placement", string(c.Placement)),
			slog.String("status", string(status)),
		)
	}
	return nil
}

func (s *Scheduler) statusAfterDeactivation(sched domain.Schedule) domain.Status {
	if sched.IsRecurring && sched.NextOccurrence != nil {
		return domain.StatusScheduled
	}
	if windowEnded(sched, s.now()) {
		return domain.StatusCompleted
	}
	return domain.StatusPaused
}

// activateIf locks the campaign's placement and activates it when still
// eligible under the lock. It returns a nil result when not eligible.
func (s *Scheduler) activateIf(ctx context.Context, id int64, eligible func(*domain.Campaign) bool) (*port.ActivationResult, error) {
	c, unlock, err := lockCampaign(ctx, s.store, s.locker, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer unlock()
	if !eligible(c) {
		return nil, nil
	}
	return s.activateLocked(ctx, c)
}

func (s *Scheduler) deactivateIf(ctx context.Context, id int64, eligible func(*domain.Campaign) bool) (bool, error) {
	c, unlock, err := lockCampaign(ctx, s.store, s.locker, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	defer unlock()
	if !eligible(c) {
		return false, nil
	}
	return true, s.deactivateLocked(ctx, c)
}

// tally records an activation attempt in report. It returns false when the
// pass must stop because the store is unavailable.
func (s *Scheduler) tally(report *port.ProcessReport, res *port.ActivationResult, err error, id int64) bool {
	switch {
	case err != nil:
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return false
		}
		report.Failed++
		s.logger.Error("activation failed", slog.Int64("campaign_id", id), slog.Any("error", err))
	case res == nil:
	case res.Activated():
		report.Activated++
	default:
		report.Deferred++
	}
	return true
}

func (s *Scheduler) observeActivation(c *domain.Campaign, res *port.ActivationResult) {
	metrics.ActivationsTotal.WithLabelValues(string(c.Placement), string(res.Outcome)).Inc()
	s.logger.Info("campaign activation",
		slog.Int64("campaign_id", c.ID),
		slog.String("placement", string(c.Placement)),
		slog.String("outcome", string(res.Outcome)),
		slog.Any("conflicts", res.Conflicts),
	)
}

func (s *Scheduler) nextOccurrence(sched domain.Schedule) *time.Time {
	if sched.Recurrence == nil || sched.RecurrenceExhausted() {
		return nil
	}
	return domain.NextOccurrence(sched.StartDate.In(sched.Location()), *sched.Recurrence, s.now())
}

// activatedSchedule returns the schedule as it reads after activation at now.
func activatedSchedule(sched domain.Schedule, now time.Time, next func(domain.Schedule) *time.Time) domain.Schedule {
	sched.IsActive = true
	sched.IsScheduled = false
	sched.IsQueued = false
	sched.QueuePosition = nil
	if sched.IsRecurring && sched.Recurrence != nil {
		sched.CurrentOccurrences++
		sched.LastOccurrence = &now
		sched.NextOccurrence = next(sched)
	}
	return sched
}

func mergeSchedule(sched domain.Schedule, req port.ScheduleRequest) domain.Schedule {
	if req.StartDate != nil {
		sched.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		end := *req.EndDate
		sched.EndDate = &end
	}
	if req.Timezone != nil {
		sched.Timezone = *req.Timezone
	}
	if req.QueuePriority != "" {
		sched.QueuePriority = req.QueuePriority
	}
	if req.ConflictResolution != "" {
		sched.ConflictResolution = req.ConflictResolution
	}
	if req.IsRecurring != nil {
		sched.IsRecurring = *req.IsRecurring
	}
	if req.Recurrence != nil {
		rec := *req.Recurrence
		sched.Recurrence = &rec
	}
	return sched
}

func validateSchedule(sched domain.Schedule) error {
	if sched.StartDate.IsZero() {
		return domain.Invalid("start_date", "is required")
	}
	if sched.EndDate != nil && !sched.EndDate.After(sched.StartDate) {
		return domain.Invalid("end_date", "must be after start_date")
	}
	if !sched.ConflictResolution.Valid() {
		return domain.Invalid("conflict_resolution", "must be one of skip, replace, queue, overlap")
	}
	if sched.IsRecurring {
		if sched.Recurrence == nil {
			return domain.Invalid("recurrence_details", "is required for recurring schedules")
		}
		if err := validation.Struct(sched.Recurrence); err != nil {
			return err
		}
		if end := sched.Recurrence.EndOnDate; end != nil && end.Before(sched.StartDate) {
			return domain.Invalid("recurrence_details.end_on_date", "must not be before start_date")
		}
	}
	return nil
}

func windowEnded(sched domain.Schedule, now time.Time) bool {
	end := sched.Window().End
	return end != nil && !now.Before(*end)
}

func isDue(sched domain.Schedule, now time.Time) bool {
	if sched.IsActive || sched.IsQueued {
		return false
	}
	if sched.IsScheduled && !sched.StartDate.After(now) && (sched.EndDate == nil || now.Before(*sched.EndDate)) {
		return true
	}
	return sched.IsRecurring && sched.NextOccurrence != nil && !sched.NextOccurrence.After(now)
}
