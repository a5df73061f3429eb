// Package memory provides in-process implementations of the outbound ports.
// They back the test suites and single-node deployments without Postgres
// or Redis.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mesa-campaigns/internal/core/domain"
	"mesa-campaigns/internal/core/port"
)

// CampaignStore implements port.CampaignStore over a guarded map.
type CampaignStore struct {
	mu        sync.RWMutex
	nextID    int64
	campaigns map[int64]*domain.Campaign
	now       func() time.Time
}

// NewCampaignStore returns an empty store.
func NewCampaignStore() *CampaignStore {
	return &CampaignStore{campaigns: make(map[int64]*domain.Campaign), now: time.Now}
}

func (s *CampaignStore) Create(_ context.Context, c *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c.ID = s.nextID
	if c.Reference == "" {
		c.Reference = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = domain.StatusDraft
	}
	now := s.now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.Version = 1
	cp := clone(*c)
	s.campaigns[c.ID] = &cp
	return nil
}

func (s *CampaignStore) FindByID(_ context.Context, id int64) (*domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, nil
	}
	cp := clone(*c)
	return &cp, nil
}

func (s *CampaignStore) FindByPlacementAndActiveWindow(_ context.Context, placement domain.Placement, asOf time.Time) ([]domain.Campaign, error) {
	return s.collect(func(c *domain.Campaign) bool {
		return c.Placement == placement && c.Schedule.IsActive && c.Schedule.Window().Contains(asOf)
	}, byID), nil
}

func (s *CampaignStore) FindActive(_ context.Context, f port.ActiveFilter) ([]domain.Campaign, error) {
	return s.collect(func(c *domain.Campaign) bool {
		if !c.Schedule.IsActive {
			return false
		}
		if f.Placement != "" && c.Placement != f.Placement {
			return false
		}
		if f.Type != "" && c.Type != f.Type {
			return false
		}
		return f.AsOf.IsZero() || c.Schedule.Window().Contains(f.AsOf)
	}, byID), nil
}

func (s *CampaignStore) FindByPlacement(_ context.Context, placement domain.Placement) ([]domain.Campaign, error) {
	return s.collect(func(c *domain.Campaign) bool {
		sc := c.Schedule
		return c.Placement == placement && (sc.IsActive || sc.IsScheduled || sc.IsQueued)
	}, byID), nil
}

func (s *CampaignStore) FindQueued(_ context.Context, placement domain.Placement) ([]domain.Campaign, error) {
	return s.collect(func(c *domain.Campaign) bool {
		return c.Placement == placement && c.Schedule.IsQueued
	}, func(a, b domain.Campaign) bool {
		return position(a) < position(b)
	}), nil
}

func (s *CampaignStore) FindScheduledBetween(_ context.Context, from, to time.Time) ([]domain.Campaign, error) {
	return s.collect(func(c *domain.Campaign) bool {
		st := c.Schedule.StartDate
		return c.Schedule.IsScheduled && !st.Before(from) && !st.After(to)
	}, func(a, b domain.Campaign) bool {
		return a.Schedule.StartDate.Before(b.Schedule.StartDate)
	}), nil
}

func (s *CampaignStore) FindDueForActivation(_ context.Context, now time.Time) ([]domain.Campaign, error) {
	return s.collect(func(c *domain.Campaign) bool {
		sc := c.Schedule
		if sc.IsActive || sc.IsQueued {
			return false
		}
		if sc.IsScheduled && !sc.StartDate.After(now) && (sc.EndDate == nil || sc.EndDate.After(now)) {
			return true
		}
		return sc.IsRecurring && sc.NextOccurrence != nil && !sc.NextOccurrence.After(now)
	}, byID), nil
}

func (s *CampaignStore) UpdateFields(_ context.Context, id int64, upd domain.CampaignUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return domain.CampaignNotFound(id)
	}
	if upd.Status != nil {
		c.Status = *upd.Status
	}
	if upd.Priority != nil {
		c.Priority = *upd.Priority
	}
	if upd.Schedule != nil {
		c.Schedule = cloneSchedule(*upd.Schedule)
	}
	if upd.Targeting != nil {
		c.Targeting = *upd.Targeting
	}
	c.Version++
	c.UpdatedAt = s.now().UTC()
	return nil
}

func (s *CampaignStore) ShiftQueuePositions(_ context.Context, placement domain.Placement, after, upTo, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.campaigns {
		if c.Placement != placement || !c.Schedule.IsQueued || c.Schedule.QueuePosition == nil {
			continue
		}
		p := *c.Schedule.QueuePosition
		if p > after && (upTo <= 0 || p <= upTo) {
			p += delta
			c.Schedule.QueuePosition = &p
			c.Version++
		}
	}
	return nil
}

func (s *CampaignStore) SetQueuePositions(_ context.Context, placement domain.Placement, positions map[int64]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range positions {
		c, ok := s.campaigns[id]
		if !ok || c.Placement != placement {
			return domain.CampaignNotFound(id)
		}
	}
	for id, p := range positions {
		p := p
		c := s.campaigns[id]
		if c.Schedule.QueuePosition != nil && *c.Schedule.QueuePosition == p {
			continue
		}
		c.Schedule.QueuePosition = &p
		c.Version++
	}
	return nil
}

func (s *CampaignStore) IncrementAnalytics(_ context.Context, id int64, d domain.AnalyticsDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return domain.CampaignNotFound(id)
	}
	c.Analytics.Impressions += d.Impressions
	c.Analytics.Clicks += d.Clicks
	c.Analytics.Conversions += d.Conversions
	if d.CTA != "" {
		if c.Analytics.CTAClicks == nil {
			c.Analytics.CTAClicks = make(map[string]int64)
		}
		c.Analytics.CTAClicks[d.CTA] += d.Clicks
	}
	return nil
}

func (s *CampaignStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return domain.CampaignNotFound(id)
	}
	if c.Schedule.IsActive {
		return domain.ErrCampaignActive
	}
	delete(s.campaigns, id)
	return nil
}

func (s *CampaignStore) collect(keep func(*domain.Campaign) bool, less func(a, b domain.Campaign) bool) []domain.Campaign {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Campaign
	for _, c := range s.campaigns {
		if keep(c) {
			out = append(out, clone(*c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byID(a, b domain.Campaign) bool { return a.ID < b.ID }

func position(c domain.Campaign) int {
	if c.Schedule.QueuePosition == nil {
		return int(^uint(0) >> 1)
	}
	return *c.Schedule.QueuePosition
}

func clone(c domain.Campaign) domain.Campaign {
	c.Schedule = cloneSchedule(c.Schedule)
	c.Analytics.CTAClicks = maps.Clone(c.Analytics.CTAClicks)
	return c
}

func cloneSchedule(s domain.Schedule) domain.Schedule {
	s.EndDate = clonePtr(s.EndDate)
	s.QueuePosition = clonePtr(s.QueuePosition)
	s.NextOccurrence = clonePtr(s.NextOccurrence)
	s.LastOccurrence = clonePtr(s.LastOccurrence)
	if s.Recurrence != nil {
		r := *s.Recurrence
		r.EndAfterOccurrences = clonePtr(r.EndAfterOccurrences)
		r.EndOnDate = clonePtr(r.EndOnDate)
		s.Recurrence = &r
	}
	return s
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
