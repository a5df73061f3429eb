package db

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"mesa-campaigns/internal/core/domain"
	"mesa-campaigns/internal/core/port"
)

// UserWriter persists users. Seed only needs to write them.
type UserWriter interface {
	Save(ctx context.Context, u *domain.User) error
}

var (
	seedRoles     = []string{"guest", "user", "customer", "premium", "vip", "creator", "business"}
	seedCountries = []string{"AM", "DE", "US", "FR", "GE"}
	seedDevices   = []string{"mobile", "desktop", "tablet"}
	seedInterests = []string{"music", "tech", "sports", "travel", "gaming", "fashion"}
)

// Seed inserts demo campaigns and users. Campaigns are created scheduled
// from one hour ago so that the first scheduler pass activates them.
func Seed(ctx context.Context, campaigns port.CampaignStore, users UserWriter, now time.Time) error {
	r := rand.New(rand.NewSource(now.UnixNano()))

	types := []domain.CampaignType{domain.TypeHero, domain.TypeBanner, domain.TypeBanner, domain.TypeBanner, domain.TypePopup, domain.TypeNotification}
	for i, placement := range domain.Placements {
		start := now.Add(-time.Hour)
		end := now.AddDate(0, 1, 0)
		c := &domain.Campaign{
			Name:      fmt.Sprintf("Campaign %d", i+1),
			Type:      types[i%len(types)],
			Placement: placement,
			Priority:  r.Intn(100),
			Status:    domain.StatusScheduled,
			Schedule: domain.Schedule{
				StartDate:          start,
				EndDate:            &end,
				Timezone:           "UTC",
				IsScheduled:        true,
				QueuePriority:      domain.TierNormal,
				ConflictResolution: domain.ResolutionQueue,
			},
		}
		if i%2 == 0 {
			c.Targeting.Geo = &domain.GeoCriteria{Countries: []string{seedCountries[r.Intn(len(seedCountries))]}}
		}
		if i%3 == 0 {
			c.Targeting.Behavioral = &domain.BehavioralCriteria{UserInterests: []string{seedInterests[r.Intn(len(seedInterests))]}}
		}
		if err := campaigns.Create(ctx, c); err != nil {
			return fmt.Errorf("seed campaign %q: %w", c.Name, err)
		}
	}

	// weekly recurring promotion on the hero slot, queued behind the first
	weekEnd := now.Add(47 * time.Hour)
	recurring := &domain.Campaign{
		Name:      "Weekend promo",
		Type:      domain.TypeCarousel,
		Placement: domain.PlacementHomeHero,
		Priority:  80,
		Status:    domain.StatusScheduled,
		Schedule: domain.Schedule{
			StartDate:          now.Add(-time.Hour),
			EndDate:            &weekEnd,
			IsScheduled:        true,
			QueuePriority:      domain.TierHigh,
			ConflictResolution: domain.ResolutionQueue,
			IsRecurring:        true,
			Recurrence:         &domain.RecurrenceDetails{FrequencyUnit: domain.UnitWeekly, IntervalCount: 1, EndAfterOccurrences: ptr(8)},
		},
	}
	if err := campaigns.Create(ctx, recurring); err != nil {
		return fmt.Errorf("seed campaign %q: %w", recurring.Name, err)
	}

	for i := 1; i <= 100; i++ {
		lastActive := now.Add(-time.Duration(r.Intn(60*24)) * time.Hour)
		u := &domain.User{
			ID:                 fmt.Sprintf("user-%d", i),
			Role:               seedRoles[r.Intn(len(seedRoles))],
			CreatedAt:          now.AddDate(0, 0, -r.Intn(800)),
			LastActivityAt:     &lastActive,
			EmailVerified:      r.Intn(2) == 0,
			PhoneVerified:      r.Intn(3) == 0,
			SubscriptionStatus: []string{"active", "trial", "cancelled", ""}[r.Intn(4)],
			LoginCount:         int64(r.Intn(60)),
			PageViews:          int64(r.Intn(500)),
			TimeOnSiteMinutes:  float64(r.Intn(300)),
			Interactions:       int64(r.Intn(40)),
			TotalSpend:         float64(r.Intn(150000)) / 100,
			Location:           &domain.Location{Country: seedCountries[r.Intn(len(seedCountries))]},
			Device:             &domain.Device{Type: seedDevices[r.Intn(len(seedDevices))]},
			Interests:          []string{seedInterests[r.Intn(len(seedInterests))], seedInterests[r.Intn(len(seedInterests))]},
			Browsing: domain.BrowsingStats{
				VisitsPerMonth:       float64(r.Intn(30)),
				CartAbandonmentRate:  r.Float64(),
				AvgTimeOnSiteMinutes: float64(r.Intn(20)),
			},
		}
		u.Verified = u.EmailVerified && u.PhoneVerified
		if err := users.Save(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
