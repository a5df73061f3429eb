package domain

import "time"

// Placement is a named display slot a campaign can occupy. Conflicts and
// queues are scoped per placement.
type Placement string

const (
	PlacementHomeHero        Placement = "home_hero"
	PlacementTopBanner       Placement = "top_banner"
	PlacementSidebar         Placement = "sidebar"
	PlacementFooter          Placement = "footer"
	PlacementPopup           Placement = "popup"
	PlacementNotificationBar Placement = "notification_bar"
)

// Placements lists every known placement in a stable order.
var Placements = []Placement{
	PlacementHomeHero,
	PlacementTopBanner,
	PlacementSidebar,
	PlacementFooter,
	PlacementPopup,
	PlacementNotificationBar,
}

// Valid reports whether p is one of the known placements.
func (p Placement) Valid() bool {
	for _, v := range Placements {
		if v == p {
			return true
		}
	}
	return false
}

// CampaignType is the presentation kind of a campaign.
type CampaignType string

const (
	TypeCarousel     CampaignType = "carousel"
	TypePopup        CampaignType = "popup"
	TypeBanner       CampaignType = "banner"
	TypeNotification CampaignType = "notification"
	TypeHero         CampaignType = "hero"
)

// Status is the lifecycle state of a campaign:
// draft -> scheduled -> active <-> paused -> completed.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Campaign represents a marketing campaign together with its schedule,
// targeting rules and raw analytics counters.
type Campaign struct {
	ID        int64
	Reference string // opaque token, unique
	Name      string
	Type      CampaignType
	Placement Placement
	Priority  int // 0..100, display ordering
	Status    Status
	Schedule  Schedule
	Targeting Targeting
	Analytics Analytics
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Analytics holds raw counters maintained by the analytics collaborator.
type Analytics struct {
	Impressions int64            `json:"impressions"`
	Clicks      int64            `json:"clicks"`
	Conversions int64            `json:"conversions"`
	CTAClicks   map[string]int64 `json:"cta_clicks,omitempty"`
}

// CTR returns clicks per impression as a percentage.
func (a Analytics) CTR() float64 {
	if a.Impressions == 0 {
		return 0
	}
	return float64(a.Clicks) / float64(a.Impressions) * 100
}

// ConversionRate returns conversions per click as a percentage.
func (a Analytics) ConversionRate() float64 {
	if a.Clicks == 0 {
		return 0
	}
	return float64(a.Conversions) / float64(a.Clicks) * 100
}

// CampaignUpdate is an atomic partial update. Nil fields are left untouched.
type CampaignUpdate struct {
	Status    *Status
	Priority  *int
	Schedule  *Schedule
	Targeting *Targeting
}

// AnalyticsDelta describes counter increments applied atomically.
type AnalyticsDelta struct {
	Impressions int64
	Clicks      int64
	Conversions int64
	CTA         string // when set, the per-CTA counter is incremented by Clicks
}
