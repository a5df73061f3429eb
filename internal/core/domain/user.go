package domain

import (
	"strings"
	"time"
)

const day = 24 * time.Hour

// User is the read-only view of a customer used for targeting.
type User struct {
	ID                 string
	Role               string
	CreatedAt          time.Time
	LastActivityAt     *time.Time
	EmailVerified      bool
	PhoneVerified      bool
	Verified           bool
	SubscriptionStatus string

	LoginCount        int64
	PageViews         int64
	TimeOnSiteMinutes float64
	Interactions      int64
	TotalSpend        float64

	Location *Location
	Device   *Device

	Interests          []string
	PurchaseCategories []string
	Browsing           BrowsingStats

	CustomAttributes map[string]string
}

// Location is the user's last known geography.
type Location struct {
	Country    string   `json:"country,omitempty"`
	City       string   `json:"city,omitempty"`
	Region     string   `json:"region,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// Device is the user's last known client.
type Device struct {
	Type             string `json:"type,omitempty"`
	Browser          string `json:"browser,omitempty"`
	OperatingSystem  string `json:"operating_system,omitempty"`
	ScreenResolution string `json:"screen_resolution,omitempty"`
}

// BrowsingStats aggregates site behaviour.
type BrowsingStats struct {
	VisitsPerMonth       float64 `json:"visits_per_month,omitempty"`
	CartAbandonmentRate  float64 `json:"cart_abandonment_rate,omitempty"`
	AvgTimeOnSiteMinutes float64 `json:"avg_time_on_site_minutes,omitempty"`
}

var roleGroups = map[string]string{
	"guest":       "visitor",
	"visitor":     "visitor",
	"user":        "standard",
	"customer":    "standard",
	"premium":     "premium",
	"vip":         "premium",
	"admin":       "administrative",
	"super_admin": "administrative",
	"moderator":   "administrative",
	"creator":     "creator",
	"author":      "creator",
	"business":    "business",
	"vendor":      "business",
	"merchant":    "business",
	"enterprise":  "enterprise",
	"partner":     "enterprise",
}

// RoleGroup maps the role onto its coarse group. Unknown roles are standard.
func (u User) RoleGroup() string {
	if g, ok := roleGroups[strings.ToLower(u.Role)]; ok {
		return g
	}
	return "standard"
}

// AccountAge is the time since the account was created.
func (u User) AccountAge(now time.Time) time.Duration {
	return now.Sub(u.CreatedAt)
}

// IsNew reports whether the account is at most 30 days old.
func (u User) IsNew(now time.Time) bool {
	return u.AccountAge(now) <= 30*day
}

func (u User) sinceActivity(now time.Time) (time.Duration, bool) {
	if u.LastActivityAt == nil {
		return 0, false
	}
	return now.Sub(*u.LastActivityAt), true
}

// ActivityLevel buckets recency of activity: active, moderate, inactive, dormant.
func (u User) ActivityLevel(now time.Time) string {
	since, ok := u.sinceActivity(now)
	switch {
	case !ok:
		return "dormant"
	case since <= day:
		return "active"
	case since <= 7*day:
		return "moderate"
	case since <= 30*day:
		return "inactive"
	default:
		return "dormant"
	}
}

// EngagementScore is a weighted sum of engagement counters.
func (u User) EngagementScore() float64 {
	return float64(u.LoginCount)*2 +
		float64(u.PageViews)*0.1 +
		u.TimeOnSiteMinutes*0.5 +
		float64(u.Interactions)
}

// EngagementLevel buckets EngagementScore into low, medium, high, premium.
func (u User) EngagementLevel() string {
	switch s := u.EngagementScore(); {
	case s < 25:
		return "low"
	case s < 50:
		return "medium"
	case s < 100:
		return "high"
	default:
		return "premium"
	}
}

// LifetimeValueTier buckets total spend at 100, 500 and 1000.
func (u User) LifetimeValueTier() string {
	switch {
	case u.TotalSpend < 100:
		return "low"
	case u.TotalSpend < 500:
		return "medium"
	case u.TotalSpend < 1000:
		return "high"
	default:
		return "premium"
	}
}

// AccountAgeBucket returns new, young, established or veteran.
func (u User) AccountAgeBucket(now time.Time) string {
	switch age := u.AccountAge(now); {
	case age <= 7*day:
		return "new"
	case age <= 90*day:
		return "young"
	case age <= 365*day:
		return "established"
	default:
		return "veteran"
	}
}

// VerificationStatus combines email and phone verification.
func (u User) VerificationStatus() string {
	switch {
	case u.EmailVerified && u.PhoneVerified:
		return "fully_verified"
	case u.PhoneVerified:
		return "phone_verified"
	case u.EmailVerified:
		return "email_verified"
	default:
		return "unverified"
	}
}

// BrowsingBehavior classifies browsing stats.
func (u User) BrowsingBehavior() string {
	b := u.Browsing
	switch {
	case b.VisitsPerMonth >= 20 && b.AvgTimeOnSiteMinutes >= 10:
		return "power_user"
	case b.CartAbandonmentRate > 0.5:
		return "cart_abandoner"
	case b.VisitsPerMonth >= 10:
		return "frequent_visitor"
	case b.AvgTimeOnSiteMinutes >= 5:
		return "window_shopper"
	default:
		return "casual_browser"
	}
}

// LastActivityBucket returns recent, moderate or inactive.
func (u User) LastActivityBucket(now time.Time) string {
	since, ok := u.sinceActivity(now)
	switch {
	case !ok:
		return "inactive"
	case since <= day:
		return "recent"
	case since <= 7*day:
		return "moderate"
	default:
		return "inactive"
	}
}

// TimeOfDay buckets an hour into morning, afternoon, evening or night.
func TimeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 6 && h < 12:
		return "morning"
	case h >= 12 && h < 17:
		return "afternoon"
	case h >= 17 && h < 21:
		return "evening"
	default:
		return "night"
	}
}
