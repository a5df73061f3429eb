package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"mesa-campaigns/internal/core/domain"
	"mesa-campaigns/internal/core/port"
	"mesa-campaigns/internal/metrics"
	"mesa-campaigns/internal/validation"
)

// TargetingEvaluator decides whether a user may see a campaign. Evaluation
// is read-only: it never mutates campaign or user state.
type TargetingEvaluator struct {
	campaigns port.CampaignStore
	users     port.UserStore
	views     port.ImpressionLog
	logger    *slog.Logger
	now       func() time.Time
}

// NewTargetingEvaluator creates an evaluator. views backs frequency capping.
func NewTargetingEvaluator(campaigns port.CampaignStore, users port.UserStore, views port.ImpressionLog, logger *slog.Logger) *TargetingEvaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TargetingEvaluator{campaigns: campaigns, users: users, views: views, logger: logger, now: time.Now}
}

// CheckUserTargeting loads the campaign and user and evaluates the
// campaign's targeting groups. An empty or unknown userID is a guest.
func (e *TargetingEvaluator) CheckUserTargeting(ctx context.Context, campaignID int64, userID string) (bool, error) {
	c, err := loadCampaign(ctx, e.campaigns, campaignID)
	if err != nil {
		return false, err
	}
	user, err := e.findUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return e.evaluate(ctx, c, user)
}

// GetTargetedCampaignsForUser returns the active campaigns the user is
// eligible for, by priority descending and then newest first.
func (e *TargetingEvaluator) GetTargetedCampaignsForUser(ctx context.Context, userID string, placement domain.Placement, ctype domain.CampaignType) ([]domain.Campaign, error) {
	if placement != "" && !placement.Valid() {
		return nil, domain.Invalid("placement", "unknown placement "+string(placement))
	}
	user, err := e.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	active, err := e.liveCampaigns(ctx, placement, ctype)
	if err != nil {
		return nil, err
	}
	eligible := make([]domain.Campaign, 0, len(active))
	for i := range active {
		ok, err := e.evaluate(ctx, &active[i], user)
		if err != nil {
			return nil, err
		}
		if ok {
			eligible = append(eligible, active[i])
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority > eligible[j].Priority
		}
		return eligible[i].CreatedAt.After(eligible[j].CreatedAt)
	})
	return eligible, nil
}

// liveCampaigns returns active campaigns whose current window contains now.
// A placement narrows the lookup to that placement's active window.
func (e *TargetingEvaluator) liveCampaigns(ctx context.Context, placement domain.Placement, ctype domain.CampaignType) ([]domain.Campaign, error) {
	now := e.now()
	if placement == "" {
		return e.campaigns.FindActive(ctx, port.ActiveFilter{Type: ctype, AsOf: now})
	}
	live, err := e.campaigns.FindByPlacementAndActiveWindow(ctx, placement, now)
	if err != nil {
		return nil, err
	}
	if ctype == "" {
		return live, nil
	}
	return slices.DeleteFunc(live, func(c domain.Campaign) bool { return c.Type != ctype }), nil
}

// UpdateTargeting validates the rules and stores them on the campaign.
func (e *TargetingEvaluator) UpdateTargeting(ctx context.Context, campaignID int64, t domain.Targeting) (*domain.Campaign, error) {
	if err := validation.Struct(&t); err != nil {
		return nil, err
	}
	if _, err := loadCampaign(ctx, e.campaigns, campaignID); err != nil {
		return nil, err
	}
	if err := e.campaigns.UpdateFields(ctx, campaignID, domain.CampaignUpdate{Targeting: &t}); err != nil {
		return nil, err
	}
	return loadCampaign(ctx, e.campaigns, campaignID)
}

func (e *TargetingEvaluator) findUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, nil
	}
	return e.users.FindByID(ctx, userID)
}

// evaluate short-circuits on the first failing group. Campaigns without
// targeting accept everyone, guests included; otherwise guests are refused.
func (e *TargetingEvaluator) evaluate(ctx context.Context, c *domain.Campaign, user *domain.User) (bool, error) {
	groups := c.Targeting.Groups()
	if len(groups) == 0 {
		metrics.TargetingEvaluationsTotal.WithLabelValues("pass", "none").Inc()
		return true, nil
	}
	if user == nil {
		metrics.TargetingEvaluationsTotal.WithLabelValues("fail", "guest").Inc()
		return false, nil
	}
	now := e.now().In(c.Schedule.Location())
	for _, g := range groups {
		ok, err := e.check(ctx, c, user, g, now)
		if err != nil {
			return false, err
		}
		if !ok {
			metrics.TargetingEvaluationsTotal.WithLabelValues("fail", string(g.Kind())).Inc()
			e.logger.Debug("targeting rejected",
				slog.Int64("campaign_id", c.ID),
				slog.String("user_id", user.ID),
				slog.String("group", string(g.Kind())),
			)
			return false, nil
		}
	}
	metrics.TargetingEvaluationsTotal.WithLabelValues("pass", "none").Inc()
	return true, nil
}

func (e *TargetingEvaluator) check(ctx context.Context, c *domain.Campaign, u *domain.User, g domain.Group, now time.Time) (bool, error) {
	switch g := g.(type) {
	case *domain.RoleCriteria:
		return matchRole(g, u), nil
	case *domain.BehaviorCriteria:
		return matchBehavior(g, u, now), nil
	case *domain.AccountCriteria:
		return matchAccount(g, u, now), nil
	case *domain.GeoCriteria:
		return matchGeo(g, u), nil
	case *domain.DeviceCriteria:
		return matchDevice(g, u), nil
	case *domain.BehavioralCriteria:
		return matchBehavioral(g, u, now), nil
	case *domain.FrequencyCriteria:
		return e.matchFrequency(ctx, g, c.ID, u, now)
	case *domain.TimingCriteria:
		return matchTiming(g, now), nil
	case domain.CustomCriteria:
		return matchCustom(g, u)
	default:
		return false, fmt.Errorf("unsupported targeting group %q", g.Kind())
	}
}

func matchRole(g *domain.RoleCriteria, u *domain.User) bool {
	if len(g.UserRoles) > 0 && !containsFold(g.UserRoles, u.Role) {
		return false
	}
	if len(g.ExcludeUserRoles) > 0 && containsFold(g.ExcludeUserRoles, u.Role) {
		return false
	}
	return allows(g.UserRoleGroups, u.RoleGroup())
}

func matchBehavior(g *domain.BehaviorCriteria, u *domain.User, now time.Time) bool {
	if g.NewUsers != g.ReturningUsers {
		if isNew := u.IsNew(now); g.NewUsers != isNew {
			return false
		}
	}
	return allows(g.UserActivityLevel, u.ActivityLevel(now)) &&
		allows(g.UserEngagementScore, u.EngagementLevel()) &&
		allows(g.UserLifetimeValue, u.LifetimeValueTier())
}

func matchAccount(g *domain.AccountCriteria, u *domain.User, now time.Time) bool {
	if g.VerifiedUsers != nil && *g.VerifiedUsers != u.Verified {
		return false
	}
	return allows(g.AccountAge, u.AccountAgeBucket(now)) &&
		allows(g.SubscriptionStatus, u.SubscriptionStatus) &&
		allows(g.AccountVerificationStatus, u.VerificationStatus())
}

// matchGeo passes users without location data.
func matchGeo(g *domain.GeoCriteria, u *domain.User) bool {
	loc := u.Location
	if loc == nil {
		return true
	}
	if !allows(g.Countries, loc.Country) ||
		!allows(g.Cities, loc.City) ||
		!allows(g.Regions, loc.Region) ||
		!allows(g.PostalCodes, loc.PostalCode) {
		return false
	}
	if r := g.Radius; r != nil {
		if loc.Latitude == nil || loc.Longitude == nil {
			return false
		}
		return haversineKm(r.Latitude, r.Longitude, *loc.Latitude, *loc.Longitude) <= r.Kilometers
	}
	return true
}

// matchDevice passes users without device data.
func matchDevice(g *domain.DeviceCriteria, u *domain.User) bool {
	d := u.Device
	if d == nil {
		return true
	}
	return allows(g.DeviceTypes, d.Type) &&
		allows(g.Browsers, d.Browser) &&
		allows(g.OperatingSystems, d.OperatingSystem) &&
		allows(g.ScreenResolutions, d.ScreenResolution)
}

func matchBehavioral(g *domain.BehavioralCriteria, u *domain.User, now time.Time) bool {
	if len(g.UserInterests) > 0 && !overlaps(g.UserInterests, u.Interests) {
		return false
	}
	if len(g.PurchaseHistory) > 0 && !overlaps(g.PurchaseHistory, u.PurchaseCategories) {
		return false
	}
	return allows(g.BrowsingBehavior, u.BrowsingBehavior()) &&
		allows(g.LastActivity, u.LastActivityBucket(now))
}

func (e *TargetingEvaluator) matchFrequency(ctx context.Context, g *domain.FrequencyCriteria, campaignID int64, u *domain.User, now time.Time) (bool, error) {
	if g.MaxFrequency <= 0 && g.MinTimeBetweenViews <= 0 {
		return true, nil
	}
	if e.views == nil {
		return false, fmt.Errorf("frequency targeting for campaign %d: no impression log configured", campaignID)
	}
	stats, err := e.views.ViewStats(ctx, campaignID, u.ID)
	if err != nil {
		return false, err
	}
	if g.MaxFrequency > 0 && stats.Count >= int64(g.MaxFrequency) {
		return false, nil
	}
	if g.MinTimeBetweenViews > 0 && stats.LastViewedAt != nil && now.Sub(*stats.LastViewedAt) < g.MinTimeBetweenViews {
		return false, nil
	}
	return true, nil
}

func matchTiming(g *domain.TimingCriteria, now time.Time) bool {
	return allows(g.TimeOfDay, domain.TimeOfDay(now)) &&
		allows(g.DayOfWeek, strings.ToLower(now.Weekday().String()))
}

// matchCustom requires every rule to hold. A missing attribute fails its rule.
func matchCustom(rules domain.CustomCriteria, u *domain.User) (bool, error) {
	for _, r := range rules {
		v, ok := u.CustomAttributes[r.Key]
		if !ok {
			return false, nil
		}
		match, err := compare(r.Operator, v, r.Value)
		if err != nil || !match {
			return false, err
		}
	}
	return true, nil
}

func compare(op domain.Operator, actual, expected string) (bool, error) {
	switch op {
	case domain.OpEquals:
		return actual == expected, nil
	case domain.OpNotEquals:
		return actual != expected, nil
	case domain.OpContains:
		return strings.Contains(actual, expected), nil
	case domain.OpNotContains:
		return !strings.Contains(actual, expected), nil
	case domain.OpIn:
		return inList(actual, expected), nil
	case domain.OpNotIn:
		return !inList(actual, expected), nil
	case domain.OpGreaterThan, domain.OpLessThan, domain.OpGreaterThanOrEqual, domain.OpLessThanOrEqual:
		a, errA := strconv.ParseFloat(strings.TrimSpace(actual), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(expected), 64)
		if errA != nil || errB != nil {
			return false, nil
		}
		switch op {
		case domain.OpGreaterThan:
			return a > b, nil
		case domain.OpLessThan:
			return a < b, nil
		case domain.OpGreaterThanOrEqual:
			return a >= b, nil
		default:
			return a <= b, nil
		}
	default:
		return false, domain.Invalid("custom.operator", fmt.Sprintf("unknown operator %q", op))
	}
}

func inList(v, list string) bool {
	for _, item := range strings.Split(list, ",") {
		if strings.TrimSpace(item) == v {
			return true
		}
	}
	return false
}

// allows reports whether v is in the whitelist. An empty whitelist allows all.
func allows(whitelist []string, v string) bool {
	return len(whitelist) == 0 || containsFold(whitelist, v)
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func overlaps(a, b []string) bool {
	for _, v := range b {
		if containsFold(a, v) {
			return true
		}
	}
	return false
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
