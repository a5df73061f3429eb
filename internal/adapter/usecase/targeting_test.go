package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesa-campaigns/internal/adapter/memory"
	"mesa-campaigns/internal/core/domain"
	"mesa-campaigns/internal/core/port"
	"mesa-campaigns/internal/core/port/mocks"
)

func newEvaluator(t *testing.T, users port.UserStore, views port.ImpressionLog) (*TargetingEvaluator, *memory.CampaignStore) {
	t.Helper()
	store := memory.NewCampaignStore()
	e := NewTargetingEvaluator(store, users, views, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.now = func() time.Time { return t0 }
	return e, store
}

func member() *domain.User {
	return &domain.User{
		ID:                 "u-1",
		Role:               "premium",
		CreatedAt:          t0.Add(-400 * day),
		LastActivityAt:     ptr(t0.Add(-2 * time.Hour)),
		EmailVerified:      true,
		PhoneVerified:      true,
		Verified:           true,
		SubscriptionStatus: "active",
		LoginCount:         30,
		TotalSpend:         750,
		Location: &domain.Location{
			Country:   "DE",
			City:      "Berlin",
			Latitude:  ptr(52.52),
			Longitude: ptr(13.405),
		},
		Device:             &domain.Device{Type: "mobile", Browser: "safari", OperatingSystem: "ios"},
		Interests:          []string{"sports", "music"},
		PurchaseCategories: []string{"shoes"},
		Browsing:           domain.BrowsingStats{VisitsPerMonth: 25, AvgTimeOnSiteMinutes: 12},
		CustomAttributes:   map[string]string{"plan": "gold", "age": "34", "cohort": "beta"},
	}
}

func targeted(t *testing.T, store *memory.CampaignStore, tg domain.Targeting) *domain.Campaign {
	t.Helper()
	c := &domain.Campaign{Name: "targeted", Type: domain.TypeBanner, Placement: domain.PlacementHomeHero, Targeting: tg}
	require.NoError(t, store.Create(context.Background(), c))
	return c
}

func TestCheckUserTargetingGuest(t *testing.T) {
	users := mocks.NewMockUserStore(t)
	e, store := newEvaluator(t, users, nil)

	restricted := targeted(t, store, domain.Targeting{Role: &domain.RoleCriteria{UserRoles: []string{"user"}}})
	open := targeted(t, store, domain.Targeting{})

	ok, err := e.CheckUserTargeting(context.Background(), restricted.ID, "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.CheckUserTargeting(context.Background(), open.ID, "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckUserTargetingGuestWithEmptyGroups(t *testing.T) {
	users := mocks.NewMockUserStore(t)
	e, store := newEvaluator(t, users, nil)

	for name, tg := range map[string]domain.Targeting{
		"timing":    {Timing: &domain.TimingCriteria{}},
		"role":      {Role: &domain.RoleCriteria{}},
		"frequency": {Frequency: &domain.FrequencyCriteria{}},
		"behavior":  {Behavior: &domain.BehaviorCriteria{NewUsers: true, ReturningUsers: true}},
		"all empty": {Geo: &domain.GeoCriteria{}, Device: &domain.DeviceCriteria{}, Account: &domain.AccountCriteria{}, Behavioral: &domain.BehavioralCriteria{}},
	} {
		t.Run(name, func(t *testing.T) {
			c := targeted(t, store, tg)
			ok, err := e.CheckUserTargeting(context.Background(), c.ID, "")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestCheckUserTargetingUnknownUser(t *testing.T) {
	users := mocks.NewMockUserStore(t)
	users.EXPECT().FindByID(context.Background(), "ghost").Return(nil, nil).Once()
	e, store := newEvaluator(t, users, nil)
	c := targeted(t, store, domain.Targeting{Role: &domain.RoleCriteria{UserRoles: []string{"user"}}})

	ok, err := e.CheckUserTargeting(context.Background(), c.ID, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckUserTargetingErrors(t *testing.T) {
	storeErr := domain.StoreFailure("find user", errors.New("connection refused"))
	users := mocks.NewMockUserStore(t)
	users.EXPECT().FindByID(context.Background(), "u-1").Return(nil, storeErr).Once()
	e, store := newEvaluator(t, users, nil)
	c := targeted(t, store, domain.Targeting{})

	_, err := e.CheckUserTargeting(context.Background(), c.ID, "u-1")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = e.CheckUserTargeting(context.Background(), 404, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEvaluateGroups(t *testing.T) {
	e, _ := newEvaluator(t, nil, nil)

	cases := []struct {
		name string
		tg   domain.Targeting
		want bool
	}{
		{"role listed", domain.Targeting{Role: &domain.RoleCriteria{UserRoles: []string{"Premium"}}}, true},
		{"role excluded", domain.Targeting{Role: &domain.RoleCriteria{ExcludeUserRoles: []string{"premium"}}}, false},
		{"role group", domain.Targeting{Role: &domain.RoleCriteria{UserRoleGroups: []string{"premium", "enterprise"}}}, true},
		{"role group miss", domain.Targeting{Role: &domain.RoleCriteria{UserRoleGroups: []string{"administrative"}}}, false},
		{"returning only", domain.Targeting{Behavior: &domain.BehaviorCriteria{ReturningUsers: true}}, true},
		{"new only", domain.Targeting{Behavior: &domain.BehaviorCriteria{NewUsers: true}}, false},
		{"new and returning", domain.Targeting{Behavior: &domain.BehaviorCriteria{NewUsers: true, ReturningUsers: true}}, true},
		{"activity", domain.Targeting{Behavior: &domain.BehaviorCriteria{UserActivityLevel: []string{"active"}}}, true},
		{"engagement", domain.Targeting{Behavior: &domain.BehaviorCriteria{UserEngagementScore: []string{"high"}}}, true},
		{"lifetime value", domain.Targeting{Behavior: &domain.BehaviorCriteria{UserLifetimeValue: []string{"premium"}}}, false},
		{"account age", domain.Targeting{Account: &domain.AccountCriteria{AccountAge: []string{"veteran"}}}, true},
		{"verified only", domain.Targeting{Account: &domain.AccountCriteria{VerifiedUsers: ptr(true)}}, true},
		{"unverified only", domain.Targeting{Account: &domain.AccountCriteria{VerifiedUsers: ptr(false)}}, false},
		{"verification", domain.Targeting{Account: &domain.AccountCriteria{AccountVerificationStatus: []string{"email_verified"}}}, false},
		{"subscription", domain.Targeting{Account: &domain.AccountCriteria{SubscriptionStatus: []string{"active", "trial"}}}, true},
		{"country", domain.Targeting{Geo: &domain.GeoCriteria{Countries: []string{"de"}}}, true},
		{"city miss", domain.Targeting{Geo: &domain.GeoCriteria{Cities: []string{"Munich"}}}, false},
		{"radius near", domain.Targeting{Geo: &domain.GeoCriteria{Radius: &domain.RadiusTarget{Latitude: 52.39, Longitude: 13.06, Kilometers: 50}}}, true},
		{"radius far", domain.Targeting{Geo: &domain.GeoCriteria{Radius: &domain.RadiusTarget{Latitude: 48.14, Longitude: 11.58, Kilometers: 50}}}, false},
		{"device", domain.Targeting{Device: &domain.DeviceCriteria{DeviceTypes: []string{"mobile"}, Browsers: []string{"Safari"}}}, true},
		{"os miss", domain.Targeting{Device: &domain.DeviceCriteria{OperatingSystems: []string{"android"}}}, false},
		{"interests", domain.Targeting{Behavioral: &domain.BehavioralCriteria{UserInterests: []string{"music", "travel"}}}, true},
		{"purchases miss", domain.Targeting{Behavioral: &domain.BehavioralCriteria{PurchaseHistory: []string{"books"}}}, false},
		{"browsing", domain.Targeting{Behavioral: &domain.BehavioralCriteria{BrowsingBehavior: []string{"power_user"}}}, true},
		{"last activity", domain.Targeting{Behavioral: &domain.BehavioralCriteria{LastActivity: []string{"moderate"}}}, false},
		{"morning monday", domain.Targeting{Timing: &domain.TimingCriteria{TimeOfDay: []string{"morning"}, DayOfWeek: []string{"monday"}}}, true},
		{"weekend", domain.Targeting{Timing: &domain.TimingCriteria{DayOfWeek: []string{"saturday", "sunday"}}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &domain.Campaign{ID: 1, Targeting: tc.tg}
			got, err := e.evaluate(context.Background(), c, member())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateMissingProfileData(t *testing.T) {
	e, _ := newEvaluator(t, nil, nil)
	u := member()
	u.Location = nil
	u.Device = nil

	for name, tg := range map[string]domain.Targeting{
		"geo":    {Geo: &domain.GeoCriteria{Countries: []string{"FR"}}},
		"device": {Device: &domain.DeviceCriteria{DeviceTypes: []string{"desktop"}}},
	} {
		got, err := e.evaluate(context.Background(), &domain.Campaign{Targeting: tg}, u)
		require.NoError(t, err)
		assert.True(t, got, name)
	}

	u = member()
	u.Location.Latitude = nil
	got, err := e.evaluate(context.Background(), &domain.Campaign{Targeting: domain.Targeting{
		Geo: &domain.GeoCriteria{Radius: &domain.RadiusTarget{Latitude: 52.52, Longitude: 13.4, Kilometers: 10}},
	}}, u)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvaluateUsesScheduleTimezone(t *testing.T) {
	e, _ := newEvaluator(t, nil, nil)
	c := &domain.Campaign{
		Schedule:  domain.Schedule{Timezone: "Asia/Tokyo"},
		Targeting: domain.Targeting{Timing: &domain.TimingCriteria{TimeOfDay: []string{"evening"}}},
	}

	got, err := e.evaluate(context.Background(), c, member())
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateShortCircuits(t *testing.T) {
	views := mocks.NewMockImpressionLog(t)
	e, _ := newEvaluator(t, nil, views)
	c := &domain.Campaign{ID: 7, Targeting: domain.Targeting{
		Role:      &domain.RoleCriteria{UserRoles: []string{"admin"}},
		Frequency: &domain.FrequencyCriteria{MaxFrequency: 1},
	}}

	got, err := e.evaluate(context.Background(), c, member())
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvaluateRemovingFailingGroupPasses(t *testing.T) {
	e, _ := newEvaluator(t, nil, nil)
	tg := domain.Targeting{
		Role:    &domain.RoleCriteria{UserRoleGroups: []string{"premium"}},
		Geo:     &domain.GeoCriteria{Countries: []string{"US"}},
		Timing:  &domain.TimingCriteria{TimeOfDay: []string{"morning"}},
		Account: &domain.AccountCriteria{VerifiedUsers: ptr(true)},
	}

	got, err := e.evaluate(context.Background(), &domain.Campaign{Targeting: tg}, member())
	require.NoError(t, err)
	assert.False(t, got)

	tg.Geo = nil
	got, err = e.evaluate(context.Background(), &domain.Campaign{Targeting: tg}, member())
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateFrequency(t *testing.T) {
	cases := []struct {
		name  string
		rule  domain.FrequencyCriteria
		stats port.ViewStats
		want  bool
	}{
		{"under cap", domain.FrequencyCriteria{MaxFrequency: 3}, port.ViewStats{Count: 2}, true},
		{"at cap", domain.FrequencyCriteria{MaxFrequency: 3}, port.ViewStats{Count: 3}, false},
		{"too soon", domain.FrequencyCriteria{MinTimeBetweenViews: time.Hour}, port.ViewStats{Count: 1, LastViewedAt: ptr(t0.Add(-10 * time.Minute))}, false},
		{"spaced", domain.FrequencyCriteria{MinTimeBetweenViews: time.Hour}, port.ViewStats{Count: 1, LastViewedAt: ptr(t0.Add(-2 * time.Hour))}, true},
		{"never seen", domain.FrequencyCriteria{MaxFrequency: 1, MinTimeBetweenViews: time.Hour}, port.ViewStats{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			views := mocks.NewMockImpressionLog(t)
			views.EXPECT().ViewStats(context.Background(), int64(7), "u-1").Return(tc.stats, nil).Once()
			e, _ := newEvaluator(t, nil, views)

			rule := tc.rule
			got, err := e.evaluate(context.Background(), &domain.Campaign{ID: 7, Targeting: domain.Targeting{Frequency: &rule}}, member())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateFrequencyWithoutLog(t *testing.T) {
	e, _ := newEvaluator(t, nil, nil)
	c := &domain.Campaign{ID: 7, Targeting: domain.Targeting{Frequency: &domain.FrequencyCriteria{MaxFrequency: 2}}}

	_, err := e.evaluate(context.Background(), c, member())
	assert.Error(t, err)
}

func TestEvaluateCustomRules(t *testing.T) {
	e, _ := newEvaluator(t, nil, nil)

	cases := []struct {
		rule domain.CustomAttributeRule
		want bool
	}{
		{domain.CustomAttributeRule{Key: "plan", Operator: domain.OpEquals, Value: "gold"}, true},
		{domain.CustomAttributeRule{Key: "plan", Operator: domain.OpNotEquals, Value: "gold"}, false},
		{domain.CustomAttributeRule{Key: "plan", Operator: domain.OpContains, Value: "ol"}, true},
		{domain.CustomAttributeRule{Key: "plan", Operator: domain.OpNotContains, Value: "ol"}, false},
		{domain.CustomAttributeRule{Key: "age", Operator: domain.OpGreaterThan, Value: "30"}, true},
		{domain.CustomAttributeRule{Key: "age", Operator: domain.OpLessThan, Value: "30"}, false},
		{domain.CustomAttributeRule{Key: "age", Operator: domain.OpGreaterThanOrEqual, Value: "34"}, true},
		{domain.CustomAttributeRule{Key: "age", Operator: domain.OpLessThanOrEqual, Value: "33.5"}, false},
		{domain.CustomAttributeRule{Key: "plan", Operator: domain.OpGreaterThan, Value: "10"}, false},
		{domain.CustomAttributeRule{Key: "cohort", Operator: domain.OpIn, Value: "alpha, beta"}, true},
		{domain.CustomAttributeRule{Key: "cohort", Operator: domain.OpNotIn, Value: "alpha,beta"}, false},
		{domain.CustomAttributeRule{Key: "missing", Operator: domain.OpNotEquals, Value: "x"}, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.rule.Operator)+"/"+tc.rule.Key, func(t *testing.T) {
			c := &domain.Campaign{Targeting: domain.Targeting{Custom: domain.CustomCriteria{tc.rule}}}
			got, err := e.evaluate(context.Background(), c, member())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	c := &domain.Campaign{Targeting: domain.Targeting{Custom: domain.CustomCriteria{{Key: "plan", Operator: "matches", Value: "g.*"}}}}
	_, err := e.evaluate(context.Background(), c, member())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetTargetedCampaignsForUser(t *testing.T) {
	users := mocks.NewMockUserStore(t)
	users.EXPECT().FindByID(context.Background(), "u-1").Return(member(), nil).Once()
	e, store := newEvaluator(t, users, nil)

	add := func(priority int, created time.Time, placement domain.Placement, tg domain.Targeting, active bool) int64 {
		c := &domain.Campaign{
			Name:      "c",
			Type:      domain.TypeBanner,
			Placement: placement,
			Priority:  priority,
			CreatedAt: created,
			Targeting: tg,
			Schedule:  domain.Schedule{StartDate: t0.Add(-day), IsActive: active},
		}
		require.NoError(t, store.Create(context.Background(), c))
		return c.ID
	}
	older := add(10, t0.Add(-3*day), domain.PlacementHomeHero, domain.Targeting{}, true)
	newer := add(10, t0.Add(-day), domain.PlacementHomeHero, domain.Targeting{}, true)
	top := add(90, t0.Add(-5*day), domain.PlacementHomeHero, domain.Targeting{Role: &domain.RoleCriteria{UserRoles: []string{"premium"}}}, true)
	add(99, t0, domain.PlacementHomeHero, domain.Targeting{Role: &domain.RoleCriteria{UserRoles: []string{"admin"}}}, true)
	add(99, t0, domain.PlacementHomeHero, domain.Targeting{}, false)
	add(99, t0, domain.PlacementFooter, domain.Targeting{}, true)

	got, err := e.GetTargetedCampaignsForUser(context.Background(), "u-1", domain.PlacementHomeHero, "")
	require.NoError(t, err)
	ids := make([]int64, len(got))
	for i, c := range got {
		ids[i] = c.ID
	}
	assert.Equal(t, []int64{top, newer, older}, ids)

	_, err = e.GetTargetedCampaignsForUser(context.Background(), "u-1", "billboard", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetTargetedCampaignsForPlacementWindowAndType(t *testing.T) {
	e, store := newEvaluator(t, nil, nil)

	add := func(ctype domain.CampaignType, placement domain.Placement, start time.Time, end *time.Time) int64 {
		c := &domain.Campaign{
			Name:      "c",
			Type:      ctype,
			Placement: placement,
			Schedule:  domain.Schedule{StartDate: start, EndDate: end, IsActive: true},
		}
		require.NoError(t, store.Create(context.Background(), c))
		return c.ID
	}
	banner := add(domain.TypeBanner, domain.PlacementSidebar, t0.Add(-day), nil)
	popup := add(domain.TypePopup, domain.PlacementSidebar, t0.Add(-day), ptr(t0.Add(day)))
	add(domain.TypeBanner, domain.PlacementSidebar, t0.Add(-2*day), ptr(t0))
	add(domain.TypeBanner, domain.PlacementSidebar, t0.Add(time.Hour), nil)
	footer := add(domain.TypeBanner, domain.PlacementFooter, t0.Add(-day), nil)

	ids := func(cs []domain.Campaign) []int64 {
		out := make([]int64, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.ID)
		}
		return out
	}

	got, err := e.GetTargetedCampaignsForUser(context.Background(), "", domain.PlacementSidebar, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{banner, popup}, ids(got), "window ended at now and future start are excluded")

	got, err = e.GetTargetedCampaignsForUser(context.Background(), "", domain.PlacementSidebar, domain.TypePopup)
	require.NoError(t, err)
	assert.Equal(t, []int64{popup}, ids(got))

	got, err = e.GetTargetedCampaignsForUser(context.Background(), "", "", domain.TypeBanner)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{banner, footer}, ids(got))
}

func TestUpdateTargeting(t *testing.T) {
	e, store := newEvaluator(t, nil, nil)
	c := targeted(t, store, domain.Targeting{})

	tg := domain.Targeting{
		Timing: &domain.TimingCriteria{DayOfWeek: []string{"friday"}},
		Custom: domain.CustomCriteria{{Key: "plan", Operator: domain.OpIn, Value: "gold,silver"}},
	}
	got, err := e.UpdateTargeting(context.Background(), c.ID, tg)
	require.NoError(t, err)
	assert.Equal(t, tg, got.Targeting)
	assert.Greater(t, got.Version, c.Version)

	_, err = e.UpdateTargeting(context.Background(), c.ID, domain.Targeting{
		Custom: domain.CustomCriteria{{Key: "plan", Operator: "regex", Value: "g"}},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.UpdateTargeting(context.Background(), c.ID, domain.Targeting{
		Timing: &domain.TimingCriteria{DayOfWeek: []string{"funday"}},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.UpdateTargeting(context.Background(), 404, tg)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
