package domain

import "time"

// GroupKind names one of the independent targeting predicate groups.
type GroupKind string

const (
	GroupRole       GroupKind = "role"
	GroupBehavior   GroupKind = "behavior"
	GroupAccount    GroupKind = "account"
	GroupGeo        GroupKind = "geo"
	GroupDevice     GroupKind = "device"
	GroupBehavioral GroupKind = "behavioral"
	GroupFrequency  GroupKind = "frequency"
	GroupTiming     GroupKind = "timing"
	GroupCustom     GroupKind = "custom"
)

// Group is a configured targeting predicate group. The set of
// implementations is closed to this package.
type Group interface {
	Kind() GroupKind
	// IsZero reports whether the group constrains nothing.
	IsZero() bool
	group()
}

// Targeting describes who should see a campaign. Every group is optional;
// configured groups are combined with AND semantics.
type Targeting struct {
	Role       *RoleCriteria       `json:"role,omitempty"`
	Behavior   *BehaviorCriteria   `json:"behavior,omitempty"`
	Account    *AccountCriteria    `json:"account,omitempty"`
	Geo        *GeoCriteria        `json:"geo,omitempty"`
	Device     *DeviceCriteria     `json:"device,omitempty"`
	Behavioral *BehavioralCriteria `json:"behavioral,omitempty"`
	Frequency  *FrequencyCriteria  `json:"frequency,omitempty"`
	Timing     *TimingCriteria     `json:"timing,omitempty"`
	Custom     CustomCriteria      `json:"custom,omitempty" validate:"dive"`
}

// Groups returns the configured groups in evaluation order. Groups that are
// present but constrain nothing are left out.
func (t Targeting) Groups() []Group {
	var groups []Group
	add := func(g Group, present bool) {
		if present && !g.IsZero() {
			groups = append(groups, g)
		}
	}
	add(t.Role, t.Role != nil)
	add(t.Behavior, t.Behavior != nil)
	add(t.Account, t.Account != nil)
	add(t.Geo, t.Geo != nil)
	add(t.Device, t.Device != nil)
	add(t.Behavioral, t.Behavioral != nil)
	add(t.Frequency, t.Frequency != nil)
	add(t.Timing, t.Timing != nil)
	add(t.Custom, len(t.Custom) > 0)
	return groups
}

// IsEmpty reports whether no targeting is configured at all.
func (t Targeting) IsEmpty() bool {
	return len(t.Groups()) == 0
}

type RoleCriteria struct {
	UserRoles        []string `json:"user_roles,omitempty"`
	ExcludeUserRoles []string `json:"exclude_user_roles,omitempty"`
	UserRoleGroups   []string `json:"user_role_groups,omitempty" validate:"dive,oneof=visitor standard premium administrative creator business enterprise"`
}

type BehaviorCriteria struct {
	NewUsers            bool     `json:"new_users,omitempty"`
	ReturningUsers      bool     `json:"returning_users,omitempty"`
	UserActivityLevel   []string `json:"user_activity_level,omitempty" validate:"dive,oneof=active moderate inactive dormant"`
	UserEngagementScore []string `json:"user_engagement_score,omitempty" validate:"dive,oneof=low medium high premium"`
	UserLifetimeValue   []string `json:"user_lifetime_value,omitempty" validate:"dive,oneof=low medium high premium"`
}

type AccountCriteria struct {
	AccountAge                []string `json:"account_age,omitempty" validate:"dive,oneof=new young established veteran"`
	SubscriptionStatus        []string `json:"subscription_status,omitempty"`
	AccountVerificationStatus []string `json:"account_verification_status,omitempty" validate:"dive,oneof=fully_verified phone_verified email_verified unverified"`
	VerifiedUsers             *bool    `json:"verified_users,omitempty"`
}

type GeoCriteria struct {
	Countries   []string      `json:"countries,omitempty"`
	Cities      []string      `json:"cities,omitempty"`
	Regions     []string      `json:"regions,omitempty"`
	PostalCodes []string      `json:"postal_codes,omitempty"`
	Radius      *RadiusTarget `json:"radius,omitempty"`
}

// RadiusTarget matches users within Kilometers of a point.
type RadiusTarget struct {
	Latitude   float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude  float64 `json:"longitude" validate:"min=-180,max=180"`
	Kilometers float64 `json:"kilometers" validate:"gt=0"`
}

type DeviceCriteria struct {
	DeviceTypes       []string `json:"device_types,omitempty"`
	Browsers          []string `json:"browsers,omitempty"`
	OperatingSystems  []string `json:"operating_systems,omitempty"`
	ScreenResolutions []string `json:"screen_resolutions,omitempty"`
}

type BehavioralCriteria struct {
	UserInterests    []string `json:"user_interests,omitempty"`
	PurchaseHistory  []string `json:"purchase_history,omitempty"`
	BrowsingBehavior []string `json:"browsing_behavior,omitempty" validate:"dive,oneof=power_user cart_abandoner frequent_visitor window_shopper casual_browser"`
	LastActivity     []string `json:"last_activity,omitempty" validate:"dive,oneof=recent moderate inactive"`
}

type FrequencyCriteria struct {
	MaxFrequency        int           `json:"max_frequency,omitempty" validate:"min=0"`
	MinTimeBetweenViews time.Duration `json:"min_time_between_views,omitempty" validate:"min=0"`
}

type TimingCriteria struct {
	TimeOfDay []string `json:"time_of_day,omitempty" validate:"dive,oneof=morning afternoon evening night"`
	DayOfWeek []string `json:"day_of_week,omitempty" validate:"dive,oneof=monday tuesday wednesday thursday friday saturday sunday"`
}

// CustomCriteria is a list of attribute rules that must all hold.
type CustomCriteria []CustomAttributeRule

// Operator compares a user attribute with a rule value.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "not_contains"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpIn                 Operator = "in"
	OpNotIn              Operator = "not_in"
)

type CustomAttributeRule struct {
	Key      string   `json:"key" validate:"required"`
	Operator Operator `json:"operator" validate:"required,oneof=equals not_equals contains not_contains greater_than less_than greater_than_or_equal less_than_or_equal in not_in"`
	Value    string   `json:"value"`
}

func (*RoleCriteria) Kind() GroupKind       { return GroupRole }
func (*BehaviorCriteria) Kind() GroupKind   { return GroupBehavior }
func (*AccountCriteria) Kind() GroupKind    { return GroupAccount }
func (*GeoCriteria) Kind() GroupKind        { return GroupGeo }
func (*DeviceCriteria) Kind() GroupKind     { return GroupDevice }
func (*BehavioralCriteria) Kind() GroupKind { return GroupBehavioral }
func (*FrequencyCriteria) Kind() GroupKind  { return GroupFrequency }
func (*TimingCriteria) Kind() GroupKind     { return GroupTiming }
func (CustomCriteria) Kind() GroupKind      { return GroupCustom }

func (*RoleCriteria) group()       {}
func (*BehaviorCriteria) group()   {}
func (*AccountCriteria) group()    {}
func (*GeoCriteria) group()        {}
func (*DeviceCriteria) group()     {}
func (*BehavioralCriteria) group() {}
func (*FrequencyCriteria) group()  {}
func (*TimingCriteria) group()     {}
func (CustomCriteria) group()      {}

func (g *RoleCriteria) IsZero() bool {
	return len(g.UserRoles) == 0 && len(g.ExcludeUserRoles) == 0 && len(g.UserRoleGroups) == 0
}

// IsZero treats NewUsers and ReturningUsers set together as no filter.
func (g *BehaviorCriteria) IsZero() bool {
	return g.NewUsers == g.ReturningUsers &&
		len(g.UserActivityLevel) == 0 && len(g.UserEngagementScore) == 0 && len(g.UserLifetimeValue) == 0
}

func (g *AccountCriteria) IsZero() bool {
	return len(g.AccountAge) == 0 && len(g.SubscriptionStatus) == 0 &&
		len(g.AccountVerificationStatus) == 0 && g.VerifiedUsers == nil
}

func (g *GeoCriteria) IsZero() bool {
	return len(g.Countries) == 0 && len(g.Cities) == 0 && len(g.Regions) == 0 &&
		len(g.PostalCodes) == 0 && g.Radius == nil
}

func (g *DeviceCriteria) IsZero() bool {
	return len(g.DeviceTypes) == 0 && len(g.Browsers) == 0 &&
		len(g.OperatingSystems) == 0 && len(g.ScreenResolutions) == 0
}

func (g *BehavioralCriteria) IsZero() bool {
	return len(g.UserInterests) == 0 && len(g.PurchaseHistory) == 0 &&
		len(g.BrowsingBehavior) == 0 && len(g.LastActivity) == 0
}

func (g *FrequencyCriteria) IsZero() bool {
	return g.MaxFrequency <= 0 && g.MinTimeBetweenViews <= 0
}

func (g *TimingCriteria) IsZero() bool {
	return len(g.TimeOfDay) == 0 && len(g.DayOfWeek) == 0
}

func (c CustomCriteria) IsZero() bool { return len(c) == 0 }
