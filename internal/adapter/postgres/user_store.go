package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mesa-campaigns/internal/core/domain"
)

// UserStore implements port.UserStore. Identity and verification live in
// columns; behavioural data lives in the profile document.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

type profile struct {
	LoginCount         int64                `json:"login_count"`
	PageViews          int64                `json:"page_views"`
	TimeOnSiteMinutes  float64              `json:"time_on_site_minutes"`
	Interactions       int64                `json:"interactions"`
	TotalSpend         float64              `json:"total_spend"`
	Location           *domain.Location     `json:"location,omitempty"`
	Device             *domain.Device       `json:"device,omitempty"`
	Interests          []string             `json:"interests,omitempty"`
	PurchaseCategories []string             `json:"purchase_categories,omitempty"`
	Browsing           domain.BrowsingStats `json:"browsing"`
	CustomAttributes   map[string]string    `json:"custom_attributes,omitempty"`
}

// FindByID returns the user or nil when it does not exist.
func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var (
		u   domain.User
		raw []byte
	)
	err := s.pool.QueryRow(ctx, `
        SELECT id, role, created_at, last_activity_at, email_verified, phone_verified,
               verified, subscription_status, profile
        FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Role, &u.CreatedAt, &u.LastActivityAt, &u.EmailVerified, &u.PhoneVerified,
			&u.Verified, &u.SubscriptionStatus, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreFailure("find user", err)
	}
	var p profile
	if len(raw) > 0 {
		if err = json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode profile of user %s: %w", id, err)
		}
	}
	u.LoginCount = p.LoginCount
	u.PageViews = p.PageViews
	u.TimeOnSiteMinutes = p.TimeOnSiteMinutes
	u.Interactions = p.Interactions
	u.TotalSpend = p.TotalSpend
	u.Location = p.Location
	u.Device = p.Device
	u.Interests = p.Interests
	u.PurchaseCategories = p.PurchaseCategories
	u.Browsing = p.Browsing
	u.CustomAttributes = p.CustomAttributes
	return &u, nil
}

// Save inserts or replaces the user.
func (s *UserStore) Save(ctx context.Context, u *domain.User) error {
	raw, err := json.Marshal(profile{
		LoginCount:         u.LoginCount,
		PageViews:          u.PageViews,
		TimeOnSiteMinutes:  u.TimeOnSiteMinutes,
		Interactions:       u.Interactions,
		TotalSpend:         u.TotalSpend,
		Location:           u.Location,
		Device:             u.Device,
		Interests:          u.Interests,
		PurchaseCategories: u.PurchaseCategories,
		Browsing:           u.Browsing,
		CustomAttributes:   u.CustomAttributes,
	})
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
        INSERT INTO users (id, role, created_at, last_activity_at, email_verified, phone_verified,
                           verified, subscription_status, profile)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (id) DO UPDATE SET
            role = EXCLUDED.role,
            last_activity_at = EXCLUDED.last_activity_at,
            email_verified = EXCLUDED.email_verified,
            phone_verified = EXCLUDED.phone_verified,
            verified = EXCLUDED.verified,
            subscription_status = EXCLUDED.subscription_status,
            profile = EXCLUDED.profile`,
		u.ID, u.Role, u.CreatedAt, u.LastActivityAt, u.EmailVerified, u.PhoneVerified,
		u.Verified, u.SubscriptionStatus, raw)
	return domain.StoreFailure("save user", err)
}
