package usecase

import (
	"context"

	"mesa-campaigns/internal/core/domain"
	"mesa-campaigns/internal/core/port"
)

// loadCampaign returns the campaign or a NotFoundError.
func loadCampaign(ctx context.Context, store port.CampaignStore, id int64) (*domain.Campaign, error) {
	c, err := store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.CampaignNotFound(id)
	}
	return c, nil
}

// lockCampaign acquires the lock of the campaign's placement and returns a
// copy of the campaign read while holding it. The caller must call unlock.
func lockCampaign(ctx context.Context, store port.CampaignStore, locker port.PlacementLocker, id int64) (*domain.Campaign, func(), error) {
	c, err := loadCampaign(ctx, store, id)
	if err != nil {
		return nil, nil, err
	}
	unlock, err := locker.Lock(ctx, c.Placement)
	if err != nil {
		return nil, nil, err
	}
	c, err = loadCampaign(ctx, store, id)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return c, unlock, nil
}
