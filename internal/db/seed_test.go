package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesa-campaigns/internal/adapter/memory"
	"mesa-campaigns/internal/core/domain"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	campaigns := memory.NewCampaignStore()
	users := memory.NewUserStore()

	require.NoError(t, Seed(ctx, campaigns, users, now))

	due, err := campaigns.FindDueForActivation(ctx, now)
	require.NoError(t, err)
	assert.Len(t, due, len(domain.Placements)+1)
	for _, c := range due {
		assert.True(t, c.Placement.Valid())
		assert.True(t, c.Schedule.ConflictResolution.Valid())
	}

	u, err := users.FindByID(ctx, "user-42")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.NotEmpty(t, u.Role)
}
