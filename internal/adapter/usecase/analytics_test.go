package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesa-campaigns/internal/adapter/memory"
	"mesa-campaigns/internal/core/domain"
	"mesa-campaigns/internal/core/port/mocks"
)

func TestAnalyticsCounters(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCampaignStore()
	views := mocks.NewMockImpressionLog(t)
	views.EXPECT().RecordView(ctx, int64(1), "u-1", t0).Return(nil).Once()

	a := NewAnalytics(store, views, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.now = func() time.Time { return t0 }

	c := &domain.Campaign{Name: "promo", Type: domain.TypeHero, Placement: domain.PlacementHomeHero}
	require.NoError(t, store.Create(ctx, c))
	require.Equal(t, int64(1), c.ID)

	require.NoError(t, a.TrackImpression(ctx, c.ID, "u-1"))
	for i := 0; i < 3; i++ {
		require.NoError(t, a.TrackImpression(ctx, c.ID, ""))
	}
	require.NoError(t, a.TrackClick(ctx, c.ID, "shop_now"))
	require.NoError(t, a.TrackClick(ctx, c.ID, ""))
	require.NoError(t, a.TrackConversion(ctx, c.ID))

	got, err := a.GetAnalytics(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Impressions)
	assert.Equal(t, int64(2), got.Clicks)
	assert.Equal(t, int64(1), got.Conversions)
	assert.InDelta(t, 50.0, got.CTR, 1e-9)
	assert.InDelta(t, 50.0, got.ConversionRate, 1e-9)
	assert.Equal(t, map[string]int64{"shop_now": 1}, got.CTAClicks)

	assert.ErrorIs(t, a.TrackClick(ctx, 99, ""), domain.ErrNotFound)
	_, err = a.GetAnalytics(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
