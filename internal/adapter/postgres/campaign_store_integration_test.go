//go:build integration

package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"mesa-campaigns/internal/adapter/memory"
	"mesa-campaigns/internal/adapter/usecase"
	"mesa-campaigns/internal/config/configs"
	"mesa-campaigns/internal/core/domain"
	"mesa-campaigns/internal/db"
)

// Run with: go test -tags integration ./internal/adapter/postgres/...

func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "campaigns",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	addr, err := url.Parse(fmt.Sprintf("postgres://postgres:password@%s:%s/campaigns?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(addr.String()))

	pool, err := db.NewPostgresPool(ctx, configs.Postgres{Addr: *addr, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestCampaignStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewCampaignStore(newPool(t))

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	limit := 3
	c := &domain.Campaign{
		Name:      "spring sale",
		Type:      domain.TypeBanner,
		Placement: domain.PlacementTopBanner,
		Priority:  70,
		Schedule: domain.Schedule{
			StartDate:          start,
			EndDate:            &end,
			Timezone:           "Europe/Berlin",
			IsScheduled:        true,
			ConflictResolution: domain.ResolutionQueue,
			IsRecurring:        true,
			Recurrence:         &domain.RecurrenceDetails{FrequencyUnit: domain.UnitWeekly, IntervalCount: 1, EndAfterOccurrences: &limit},
		},
	}
	require.NoError(t, store.Create(ctx, c))
	require.NotZero(t, c.ID)
	require.NotEmpty(t, c.Reference)

	got, err := store.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "spring sale", got.Name)
	assert.True(t, got.Schedule.StartDate.Equal(start))
	require.NotNil(t, got.Schedule.Recurrence)
	assert.Equal(t, domain.UnitWeekly, got.Schedule.Recurrence.FrequencyUnit)
	assert.Equal(t, 3, *got.Schedule.Recurrence.EndAfterOccurrences)

	status := domain.StatusActive
	sc := got.Schedule
	sc.IsActive = true
	require.NoError(t, store.UpdateFields(ctx, c.ID, domain.CampaignUpdate{Status: &status, Schedule: &sc}))

	updated, err := store.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Version+1, updated.Version)
	assert.True(t, updated.Schedule.IsActive)

	active, err := store.FindByPlacementAndActiveWindow(ctx, domain.PlacementTopBanner, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.ErrorIs(t, store.Delete(ctx, c.ID), domain.ErrCampaignActive)

	missing, err := store.FindByID(ctx, c.ID+1000)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCampaignStoreAnalytics(t *testing.T) {
	ctx := context.Background()
	store := NewCampaignStore(newPool(t))

	c := &domain.Campaign{Name: "promo", Type: domain.TypePopup, Placement: domain.PlacementPopup}
	require.NoError(t, store.Create(ctx, c))

	require.NoError(t, store.IncrementAnalytics(ctx, c.ID, domain.AnalyticsDelta{Impressions: 3}))
	require.NoError(t, store.IncrementAnalytics(ctx, c.ID, domain.AnalyticsDelta{Clicks: 1, CTA: "shop_now"}))
	require.NoError(t, store.IncrementAnalytics(ctx, c.ID, domain.AnalyticsDelta{Clicks: 1, CTA: "shop_now"}))
	require.NoError(t, store.IncrementAnalytics(ctx, c.ID, domain.AnalyticsDelta{Conversions: 1}))

	got, err := store.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Analytics{
		Impressions: 3,
		Clicks:      2,
		Conversions: 1,
		CTAClicks:   map[string]int64{"shop_now": 2},
	}, got.Analytics)
	assert.Equal(t, c.Version, got.Version)

	var nf *domain.NotFoundError
	require.ErrorAs(t, store.IncrementAnalytics(ctx, c.ID+1000, domain.AnalyticsDelta{Impressions: 1}), &nf)

	require.NoError(t, store.Delete(ctx, c.ID))
	require.ErrorAs(t, store.Delete(ctx, c.ID), &nf)
}

func TestQueueManagerOverPostgres(t *testing.T) {
	ctx := context.Background()
	store := NewCampaignStore(newPool(t))
	queue := usecase.NewQueueManager(store, memory.NewLocker(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	tiers := []domain.PriorityTier{domain.TierLow, domain.TierNormal, domain.TierUrgent, domain.TierHigh, domain.TierNormal, domain.TierLow}
	ids := make([]int64, len(tiers))
	for i := range tiers {
		c := &domain.Campaign{Name: "queued", Type: domain.TypeHero, Placement: domain.PlacementHomeHero}
		require.NoError(t, store.Create(ctx, c))
		ids[i] = c.ID
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		i, id := i, id
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := queue.AddToQueue(ctx, id, tiers[i])
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.NoError(t, queue.MoveInQueue(ctx, ids[0], 1))
	require.NoError(t, queue.RemoveFromQueue(ctx, ids[1]))

	queued, err := queue.GetQueuedCampaigns(ctx, domain.PlacementHomeHero)
	require.NoError(t, err)
	require.Len(t, queued, len(ids)-1)
	assert.Equal(t, ids[0], queued[0].ID)
	for i, c := range queued {
		require.NotNil(t, c.Schedule.QueuePosition)
		assert.Equal(t, i+1, *c.Schedule.QueuePosition)
	}
}

func TestUserStoreUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(newPool(t))

	lat, lon := 52.52, 13.405
	u := &domain.User{
		ID:               "user-1",
		Role:             "premium",
		CreatedAt:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Location:         &domain.Location{Country: "DE", City: "Berlin", Latitude: &lat, Longitude: &lon},
		Interests:        []string{"sports"},
		CustomAttributes: map[string]string{"plan": "gold"},
	}
	require.NoError(t, store.Save(ctx, u))
	u.Role = "vip"
	require.NoError(t, store.Save(ctx, u))

	got, err := store.FindByID(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "vip", got.Role)
	require.NotNil(t, got.Location)
	assert.Equal(t, "Berlin", got.Location.City)
	assert.Equal(t, "gold", got.CustomAttributes["plan"])

	missing, err := store.FindByID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
