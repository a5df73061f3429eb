package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mesa-campaigns/internal/adapter/memory"
	"mesa-campaigns/internal/core/domain"
	"mesa-campaigns/internal/core/port"
)

// t0 is a Monday morning.
var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

type fixture struct {
	store *memory.CampaignStore
	queue *QueueManager
	sched *Scheduler
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewCampaignStore()
	f := &fixture{store: store, clock: t0}
	f.queue = NewQueueManager(store, memory.NewLocker(), logger)
	f.sched = NewScheduler(f.queue, logger)
	f.sched.now = func() time.Time { return f.clock }
	return f
}

// create inserts a draft campaign.
func (f *fixture) create(t *testing.T, placement domain.Placement) *domain.Campaign {
	t.Helper()
	c := &domain.Campaign{Name: "campaign", Type: domain.TypeBanner, Placement: placement, Priority: 50}
	require.NoError(t, f.store.Create(context.Background(), c))
	return c
}

// scheduled inserts a campaign and schedules it through the scheduler.
func (f *fixture) scheduled(t *testing.T, placement domain.Placement, start time.Time, end *time.Time, policy domain.ConflictResolution) *domain.Campaign {
	t.Helper()
	c := f.create(t, placement)
	got, err := f.sched.ScheduleCampaign(context.Background(), c.ID, port.ScheduleRequest{
		StartDate:          &start,
		EndDate:            end,
		ConflictResolution: policy,
	})
	require.NoError(t, err)
	return got
}

// active inserts a campaign and activates it.
func (f *fixture) active(t *testing.T, placement domain.Placement, start time.Time, end *time.Time) *domain.Campaign {
	t.Helper()
	c := f.scheduled(t, placement, start, end, domain.ResolutionOverlap)
	res, err := f.sched.AutoActivateCampaign(context.Background(), c.ID)
	require.NoError(t, err)
	require.True(t, res.Activated())
	return f.get(t, c.ID)
}

func (f *fixture) get(t *testing.T, id int64) *domain.Campaign {
	t.Helper()
	c, err := f.store.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

// queueOrder returns campaign ids in queue order and checks that the
// positions are exactly 1..N.
func (f *fixture) queueOrder(t *testing.T, placement domain.Placement) []int64 {
	t.Helper()
	queued, err := f.store.FindQueued(context.Background(), placement)
	require.NoError(t, err)
	ids := make([]int64, len(queued))
	for i, c := range queued {
		require.NotNil(t, c.Schedule.QueuePosition, "campaign %d", c.ID)
		require.Equal(t, i+1, *c.Schedule.QueuePosition, "campaign %d", c.ID)
		require.False(t, c.Schedule.IsActive)
		ids[i] = c.ID
	}
	return ids
}

func ptr[T any](v T) *T { return &v }
