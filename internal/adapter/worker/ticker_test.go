package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesa-campaigns/internal/core/port"
)

type recorder struct {
	mu       sync.Mutex
	calls    []string
	queueErr error
}

func (r *recorder) record(pass string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, pass)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) RunBoundaryChecks(ctx context.Context) (*port.ProcessReport, error) {
	r.record("boundaries")
	return &port.ProcessReport{Deactivated: 1}, nil
}

func (r *recorder) ProcessQueue(ctx context.Context) (*port.ProcessReport, error) {
	r.record("queue")
	return &port.ProcessReport{}, r.queueErr
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestTickRunsBoundariesBeforeQueue(t *testing.T) {
	rec := &recorder{queueErr: errors.New("boom")}
	NewTicker(rec, time.Minute, 0, discard()).Tick(context.Background())
	NewTicker(rec, time.Minute, 0, discard()).Tick(context.Background())

	assert.Equal(t, []string{"boundaries", "queue", "boundaries", "queue"}, rec.snapshot())
}

func TestTickSkipsQueueWhenCancelled(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewTicker(rec, time.Minute, 0, discard()).Tick(ctx)
	assert.Equal(t, []string{"boundaries"}, rec.snapshot())
}

func TestRunStopsOnCancel(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewTicker(rec, 10*time.Millisecond, 0, discard()).Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 4 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop")
	}
}
