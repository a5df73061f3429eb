// Package worker drives the time-based scheduler passes.
package worker

import (
	"context"
	"log/slog"
	"time"

	"mesa-campaigns/internal/core/port"
)

// Passes is the part of the scheduler the ticker drives.
type Passes interface {
	RunBoundaryChecks(ctx context.Context) (*port.ProcessReport, error)
	ProcessQueue(ctx context.Context) (*port.ProcessReport, error)
}

// Ticker runs boundary checks and then queue processing on a fixed
// interval. Each tick is bounded by timeout; a tick that is still running
// when the next one is due delays it rather than overlapping.
type Ticker struct {
	passes   Passes
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func NewTicker(passes Passes, interval, timeout time.Duration, logger *slog.Logger) *Ticker {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = interval
	}
	return &Ticker{passes: passes, interval: interval, timeout: timeout, logger: logger}
}

// Run ticks until ctx is cancelled. The first tick runs immediately.
func (t *Ticker) Run(ctx context.Context) error {
	t.logger.Info("scheduler ticker started", slog.Duration("interval", t.interval))
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("scheduler ticker stopped")
			return nil
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick performs one bounded pass. Failures are logged and retried on the
// next tick.
func (t *Ticker) Tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	boundaries, err := t.passes.RunBoundaryChecks(ctx)
	t.report("boundaries", boundaries, err)
	if ctx.Err() != nil {
		return
	}
	queue, err := t.passes.ProcessQueue(ctx)
	t.report("queue", queue, err)
}

func (t *Ticker) report(pass string, r *port.ProcessReport, err error) {
	if err != nil {
		t.logger.Error("scheduler pass failed", slog.String("pass", pass), slog.Any("error", err))
	}
	if r == nil || (r.Activated == 0 && r.Deactivated == 0 && r.Deferred == 0 && r.Failed == 0) {
		return
	}
	t.logger.Info("scheduler pass",
		slog.String("pass", pass),
		slog.Int("activated", r.Activated),
		slog.Int("deactivated", r.Deactivated),
		slog.Int("deferred", r.Deferred),
		slog.Int("failed", r.Failed),
	)
}
