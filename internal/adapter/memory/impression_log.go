package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mesa-campaigns/internal/core/port"
)

// ImpressionLog implements port.ImpressionLog in memory.
type ImpressionLog struct {
	mu    sync.Mutex
	views map[string]port.ViewStats
}

func NewImpressionLog() *ImpressionLog {
	return &ImpressionLog{views: make(map[string]port.ViewStats)}
}

func (l *ImpressionLog) RecordView(_ context.Context, campaignID int64, userID string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := viewKey(campaignID, userID)
	v := l.views[k]
	v.Count++
	if v.LastViewedAt == nil || at.After(*v.LastViewedAt) {
		v.LastViewedAt = &at
	}
	l.views[k] = v
	return nil
}

func (l *ImpressionLog) ViewStats(_ context.Context, campaignID int64, userID string) (port.ViewStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.views[viewKey(campaignID, userID)], nil
}

func viewKey(campaignID int64, userID string) string {
	return fmt.Sprintf("%d:%s", campaignID, userID)
}
