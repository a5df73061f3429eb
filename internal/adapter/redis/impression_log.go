package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"mesa-campaigns/internal/core/domain"
	"mesa-campaigns/internal/core/port"
)

const (
	fieldCount = "count"
	fieldLast  = "last"
)

// ImpressionLog implements port.ImpressionLog with one hash per campaign
// and user holding the view count and the last view time in unix millis.
type ImpressionLog struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewImpressionLog creates a log whose entries expire ttl after the last
// recorded view. A zero ttl keeps entries forever.
func NewImpressionLog(client *goredis.Client, ttl time.Duration) *ImpressionLog {
	return &ImpressionLog{client: client, ttl: ttl}
}

func viewKey(campaignID int64, userID string) string {
	return fmt.Sprintf("views:campaign:%d:user:%s", campaignID, userID)
}

func (l *ImpressionLog) RecordView(ctx context.Context, campaignID int64, userID string, at time.Time) error {
	key := viewKey(campaignID, userID)
	_, err := l.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HIncrBy(ctx, key, fieldCount, 1)
		p.HSet(ctx, key, fieldLast, at.UnixMilli())
		if l.ttl > 0 {
			p.Expire(ctx, key, l.ttl)
		}
		return nil
	})
	if err != nil {
		return domain.StoreFailure("record view "+key, err)
	}
	return nil
}

func (l *ImpressionLog) ViewStats(ctx context.Context, campaignID int64, userID string) (port.ViewStats, error) {
	key := viewKey(campaignID, userID)
	vals, err := l.client.HMGet(ctx, key, fieldCount, fieldLast).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return port.ViewStats{}, domain.StoreFailure("view stats "+key, err)
	}
	var stats port.ViewStats
	if len(vals) != 2 {
		return stats, nil
	}
	if s, ok := vals[0].(string); ok {
		if stats.Count, err = strconv.ParseInt(s, 10, 64); err != nil {
			return port.ViewStats{}, fmt.Errorf("view stats %s: count: %w", key, err)
		}
	}
	if s, ok := vals[1].(string); ok {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return port.ViewStats{}, fmt.Errorf("view stats %s: last: %w", key, err)
		}
		last := time.UnixMilli(ms).UTC()
		stats.LastViewedAt = &last
	}
	return stats, nil
}
