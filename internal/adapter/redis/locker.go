// Package redis implements the placement locker and the impression log on
// top of Redis so that several service instances can share them.
package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"mesa-campaigns/internal/core/domain"
)

var errLockTimeout = errors.New("placement lock wait exceeded")

var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

var extendScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

// Locker implements port.PlacementLocker with SET NX PX and an ownership
// token. While held, the lock is extended every third of its TTL; a holder
// that dies stops extending and releases the placement after TTL.
type Locker struct {
	client *goredis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	logger *slog.Logger
}

// NewLocker creates a locker. wait bounds how long Lock keeps retrying; a
// non-positive ttl defaults to ten seconds.
func NewLocker(client *goredis.Client, ttl, wait time.Duration, logger *slog.Logger) *Locker {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{client: client, ttl: ttl, wait: wait, retry: 25 * time.Millisecond, logger: logger}
}

func lockKey(placement domain.Placement) string {
	return "lock:campaign:placement:" + string(placement)
}

// Lock blocks until the placement lock is held, ctx is done or the wait
// bound passes. The returned func releases the lock if still owned.
func (l *Locker) Lock(ctx context.Context, placement domain.Placement) (func(), error) {
	key := lockKey(placement)
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, domain.StoreFailure("lock "+key, err)
		}
		if ok {
			return l.hold(key, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, domain.StoreFailure("lock "+key, fmt.Errorf("%w: %w", errLockTimeout, ctx.Err()))
		case <-ticker.C:
		}
	}
}

// hold keeps the lock alive until the returned func is called. Calling the
// func more than once is harmless.
func (l *Locker) hold(key, token string) func() {
	var (
		stop = make(chan struct{})
		done = make(chan struct{})
		once sync.Once
	)
	go func() {
		defer close(done)
		ticker := time.NewTicker(l.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !l.extend(key, token) {
					return
				}
			}
		}
	}()
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			l.release(key, token)
		})
	}
}

// extend reports whether the lock is still owned after renewing it.
func (l *Locker) extend(key, token string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, err := extendScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
	if err != nil {
		l.logger.Warn("placement lock renewal failed", slog.String("key", key), slog.Any("error", err))
		return true
	}
	if n == 0 {
		l.logger.Warn("placement lock lost before release", slog.String("key", key))
		return false
	}
	return true
}

func (l *Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.logger.Warn("placement lock release failed", slog.String("key", key), slog.Any("error", err))
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
