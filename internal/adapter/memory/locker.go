package memory

import (
	"context"
	"fmt"
	"sync"

	"mesa-campaigns/internal/core/domain"
)

// Locker implements port.PlacementLocker for a single process. Each
// placement owns a one-slot semaphore so that waiting honours ctx.
type Locker struct {
	mu    sync.Mutex
	slots map[domain.Placement]chan struct{}
}

func NewLocker() *Locker {
	return &Locker{slots: make(map[domain.Placement]chan struct{})}
}

func (l *Locker) Lock(ctx context.Context, placement domain.Placement) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[placement]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[placement] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, domain.StoreFailure("lock "+string(placement), fmt.Errorf("waiting for placement lock: %w", ctx.Err()))
	}
}
