package memory

import (
	"context"
	"sync"

	"mesa-campaigns/internal/core/domain"
)

// UserStore implements port.UserStore over a guarded map.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserStore(users ...domain.User) *UserStore {
	s := &UserStore{users: make(map[string]domain.User, len(users))}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

// Save inserts or replaces a user.
func (s *UserStore) Save(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

func (s *UserStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}
