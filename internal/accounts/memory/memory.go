// Package memory is an in-process account repository used for development
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"zenbank/internal/core"
)

type Store struct {
	mu     sync.RWMutex
	users  map[string]core.User
	byName map[string]string
}

func New(seed ...core.User) *Store {
	s := &Store{users: make(map[string]core.User), byName: make(map[string]string)}
	for _, u := range seed {
		_ = s.Put(context.Background(), u)
	}
	return s
}

func (s *Store) Get(ctx context.Context, id string) (core.User, error) {
	if err := ctx.Err(); err != nil {
		return core.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *Store) GetByUsername(ctx context.Context, username string) (core.User, error) {
	if err := ctx.Err(); err != nil {
		return core.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[core.UsernameKey(username)]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return s.users[id].Clone(), nil
}

// List returns users ordered by creation time.
func (s *Store) List(ctx context.Context) ([]core.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Username < out[j].Username
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Put(ctx context.Context, u core.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := core.UsernameKey(u.Username)
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.byName[key]; ok && owner != u.ID {
		return core.ErrUsernameTaken
	}
	if prev, ok := s.users[u.ID]; ok {
		delete(s.byName, core.UsernameKey(prev.Username))
	}
	s.users[u.ID] = u.Clone()
	s.byName[key] = u.ID
	return nil
}

// Len reports the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
