package memory

import (
	"context"
	"sync"

	"wallet/internal/core"
)

// Store keeps user references in a map. Nothing survives the process.
type Store struct {
	mu    sync.Mutex
	users map[string]*core.User
}

func New() *Store {
	return &Store{users: make(map[string]*core.User)}
}

func (s *Store) Exists(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[username]
	return ok, nil
}

func (s *Store) Get(_ context.Context, username string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) Put(_ context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
	return nil
}

func (s *Store) Remove(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
	return nil
}

func (s *Store) SaveSnapshot(_ context.Context, users map[string]*core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]*core.User, len(users))
	for k, v := range users {
		s.users[k] = v
	}
	return nil
}

func (s *Store) LoadSnapshot(_ context.Context) (map[string]*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*core.User, len(s.users))
	for k, v := range s.users {
		out[k] = v
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
