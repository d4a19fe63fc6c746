// Package jsonfile stores every user in a single JSON document.
//
// The whole document is loaded once at Open and rewritten after each change.
// Writes go to a temporary file first and are renamed over the target, so a
// crash mid-write leaves the previous snapshot intact.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"wallet/internal/core"
	"wallet/internal/log"
)

type Store struct {
	mu     sync.Mutex
	path   string
	users  map[string]*core.User
	logger *log.Logger
}

// Open loads the snapshot at path. A missing or empty file is created with an
// empty object; unreadable or corrupt data is logged and treated as empty.
func Open(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{
		path:   path,
		users:  make(map[string]*core.User),
		logger: logger.WithComponent(log.ComponentStorage),
	}
	s.load()
	return s, nil
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.initEmpty("data file not found, creating empty store")
		return
	case err != nil:
		s.logger.Error("Failed to read data file, starting empty",
			log.FieldPath, s.path, log.FieldError, err)
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		s.initEmpty("data file empty, initialising")
		return
	}

	users, err := decode(data)
	if err != nil {
		s.logger.Error("Corrupt data file, resetting to empty store",
			log.FieldPath, s.path, log.FieldError, err)
		s.initEmpty("")
		return
	}
	s.users = users
	s.logger.Info("Loaded users", log.FieldPath, s.path, log.FieldCount, len(users))
}

func (s *Store) initEmpty(msg string) {
	if msg != "" {
		s.logger.Info(msg, log.FieldPath, s.path)
	}
	s.users = make(map[string]*core.User)
	if err := s.flushLocked(); err != nil {
		s.logger.Error("Failed to write empty data file", log.FieldPath, s.path, log.FieldError, err)
	}
}

func decode(data []byte) (map[string]*core.User, error) {
	var raw map[string]*core.User
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	users := make(map[string]*core.User, len(raw))
	for name, u := range raw {
		if u == nil {
			continue
		}
		if u.Username == "" {
			u.Username = name
		}
		if u.Ledger == nil {
			u.Ledger = core.NewLedger()
		}
		users[u.Username] = u
	}
	return users, nil
}

// flushLocked writes the snapshot atomically. Callers hold s.mu.
func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
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
	prev, had := s.users[user.Username]
	s.users[user.Username] = user
	if err := s.flushLocked(); err != nil {
		if had {
			s.users[user.Username] = prev
		} else {
			delete(s.users, user.Username)
		}
		return fmt.Errorf("save user %s: %w", user.Username, err)
	}
	return nil
}

func (s *Store) Remove(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.users[username]
	if !ok {
		return nil
	}
	delete(s.users, username)
	if err := s.flushLocked(); err != nil {
		s.users[username] = prev
		return fmt.Errorf("remove user %s: %w", username, err)
	}
	return nil
}

func (s *Store) SaveSnapshot(_ context.Context, users map[string]*core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.users
	s.users = make(map[string]*core.User, len(users))
	for k, v := range users {
		s.users[k] = v
	}
	if err := s.flushLocked(); err != nil {
		s.users = prev
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot rereads the file, so changes made by another process are seen.
func (s *Store) LoadSnapshot(_ context.Context) (map[string]*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	out := make(map[string]*core.User, len(s.users))
	for k, v := range s.users {
		out[k] = v
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

// Path returns the location of the snapshot file.
func (s *Store) Path() string { return s.path }
