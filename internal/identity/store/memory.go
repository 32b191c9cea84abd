// Package store persists user accounts.
//
// Stores return sentinel.ErrNotFound for unknown users and sentinel.ErrConflict
// when a username, email or DID binding is already taken.
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"quantumtrust/internal/identity/models"
	id "quantumtrust/pkg/domain"
	"quantumtrust/pkg/platform/sentinel"
)

// InMemory keeps users in a map and takes part in storage.Transactor transactions.
type InMemory struct {
	mu     sync.RWMutex
	users  map[id.UserID]models.User
	nextID int64
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[id.UserID]models.User)}
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	users := make(map[id.UserID]models.User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	nextID := s.nextID
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.users = users
		s.nextID = nextID
	}
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username || strings.EqualFold(existing.Email, user.Email) {
			return sentinel.ErrConflict
		}
	}
	s.nextID++
	user.ID = id.UserID(s.nextID)
	s.users[user.ID] = *user
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &user, nil
}

func (s *InMemory) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return s.findFirst(func(u models.User) bool { return u.Username == username })
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findFirst(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *InMemory) Exists(_ context.Context, userID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok, nil
}

// UpdateDID sets the user's DID reference.
func (s *InMemory) UpdateDID(_ context.Context, userID id.UserID, did string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for otherID, other := range s.users {
		if otherID != userID && other.DID != nil && *other.DID == did {
			return sentinel.ErrConflict
		}
	}
	user.ApplyDIDBinding(did, now)
	s.users[userID] = user
	return nil
}

func (s *InMemory) findFirst(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, sentinel.ErrNotFound
}
