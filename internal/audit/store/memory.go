// Package store persists audit ledger entries. Neither implementation offers
// update or delete.
package store

import (
	"context"
	"maps"
	"sync"

	"quantumtrust/internal/audit/models"
	id "quantumtrust/pkg/domain"
)

// InMemory is an arena of entries where entry N lives at index N-1.
// Rolling back a transaction truncates the arena to its earlier length.
type InMemory struct {
	mu      sync.RWMutex
	entries []models.Entry
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	n := len(s.entries)
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		clear(s.entries[n:])
		s.entries = s.entries[:n]
	}
}

func (s *InMemory) Append(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = id.AuditEntryID(len(s.entries) + 1)
	stored := *entry
	stored.Details = maps.Clone(entry.Details)
	s.entries = append(s.entries, stored)
	return nil
}

// List returns up to limit matching entries with id > filter.AfterID, ascending.
func (s *InMemory) List(_ context.Context, filter models.Filter, limit int) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := int(filter.AfterID)
	if start < 0 {
		start = 0
	}
	var out []models.Entry
	for i := start; i < len(s.entries); i++ {
		e := s.entries[i]
		if !filter.Matches(e) {
			continue
		}
		e.Details = maps.Clone(e.Details)
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of entries in the arena.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
