package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"quantumtrust/internal/did/models"
	id "quantumtrust/pkg/domain"
	"quantumtrust/pkg/platform/sentinel"
)

// InMemory keeps DID records in maps. It takes part in storage.Transactor
// transactions through Snapshot.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.DIDRecordID]models.Record
	byDID   map[string]id.DIDRecordID
	nextID  int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[id.DIDRecordID]models.Record),
		byDID:   make(map[string]id.DIDRecordID),
	}
}

// Snapshot captures every record and the id counter.
func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	records := make(map[id.DIDRecordID]models.Record, len(s.records))
	for k, v := range s.records {
		records[k] = v
	}
	byDID := make(map[string]id.DIDRecordID, len(s.byDID))
	for k, v := range s.byDID {
		byDID[k] = v
	}
	nextID := s.nextID
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.records = records
		s.byDID = byDID
		s.nextID = nextID
	}
}

func (s *InMemory) Create(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byDID[rec.DID]; taken {
		return sentinel.ErrConflict
	}
	for _, existing := range s.records {
		if existing.UserID == rec.UserID && existing.Status.IsLive() {
			return sentinel.ErrConflict
		}
	}

	s.nextID++
	rec.ID = id.DIDRecordID(s.nextID)
	s.records[rec.ID] = *rec
	s.byDID[rec.DID] = rec.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, recordID id.DIDRecordID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

func (s *InMemory) FindByDID(_ context.Context, did string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recordID, ok := s.byDID[did]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec := s.records[recordID]
	return &rec, nil
}

// FindLiveByUser returns the user's pending or active record.
func (s *InMemory) FindLiveByUser(_ context.Context, userID id.UserID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.UserID == userID && rec.Status.IsLive() {
			return &rec, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// TransitionStatus moves the record from -> to only if its current status is from.
func (s *InMemory) TransitionStatus(_ context.Context, recordID id.DIDRecordID, from, to models.Status, now time.Time) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if rec.Status != from {
		return nil, sentinel.ErrInvalidState
	}
	rec.ApplyStatus(to, now)
	s.records[recordID] = rec
	return &rec, nil
}

// ListDue returns ids of live records with expires_at <= now, ascending, after afterID.
func (s *InMemory) ListDue(_ context.Context, now time.Time, afterID id.DIDRecordID, limit int) ([]id.DIDRecordID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []id.DIDRecordID
	for recordID, rec := range s.records {
		if recordID > afterID && rec.IsDue(now) {
			due = append(due, recordID)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i] < due[j] })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// ListByUser returns every record the user ever owned, oldest first.
func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, &rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
