package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quantumtrust/internal/did/models"
	id "quantumtrust/pkg/domain"
	"quantumtrust/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newRecord(userID id.UserID, expiresIn time.Duration) *models.Record {
	var exp *time.Time
	if expiresIn > 0 {
		t := s.now.Add(expiresIn)
		exp = &t
	}
	rec, err := models.NewRecord(models.NewDIDString(""), userID, "pk", exp, s.now)
	s.Require().NoError(err)
	return rec
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	rec := s.newRecord(1, 0)
	s.Require().NoError(s.store.Create(s.ctx, rec))
	s.Equal(id.DIDRecordID(1), rec.ID)

	byID, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.DID, byID.DID)

	byDID, err := s.store.FindByDID(s.ctx, rec.DID)
	s.Require().NoError(err)
	s.Equal(rec.ID, byDID.ID)

	live, err := s.store.FindLiveByUser(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(rec.ID, live.ID)

	_, err = s.store.FindByID(s.ctx, 99)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindLiveByUser(s.ctx, 2)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestOneLiveRecordPerUser() {
	first := s.newRecord(1, 0)
	s.Require().NoError(s.store.Create(s.ctx, first))

	s.Run("second live record conflicts", func() {
		s.ErrorIs(s.store.Create(s.ctx, s.newRecord(1, 0)), sentinel.ErrConflict)
	})

	s.Run("terminal records free the slot", func() {
		_, err := s.store.TransitionStatus(s.ctx, first.ID, models.StatusPending, models.StatusRevoked, s.now)
		s.Require().NoError(err)
		s.NoError(s.store.Create(s.ctx, s.newRecord(1, 0)))
	})

	s.Run("duplicate did string conflicts", func() {
		dup := s.newRecord(2, 0)
		dup.DID = first.DID
		s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
	})
}

func (s *InMemoryStoreSuite) TestTransitionStatusIsCompareAndSwap() {
	rec := s.newRecord(1, 0)
	s.Require().NoError(s.store.Create(s.ctx, rec))

	later := s.now.Add(time.Minute)
	updated, err := s.store.TransitionStatus(s.ctx, rec.ID, models.StatusPending, models.StatusActive, later)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, updated.Status)
	s.Equal(later, updated.UpdatedAt)

	_, err = s.store.TransitionStatus(s.ctx, rec.ID, models.StatusPending, models.StatusActive, later)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	_, err = s.store.TransitionStatus(s.ctx, 42, models.StatusPending, models.StatusActive, later)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestListDue() {
	soon := s.newRecord(1, time.Hour)
	later := s.newRecord(2, 48*time.Hour)
	never := s.newRecord(3, 0)
	revoked := s.newRecord(4, time.Hour)
	for _, rec := range []*models.Record{soon, later, never, revoked} {
		s.Require().NoError(s.store.Create(s.ctx, rec))
	}
	_, err := s.store.TransitionStatus(s.ctx, revoked.ID, models.StatusPending, models.StatusRevoked, s.now)
	s.Require().NoError(err)

	due, err := s.store.ListDue(s.ctx, s.now.Add(time.Hour), 0, 10)
	s.Require().NoError(err)
	s.Equal([]id.DIDRecordID{soon.ID}, due)

	due, err = s.store.ListDue(s.ctx, s.now.Add(72*time.Hour), 0, 10)
	s.Require().NoError(err)
	s.Equal([]id.DIDRecordID{soon.ID, later.ID}, due)

	due, err = s.store.ListDue(s.ctx, s.now.Add(72*time.Hour), soon.ID, 10)
	s.Require().NoError(err)
	s.Equal([]id.DIDRecordID{later.ID}, due)

	due, err = s.store.ListDue(s.ctx, s.now.Add(72*time.Hour), 0, 1)
	s.Require().NoError(err)
	s.Len(due, 1)
}

func (s *InMemoryStoreSuite) TestSnapshotRestore() {
	kept := s.newRecord(1, 0)
	s.Require().NoError(s.store.Create(s.ctx, kept))

	restore := s.store.Snapshot()
	_, err := s.store.TransitionStatus(s.ctx, kept.ID, models.StatusPending, models.StatusActive, s.now)
	s.Require().NoError(err)
	discarded := s.newRecord(2, 0)
	s.Require().NoError(s.store.Create(s.ctx, discarded))
	restore()

	rec, err := s.store.FindByID(s.ctx, kept.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, rec.Status)
	_, err = s.store.FindByDID(s.ctx, discarded.DID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
