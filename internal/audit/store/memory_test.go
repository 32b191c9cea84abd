package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quantumtrust/internal/audit/models"
	id "quantumtrust/pkg/domain"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) appendEntry(userID id.UserID, action models.Action) *models.Entry {
	e := &models.Entry{
		UserID:       userID,
		Action:       action,
		ResourceType: models.ResourceDID,
		ResourceID:   "1",
		Details:      map[string]string{"did": "did:quantumtrust:x"},
		CreatedAt:    time.Now(),
	}
	s.Require().NoError(s.store.Append(s.ctx, e))
	return e
}

func (s *InMemoryStoreSuite) TestIDsAreMonotonic() {
	a := s.appendEntry(1, models.ActionDIDIssue)
	b := s.appendEntry(1, models.ActionDIDActivate)
	s.Equal(id.AuditEntryID(1), a.ID)
	s.Equal(id.AuditEntryID(2), b.ID)
}

func (s *InMemoryStoreSuite) TestStoredEntriesAreIsolatedFromCallers() {
	e := s.appendEntry(1, models.ActionDIDIssue)
	e.Details["did"] = "tampered"

	got, err := s.store.List(s.ctx, models.Filter{}, 0)
	s.Require().NoError(err)
	s.Equal("did:quantumtrust:x", got[0].Details["did"])

	got[0].Details["did"] = "tampered again"
	again, err := s.store.List(s.ctx, models.Filter{}, 0)
	s.Require().NoError(err)
	s.Equal("did:quantumtrust:x", again[0].Details["did"])
}

func (s *InMemoryStoreSuite) TestListFiltersAndPages() {
	s.appendEntry(1, models.ActionDIDIssue)
	s.appendEntry(2, models.ActionDIDIssue)
	s.appendEntry(1, models.ActionDIDActivate)
	s.appendEntry(1, models.ActionDIDRevoke)

	got, err := s.store.List(s.ctx, models.Filter{UserID: 1}, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(id.AuditEntryID(1), got[0].ID)
	s.Equal(id.AuditEntryID(3), got[1].ID)

	got, err = s.store.List(s.ctx, models.Filter{UserID: 1, AfterID: got[1].ID}, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(models.ActionDIDRevoke, got[0].Action)
}

func (s *InMemoryStoreSuite) TestSnapshotTruncatesArena() {
	s.appendEntry(1, models.ActionDIDIssue)
	restore := s.store.Snapshot()
	s.appendEntry(1, models.ActionDIDActivate)
	s.appendEntry(1, models.ActionDIDRevoke)
	restore()

	s.Equal(1, s.store.Len())
	next := s.appendEntry(1, models.ActionDIDActivate)
	s.Equal(id.AuditEntryID(2), next.ID)
}
