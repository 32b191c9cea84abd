package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quantumtrust/internal/audit/models"
	"quantumtrust/internal/audit/store"
	"quantumtrust/internal/storage"
	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
	"quantumtrust/pkg/requestcontext"
)

type LedgerSuite struct {
	suite.Suite
	store  *store.InMemory
	ledger *Ledger
	ctx    context.Context
	now    time.Time
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.ledger = New(s.store, WithPageSize(3), WithTransactor(storage.NewTransactor(s.store)))
	s.now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *LedgerSuite) seed(n int) {
	for i := 0; i < n; i++ {
		_, err := s.ledger.Append(s.ctx, models.Entry{
			UserID:       id.UserID(i%2 + 1),
			Action:       models.ActionDIDIssue,
			ResourceType: models.ResourceDID,
			ResourceID:   fmt.Sprint(i + 1),
			CreatedAt:    s.now.Add(time.Duration(i) * time.Minute),
		})
		s.Require().NoError(err)
	}
}

func (s *LedgerSuite) TestAppend() {
	entryID, err := s.ledger.Append(s.ctx, models.Entry{Action: models.ActionUserCreate, ResourceType: models.ResourceUser})
	s.Require().NoError(err)
	s.Equal(id.AuditEntryID(1), entryID)

	entries, err := s.ledger.Collect(s.ctx, models.Filter{})
	s.Require().NoError(err)
	s.Equal(s.now, entries[0].CreatedAt, "created_at defaults to request time")

	_, err = s.ledger.Append(s.ctx, models.Entry{ResourceType: models.ResourceUser})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *LedgerSuite) TestQueryPagesInIDOrder() {
	s.seed(10)

	entries, err := s.ledger.Collect(s.ctx, models.Filter{})
	s.Require().NoError(err)
	s.Require().Len(entries, 10)
	for i, e := range entries {
		s.Equal(id.AuditEntryID(i+1), e.ID)
	}
}

func (s *LedgerSuite) TestQueryFiltersAcrossPages() {
	s.seed(10)

	entries, err := s.ledger.Collect(s.ctx, models.Filter{UserID: 2})
	s.Require().NoError(err)
	s.Len(entries, 5)

	from := s.now.Add(2 * time.Minute)
	to := s.now.Add(5 * time.Minute)
	entries, err = s.ledger.Collect(s.ctx, models.Filter{From: &from, To: &to})
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal("3", entries[0].ResourceID)
	s.Equal("5", entries[2].ResourceID)
}

func (s *LedgerSuite) TestQueryIsResumable() {
	s.seed(7)

	var seen []id.AuditEntryID
	for e, err := range s.ledger.Query(s.ctx, models.Filter{}) {
		s.Require().NoError(err)
		seen = append(seen, e.ID)
		if len(seen) == 4 {
			break
		}
	}

	rest, err := s.ledger.Collect(s.ctx, models.Filter{AfterID: seen[len(seen)-1]})
	s.Require().NoError(err)
	s.Len(rest, 3)
	s.Equal(id.AuditEntryID(5), rest[0].ID)
}

func (s *LedgerSuite) TestQueryLimit() {
	s.seed(10)
	entries, err := s.ledger.Collect(s.ctx, models.Filter{Limit: 4})
	s.Require().NoError(err)
	s.Len(entries, 4)
}

func (s *LedgerSuite) TestQueryStoreFailure() {
	l := New(failingStore{}, WithPageSize(2))
	var errs int
	for _, err := range l.Query(s.ctx, models.Filter{}) {
		s.True(dErrors.HasCode(err, dErrors.CodeStoreUnavailable))
		errs++
	}
	s.Equal(1, errs)
}

type failingStore struct{}

func (failingStore) Append(context.Context, *models.Entry) error { return errors.New("down") }
func (failingStore) List(context.Context, models.Filter, int) ([]models.Entry, error) {
	return nil, errors.New("down")
}
