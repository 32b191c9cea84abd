package httptransport

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	auditmodels "quantumtrust/internal/audit/models"
	didmodels "quantumtrust/internal/did/models"
	idmodels "quantumtrust/internal/identity/models"
	"quantumtrust/internal/lifecycle"
	"quantumtrust/internal/platform/metrics"
	"quantumtrust/internal/transport/http/mocks"
	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
	"quantumtrust/pkg/testutil"
)

//go:generate mockgen -source=handlers_users.go -destination=mocks/users-mocks.go -package=mocks UserService
//go:generate mockgen -source=handlers_dids.go -destination=mocks/dids-mocks.go -package=mocks DIDService
//go:generate mockgen -source=handlers_audit.go -destination=mocks/audit-mocks.go -package=mocks AuditQuerier

const (
	adminID   id.UserID = 1
	aliceID   id.UserID = 7
	auditorID id.UserID = 9
)

type HandlerSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	users  *mocks.MockUserService
	dids   *mocks.MockDIDService
	audit  *mocks.MockAuditQuerier
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.users = mocks.NewMockUserService(s.ctrl)
	s.dids = mocks.NewMockDIDService(s.ctrl)
	s.audit = mocks.NewMockAuditQuerier(s.ctrl)
	reg := prometheus.NewRegistry()
	s.router = NewRouter(Config{
		APIPrefix: "/api/v1",
		Users:     s.users,
		DIDs:      s.dids,
		Audit:     s.audit,
		Metrics:   metrics.New(reg),
		Gatherer:  reg,
	})
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) expectRole(userID id.UserID, role idmodels.Role) {
	s.users.EXPECT().GetUser(gomock.Any(), idmodels.ByID(userID)).
		Return(&idmodels.User{ID: userID, Role: role}, nil)
}

func pendingRecord() *didmodels.Record {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &didmodels.Record{
		ID:        10,
		DID:       "did:quantumtrust:6f1c2a8e-7d3b-4b9a-9a51-0c1e2f3a4b5c",
		UserID:    aliceID,
		PublicKey: "pk_abc",
		Status:    didmodels.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *HandlerSuite) TestCreateUser() {
	s.Run("registers a plain user without an actor", func() {
		s.users.EXPECT().RegisterUser(gomock.Any(), lifecycle.RegisterUserRequest{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "correct horse",
			Role:     idmodels.RoleUser,
		}).Return(&idmodels.User{ID: aliceID, Username: "alice", Email: "alice@example.com", Role: idmodels.RoleUser, PasswordHash: "$2a$secret"}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/users", map[string]any{
			"username": "alice",
			"email":    "alice@example.com",
			"password": "correct horse",
		}))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		s.NotContains(rr.Body.String(), "secret")
		got := testutil.UnmarshalResponse[UserResponse](s.T(), rr)
		s.Equal(aliceID, got.ID)
		s.Equal("user", got.Role)
	})

	s.Run("missing password is a validation error", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/users", map[string]any{
			"username": "alice",
			"email":    "alice@example.com",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("unknown fields are rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/v1/users",
			`{"username":"a","email":"a@example.com","password":"x","is_admin":true}`))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("admin accounts need an admin actor", func() {
		s.expectRole(aliceID, idmodels.RoleUser)
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/users", map[string]any{
			"username": "root2",
			"email":    "root2@example.com",
			"password": "correct horse",
			"role":     "admin",
		})
		rr := testutil.DoRequest(s.router, testutil.WithActor(req, aliceID))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden))
	})

	s.Run("duplicate username maps to conflict", func() {
		s.users.EXPECT().RegisterUser(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "username already taken"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/users", map[string]any{
			"username": "alice",
			"email":    "alice@example.com",
			"password": "correct horse",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict))
	})
}

func (s *HandlerSuite) TestGetUser() {
	s.Run("self read", func() {
		s.users.EXPECT().GetUser(gomock.Any(), idmodels.ByID(aliceID)).
			Return(&idmodels.User{ID: aliceID, Username: "alice", Role: idmodels.RoleUser}, nil)
		req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/users/7"), aliceID)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("other user's account is forbidden for plain users", func() {
		s.expectRole(aliceID, idmodels.RoleUser)
		req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/users/8"), aliceID)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden))
	})

	s.Run("anonymous read is unauthorized", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/users/7"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	s.Run("malformed id", func() {
		req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/users/abc"), aliceID)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})
}

func (s *HandlerSuite) TestIssueDID() {
	s.Run("issues for the acting user", func() {
		rec := pendingRecord()
		s.dids.EXPECT().IssueDID(gomock.Any(), aliceID, "pk_abc", (*time.Time)(nil)).Return(rec, nil)

		req := testutil.WithActor(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/dids", map[string]any{
			"public_key": "pk_abc",
		}), aliceID)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		got := testutil.UnmarshalResponse[DIDResponse](s.T(), rr)
		s.Equal(rec.DID, got.DID)
		s.Equal("pending", got.Status)
	})

	s.Run("requires an actor", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/dids", map[string]any{
			"public_key": "pk_abc",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	s.Run("empty key is rejected before the service", func() {
		req := testutil.WithActor(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/dids", map[string]any{
			"public_key": "  ",
		}), aliceID)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("live record conflict", func() {
		s.dids.EXPECT().IssueDID(gomock.Any(), aliceID, "pk_new", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "user already holds a live did"))
		req := testutil.WithActor(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/dids", map[string]any{
			"public_key": "pk_new",
		}), aliceID)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict))
	})
}

func (s *HandlerSuite) TestTransitions() {
	s.Run("activate passes the actor", func() {
		rec := pendingRecord()
		rec.Status = didmodels.StatusActive
		s.dids.EXPECT().ActivateDID(gomock.Any(), id.DIDRecordID(10), aliceID).Return(rec, nil)

		req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodPost, "/api/v1/dids/10/activate"), aliceID)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "status", "active")
	})

	s.Run("activate by a non-owner is forbidden", func() {
		s.dids.EXPECT().ActivateDID(gomock.Any(), id.DIDRecordID(10), id.UserID(8)).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "did belongs to another user"))
		req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodPost, "/api/v1/dids/10/activate"), 8)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden))
	})

	s.Run("activate of a terminal record is invalid state", func() {
		s.dids.EXPECT().ActivateDID(gomock.Any(), id.DIDRecordID(10), aliceID).
			Return(nil, dErrors.New(dErrors.CodeInvalidState, "did is revoked"))
		req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodPost, "/api/v1/dids/10/activate"), aliceID)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeInvalidState))
	})

	s.Run("revoke with a reason", func() {
		rec := pendingRecord()
		rec.Status = didmodels.StatusRevoked
		s.dids.EXPECT().RevokeDID(gomock.Any(), id.DIDRecordID(10), aliceID, "key compromised").Return(rec, nil)

		req := testutil.WithActor(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/dids/10/revoke", map[string]any{
			"reason": "key compromised",
		}), aliceID)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("revoke without a body", func() {
		rec := pendingRecord()
		rec.Status = didmodels.StatusRevoked
		s.dids.EXPECT().RevokeDID(gomock.Any(), id.DIDRecordID(10), aliceID, "").Return(rec, nil)

		req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodPost, "/api/v1/dids/10/revoke"), aliceID)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("store outage hides details", func() {
		s.dids.EXPECT().RevokeDID(gomock.Any(), id.DIDRecordID(10), aliceID, "").
			Return(nil, dErrors.New(dErrors.CodeStoreUnavailable, "dial tcp 10.0.0.5:5432: refused"))
		req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodPost, "/api/v1/dids/10/revoke"), aliceID)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
		s.NotContains(rr.Body.String(), "10.0.0.5")
	})
}

func (s *HandlerSuite) TestResolveDID() {
	rec := pendingRecord()
	s.dids.EXPECT().ResolveDID(gomock.Any(), rec.DID).Return(rec, nil)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/dids/resolve/"+url.PathEscape(rec.DID)))

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "did", rec.DID)
}

func (s *HandlerSuite) TestSweepRequiresAdmin() {
	s.Run("plain user is forbidden", func() {
		s.expectRole(aliceID, idmodels.RoleUser)
		req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodPost, "/api/v1/admin/dids/sweep"), aliceID)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden))
	})

	s.Run("admin sweeps at the given time", func() {
		at := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		s.expectRole(adminID, idmodels.RoleAdmin)
		s.dids.EXPECT().SweepExpired(gomock.Any(), at).Return(lifecycle.SweepResult{Expired: 2, Skipped: 1}, nil)

		req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodPost, "/api/v1/admin/dids/sweep?now=2026-03-02T00:00:00Z"), adminID)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		got := testutil.UnmarshalResponse[lifecycle.SweepResult](s.T(), rr)
		s.Equal(lifecycle.SweepResult{Expired: 2, Skipped: 1}, *got)
	})
}

func (s *HandlerSuite) TestAuditQuery() {
	s.Run("auditor reads a filtered page", func() {
		s.expectRole(auditorID, idmodels.RoleAuditor)
		s.audit.EXPECT().Collect(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, f auditmodels.Filter) ([]auditmodels.Entry, error) {
				s.Equal(aliceID, f.UserID)
				s.Equal(auditmodels.ResourceDID, f.ResourceType)
				s.Equal(id.AuditEntryID(5), f.AfterID)
				s.Equal(2, f.Limit)
				return []auditmodels.Entry{
					{ID: 6, UserID: aliceID, Action: auditmodels.ActionDIDIssue, ResourceType: "did"},
					{ID: 8, UserID: aliceID, Action: auditmodels.ActionDIDActivate, ResourceType: "did"},
				}, nil
			})

		req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodGet,
			"/api/v1/audit?user_id=7&resource_type=did&after=5&limit=2"), auditorID)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		page := testutil.UnmarshalResponse[AuditPageResponse](s.T(), rr)
		s.Len(page.Entries, 2)
		s.Require().NotNil(page.NextAfter)
		s.Equal(id.AuditEntryID(8), *page.NextAfter)
	})

	s.Run("plain users cannot read the ledger", func() {
		s.expectRole(aliceID, idmodels.RoleUser)
		req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/audit"), aliceID)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden))
	})

	s.Run("bad time bound", func() {
		s.expectRole(adminID, idmodels.RoleAdmin)
		req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/audit?from=yesterday"), adminID)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})
}

func (s *HandlerSuite) TestHealthAndMetrics() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/health"))
	testutil.AssertStatusOK(s.T(), rr)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(s.T(), rr)
	s.Contains(rr.Body.String(), "quantumtrust_http_requests_total")
}

func TestParseAuditFilter(t *testing.T) {
	q := url.Values{}
	q.Set("limit", "5000")
	q.Add("action", "did.issue")
	q.Add("action", "did.revoke")
	q.Set("from", "2026-03-01T00:00:00Z")
	q.Set("to", "2026-03-02T00:00:00Z")

	f, err := parseAuditFilter(q)

	assert.NoError(t, err)
	assert.Equal(t, maxAuditLimit, f.Limit)
	assert.Equal(t, []auditmodels.Action{auditmodels.ActionDIDIssue, auditmodels.ActionDIDRevoke}, f.Actions)
	assert.True(t, f.From.Before(*f.To))

	q.Set("from", "2026-03-03T00:00:00Z")
	_, err = parseAuditFilter(q)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
