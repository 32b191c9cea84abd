// Package service exposes the identity store contract: account creation,
// lookup and the user -> DID binding. It writes no audit entries; the
// lifecycle coordinator logs on its behalf.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	didmodels "quantumtrust/internal/did/models"
	"quantumtrust/internal/identity/models"
	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
	"quantumtrust/pkg/platform/sentinel"
	"quantumtrust/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateDID(ctx context.Context, userID id.UserID, did string, now time.Time) error
}

// DIDs resolves DID records for binding checks. The registry satisfies it.
type DIDs interface {
	Get(ctx context.Context, recordID id.DIDRecordID) (*didmodels.Record, error)
	GetByDID(ctx context.Context, did string) (*didmodels.Record, error)
}

type Service struct {
	users  Store
	dids   DIDs
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(users Store, dids DIDs, opts ...Option) *Service {
	s := &Service{users: users, dids: dids}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// CreateUser validates and stores a new account.
// Fails with Conflict when the username or email is taken.
func (s *Service) CreateUser(ctx context.Context, params models.NewUserParams) (*models.User, error) {
	user, err := models.NewUser(params, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username or email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to create user")
	}
	return user, nil
}

// GetUser finds a user by id, username or email.
func (s *Service) GetUser(ctx context.Context, lookup models.Lookup) (*models.User, error) {
	if err := lookup.Validate(); err != nil {
		return nil, err
	}

	var (
		user *models.User
		err  error
	)
	switch {
	case !lookup.ID.IsNil():
		user, err = s.users.FindByID(ctx, lookup.ID)
	case lookup.Username != "":
		user, err = s.users.FindByUsername(ctx, lookup.Username)
	default:
		user, err = s.users.FindByEmail(ctx, lookup.Email)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to load user")
	}
	return user, nil
}

// BindDID points the user at the DID record recordID.
//
// Fails with NotFound when either side is missing, and with Conflict when the
// record belongs to someone else or the user is still bound to a different
// DID that is active. Rebinding to the same DID is a no-op.
func (s *Service) BindDID(ctx context.Context, userID id.UserID, recordID id.DIDRecordID) (*models.User, error) {
	now := requestcontext.Now(ctx)

	user, err := s.GetUser(ctx, models.ByID(userID))
	if err != nil {
		return nil, err
	}
	rec, err := s.dids.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, dErrors.New(dErrors.CodeConflict, "did belongs to another user")
	}
	if user.HasDID() && *user.DID == rec.DID {
		return user, nil
	}

	if user.HasDID() {
		current, err := s.dids.GetByDID(ctx, *user.DID)
		switch {
		case err == nil && current.IsActiveAt(now):
			return nil, dErrors.New(dErrors.CodeConflict, "user already has a different active did bound")
		case err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound):
			return nil, err
		}
	}

	if err := s.users.UpdateDID(ctx, userID, rec.DID, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "did is already bound to another user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to bind did")
	}
	user.ApplyDIDBinding(rec.DID, now)
	return user, nil
}
