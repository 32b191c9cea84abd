// Package registry owns DID records: issuance, the status state machine and
// lookups. It never writes audit entries and never touches the user binding;
// the lifecycle coordinator composes it with those inside one transaction.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quantumtrust/internal/did/models"
	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
	"quantumtrust/pkg/platform/sentinel"
	"quantumtrust/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, rec *models.Record) error
	FindByID(ctx context.Context, recordID id.DIDRecordID) (*models.Record, error)
	FindByDID(ctx context.Context, did string) (*models.Record, error)
	FindLiveByUser(ctx context.Context, userID id.UserID) (*models.Record, error)
	TransitionStatus(ctx context.Context, recordID id.DIDRecordID, from, to models.Status, now time.Time) (*models.Record, error)
	ListDue(ctx context.Context, now time.Time, afterID id.DIDRecordID, limit int) ([]id.DIDRecordID, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Record, error)
}

// Users answers whether an owning user exists.
type Users interface {
	Exists(ctx context.Context, userID id.UserID) (bool, error)
}

type Registry struct {
	store  Store
	users  Users
	method string
	logger *slog.Logger
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMethod sets the DID method segment used for new identifiers.
func WithMethod(method string) Option {
	return func(r *Registry) {
		if method != "" {
			r.method = method
		}
	}
}

func New(store Store, users Users, opts ...Option) *Registry {
	r := &Registry{store: store, users: users, method: models.DefaultMethod}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Issue creates a pending record for userID.
// Fails with NotFound for an unknown user and Conflict when the user already
// owns a pending or active record.
func (r *Registry) Issue(ctx context.Context, userID id.UserID, publicKey string, expiresAt *time.Time) (*models.Record, error) {
	now := requestcontext.Now(ctx)
	rec, err := models.NewRecord(models.NewDIDString(r.method), userID, publicKey, expiresAt, now)
	if err != nil {
		return nil, err
	}

	exists, err := r.users.Exists(ctx, userID)
	if err != nil {
		return nil, translate(err, "failed to load user")
	}
	if !exists {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}

	if _, err := r.store.FindLiveByUser(ctx, userID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "user already owns a pending or active did")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, translate(err, "failed to load live did")
	}

	// the store re-checks: a concurrent issuance can still lose here
	if err := r.store.Create(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "user already owns a pending or active did")
		}
		return nil, translate(err, "failed to create did")
	}
	return rec, nil
}

// Activate moves a pending record to active.
func (r *Registry) Activate(ctx context.Context, recordID id.DIDRecordID) (*models.Record, error) {
	now := requestcontext.Now(ctx)
	rec, err := r.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := rec.CanActivate(now); err != nil {
		return nil, err
	}
	return r.transition(ctx, rec, models.StatusActive, now)
}

// Revoke moves a pending or active record to revoked.
func (r *Registry) Revoke(ctx context.Context, recordID id.DIDRecordID) (*models.Record, error) {
	now := requestcontext.Now(ctx)
	rec, err := r.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := rec.CanRevoke(now); err != nil {
		return nil, err
	}
	return r.transition(ctx, rec, models.StatusRevoked, now)
}

// ExpireIfDue moves a record that is due at now to expired and reports whether
// it changed. now only decides due-ness; updated_at takes the context time.
// Terminal records are returned unchanged. A record that is live but not yet
// due fails with InvalidState.
func (r *Registry) ExpireIfDue(ctx context.Context, recordID id.DIDRecordID, now time.Time) (*models.Record, bool, error) {
	rec, err := r.Get(ctx, recordID)
	if err != nil {
		return nil, false, err
	}
	if rec.Status.IsTerminal() {
		return rec, false, nil
	}
	if !rec.IsDue(now) {
		return nil, false, dErrors.New(dErrors.CodeInvalidState, "did is not due for expiry")
	}

	updated, err := r.store.TransitionStatus(ctx, rec.ID, rec.Status, models.StatusExpired, requestcontext.Now(ctx))
	if err == nil {
		return updated, true, nil
	}
	if !errors.Is(err, sentinel.ErrInvalidState) {
		return nil, false, translate(err, "failed to expire did")
	}

	// lost a race; if the winner already made it terminal there is nothing to do
	current, err := r.Get(ctx, recordID)
	if err != nil {
		return nil, false, err
	}
	if current.Status.IsTerminal() {
		return current, false, nil
	}
	return nil, false, dErrors.New(dErrors.CodeInvalidState, "did status changed concurrently")
}

func (r *Registry) Get(ctx context.Context, recordID id.DIDRecordID) (*models.Record, error) {
	rec, err := r.store.FindByID(ctx, recordID)
	if err != nil {
		return nil, translate(err, "failed to load did")
	}
	return rec, nil
}

func (r *Registry) GetByDID(ctx context.Context, did string) (*models.Record, error) {
	rec, err := r.store.FindByDID(ctx, did)
	if err != nil {
		return nil, translate(err, "failed to load did")
	}
	return rec, nil
}

// GetActiveForUser returns the user's active record. A record that is past its
// expiry is not active even before a sweep persists the transition.
func (r *Registry) GetActiveForUser(ctx context.Context, userID id.UserID) (*models.Record, error) {
	rec, err := r.store.FindLiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active did for user")
		}
		return nil, translate(err, "failed to load active did")
	}
	if !rec.IsActiveAt(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no active did for user")
	}
	return rec, nil
}

func (r *Registry) ListForUser(ctx context.Context, userID id.UserID) ([]*models.Record, error) {
	recs, err := r.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "failed to list dids")
	}
	return recs, nil
}

// ListDue returns up to limit ids of due records with id > afterID, ascending.
func (r *Registry) ListDue(ctx context.Context, now time.Time, afterID id.DIDRecordID, limit int) ([]id.DIDRecordID, error) {
	due, err := r.store.ListDue(ctx, now, afterID, limit)
	if err != nil {
		return nil, translate(err, "failed to list due dids")
	}
	return due, nil
}

func (r *Registry) transition(ctx context.Context, rec *models.Record, to models.Status, now time.Time) (*models.Record, error) {
	updated, err := r.store.TransitionStatus(ctx, rec.ID, rec.Status, to, now)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			r.logger.WarnContext(ctx, "did status changed concurrently",
				"did_id", rec.ID,
				"expected_status", rec.Status,
				"target_status", to,
			)
			return nil, dErrors.New(dErrors.CodeInvalidState, "did status changed concurrently")
		}
		return nil, translate(err, "failed to update did status")
	}
	return updated, nil
}

// translate maps store sentinels onto coded errors. Errors that are already
// coded pass through; anything else is a store failure.
func translate(err error, msg string) error {
	if _, ok := dErrors.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "did not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, msg)
	}
}
