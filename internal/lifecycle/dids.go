package lifecycle

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	auditmodels "quantumtrust/internal/audit/models"
	didmodels "quantumtrust/internal/did/models"
	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
	"quantumtrust/pkg/requestcontext"
)

// IssueDID creates a pending DID for userID, binds it to the user and logs
// did.issue. Errors from either step keep their kind and roll everything back.
func (s *Service) IssueDID(ctx context.Context, userID id.UserID, publicKey string, expiresAt *time.Time) (rec *didmodels.Record, err error) {
	ctx, end := s.start(ctx, "issue_did", attribute.Int64("user_id", int64(userID)))
	defer func() { end(err) }()

	actor := requestcontext.UserID(ctx)
	if err := s.knownActor(ctx, actor); err != nil {
		return nil, err
	}
	if actor.IsNil() {
		actor = userID
	}

	var entry auditmodels.Entry
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.registry.Issue(ctx, userID, publicKey, expiresAt)
		if err != nil {
			return err
		}
		if _, err := s.identity.BindDID(ctx, userID, rec.ID); err != nil {
			return err
		}
		entry = newEntry(ctx, auditmodels.ActionDIDIssue, actor, auditmodels.ResourceDID, rec.ID.String(), map[string]string{
			auditmodels.DetailDID:      rec.DID,
			auditmodels.DetailToStatus: string(rec.Status),
		})
		_, err = s.ledger.Append(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, entry, "did", rec.DID)
	return rec, nil
}

// ActivateDID moves the actor's pending DID to active and logs did.activate.
// Fails with Forbidden when the actor does not own it and InvalidState when it
// is not pending (including a pending record that is past its expiry).
func (s *Service) ActivateDID(ctx context.Context, recordID id.DIDRecordID, actor id.UserID) (rec *didmodels.Record, err error) {
	ctx, end := s.start(ctx, "activate_did", attribute.Int64("did_id", int64(recordID)))
	defer func() { end(err) }()

	return s.transition(ctx, recordID, actor, auditmodels.ActionDIDActivate, nil, s.registry.Activate)
}

// RevokeDID moves the actor's pending or active DID to revoked and logs
// did.revoke with the reason.
func (s *Service) RevokeDID(ctx context.Context, recordID id.DIDRecordID, actor id.UserID, reason string) (rec *didmodels.Record, err error) {
	ctx, end := s.start(ctx, "revoke_did", attribute.Int64("did_id", int64(recordID)))
	defer func() { end(err) }()

	details := map[string]string{auditmodels.DetailReason: reason}
	return s.transition(ctx, recordID, actor, auditmodels.ActionDIDRevoke, details, s.registry.Revoke)
}

func (s *Service) transition(
	ctx context.Context,
	recordID id.DIDRecordID,
	actor id.UserID,
	action auditmodels.Action,
	extra map[string]string,
	apply func(context.Context, id.DIDRecordID) (*didmodels.Record, error),
) (*didmodels.Record, error) {
	if actor.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "acting user is required")
	}

	var (
		rec   *didmodels.Record
		entry auditmodels.Entry
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.registry.Get(ctx, recordID)
		if err != nil {
			return err
		}
		// ownership before state: a stranger learns nothing about the status
		if current.UserID != actor {
			return dErrors.New(dErrors.CodeForbidden, "did is owned by another user")
		}
		rec, err = apply(ctx, recordID)
		if err != nil {
			return err
		}
		entry = transitionEntry(ctx, action, actor, rec, current.Status)
		for k, v := range extra {
			entry.Details[k] = v
		}
		_, err = s.ledger.Append(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, entry, "did", rec.DID)
	return rec, nil
}

// ResolveDID loads a record by its DID string. A record found past its expiry
// is expired on the spot and the transition is logged with no actor.
func (s *Service) ResolveDID(ctx context.Context, did string) (rec *didmodels.Record, err error) {
	ctx, end := s.start(ctx, "resolve_did", attribute.String("did", did))
	defer func() { end(err) }()

	now := requestcontext.Now(ctx)
	var (
		entry   auditmodels.Entry
		expired bool
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.registry.GetByDID(ctx, did)
		if err != nil {
			return err
		}
		rec = current
		if !current.IsDue(now) {
			return nil
		}
		updated, changed, err := s.registry.ExpireIfDue(ctx, current.ID, now)
		if err != nil {
			return err
		}
		rec = updated
		if !changed {
			return nil
		}
		expired = true
		entry = transitionEntry(ctx, auditmodels.ActionDIDExpire, 0, updated, current.Status)
		_, err = s.ledger.Append(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired {
		s.committed(ctx, entry, "did", rec.DID)
	}
	return rec, nil
}

// GetDID returns a record by surrogate id without side effects.
func (s *Service) GetDID(ctx context.Context, recordID id.DIDRecordID) (*didmodels.Record, error) {
	return s.registry.Get(ctx, recordID)
}

// ActiveDID returns the user's active DID; NotFound when there is none.
func (s *Service) ActiveDID(ctx context.Context, userID id.UserID) (*didmodels.Record, error) {
	return s.registry.GetActiveForUser(ctx, userID)
}
