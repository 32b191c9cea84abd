package lifecycle

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	auditmodels "quantumtrust/internal/audit/models"
	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
)

// SweepResult counts what one sweep did. Skipped candidates were already
// terminal (or no longer due) by the time their transaction ran.
type SweepResult struct {
	Expired int `json:"expired"`
	Skipped int `json:"skipped"`
}

// SweepExpired expires every live DID with expires_at <= now. now selects
// the candidates only; updated_at and audit created_at use the context time.
//
// Each candidate is its own transaction: one CAS to expired plus one did.expire
// entry. Re-running the sweep, or running several at once, never logs a record
// twice because a record that is already terminal is skipped. A store failure
// stops the sweep and returns the counts so far with the error.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (result SweepResult, err error) {
	ctx, end := s.start(ctx, "sweep_expired", attribute.String("now", now.UTC().Format(time.RFC3339)))
	defer func() { end(err) }()

	var cursor id.DIDRecordID
	for {
		due, err := s.registry.ListDue(ctx, now, cursor, s.sweepBatchSize)
		if err != nil {
			return result, err
		}
		for _, recordID := range due {
			changed, err := s.expireOne(ctx, recordID, now)
			switch {
			case err == nil && changed:
				result.Expired++
			case err == nil, dErrors.HasCode(err, dErrors.CodeInvalidState), dErrors.HasCode(err, dErrors.CodeNotFound):
				result.Skipped++
			default:
				return result, err
			}
			cursor = recordID
		}
		if len(due) < s.sweepBatchSize {
			break
		}
	}

	if s.metrics != nil {
		s.metrics.AddSweepSkipped(result.Skipped)
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("expired", result.Expired),
		attribute.Int("skipped", result.Skipped),
	)
	s.logger.InfoContext(ctx, "did sweep finished",
		"event", "did.sweep",
		"expired", result.Expired,
		"skipped", result.Skipped,
	)
	return result, nil
}

func (s *Service) expireOne(ctx context.Context, recordID id.DIDRecordID, now time.Time) (bool, error) {
	var (
		entry   auditmodels.Entry
		changed bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		before, err := s.registry.Get(ctx, recordID)
		if err != nil {
			return err
		}
		rec, ok, err := s.registry.ExpireIfDue(ctx, recordID, now)
		if err != nil || !ok {
			return err
		}
		changed = true
		entry = transitionEntry(ctx, auditmodels.ActionDIDExpire, 0, rec, before.Status)
		_, err = s.ledger.Append(ctx, entry)
		return err
	})
	if err != nil {
		return false, err
	}
	if changed {
		s.committed(ctx, entry, "did", entry.Details[auditmodels.DetailDID])
	}
	return changed, nil
}
