// Package ledger is the append-only audit log. Append joins the caller's
// transaction; Query streams entries in id order, one page at a time.
package ledger

import (
	"context"
	"iter"
	"log/slog"

	"quantumtrust/internal/audit/models"
	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
	"quantumtrust/pkg/requestcontext"
)

const defaultPageSize = 200

type Store interface {
	Append(ctx context.Context, entry *models.Entry) error
	List(ctx context.Context, filter models.Filter, limit int) ([]models.Entry, error)
}

// Transactor isolates page reads from concurrent writers.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Ledger struct {
	store    Store
	tx       Transactor
	pageSize int
	logger   *slog.Logger
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithTransactor reads each query page inside its own transaction.
func WithTransactor(tx Transactor) Option {
	return func(l *Ledger) {
		l.tx = tx
	}
}

func WithPageSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{store: store, pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}
	return l
}

// Append records entry and returns its id. CreatedAt defaults to the request time.
func (l *Ledger) Append(ctx context.Context, entry models.Entry) (id.AuditEntryID, error) {
	if err := entry.Validate(); err != nil {
		return 0, err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	if err := l.store.Append(ctx, &entry); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to append audit entry")
	}
	return entry.ID, nil
}

// Query yields entries matching filter in ascending id order. The sequence is
// finite and can be resumed from the last seen id through Filter.AfterID.
// A failed page read yields one error and ends the sequence.
func (l *Ledger) Query(ctx context.Context, filter models.Filter) iter.Seq2[models.Entry, error] {
	return func(yield func(models.Entry, error) bool) {
		if err := filter.Validate(); err != nil {
			yield(models.Entry{}, err)
			return
		}
		remaining := filter.Limit
		page := filter
		for {
			size := l.pageSize
			if remaining > 0 && remaining < size {
				size = remaining
			}
			entries, err := l.fetch(ctx, page, size)
			if err != nil {
				l.logger.ErrorContext(ctx, "audit query failed", "error", err, "after_id", page.AfterID)
				yield(models.Entry{}, err)
				return
			}
			for _, e := range entries {
				if !yield(e, nil) {
					return
				}
				page.AfterID = e.ID
				if remaining > 0 {
					remaining--
					if remaining == 0 {
						return
					}
				}
			}
			if len(entries) < size {
				return
			}
		}
	}
}

// Collect drains Query into a slice.
func (l *Ledger) Collect(ctx context.Context, filter models.Filter) ([]models.Entry, error) {
	var out []models.Entry
	for e, err := range l.Query(ctx, filter) {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *Ledger) fetch(ctx context.Context, filter models.Filter, limit int) ([]models.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "audit query cancelled")
	}
	var entries []models.Entry
	read := func(ctx context.Context) error {
		var err error
		entries, err = l.store.List(ctx, filter, limit)
		return err
	}
	var err error
	if l.tx != nil {
		err = l.tx.RunInTx(ctx, read)
	} else {
		err = read(ctx)
	}
	if err != nil {
		if _, ok := dErrors.From(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to read audit entries")
	}
	return entries, nil
}
