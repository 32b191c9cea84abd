// Package storage provides the in-memory transaction boundary used when the
// service runs without PostgreSQL (tests, local development).
//
// Transactions are serialized by one coarse lock. Every participating store
// snapshots its state when a transaction begins; if the transaction function
// fails or panics, the snapshots are restored in reverse order, so no partial
// mutation survives. Reads made outside RunInTx are not isolated from a
// running transaction.
package storage

import (
	"context"
	"sync"

	dErrors "quantumtrust/pkg/domain-errors"
)

// Participant is an in-memory store that can take part in a transaction.
type Participant interface {
	// Snapshot captures the current state and returns a func that restores it.
	Snapshot() (restore func())
}

// Transactor coordinates in-memory transactions across participants.
type Transactor struct {
	mu           sync.Mutex
	participants []Participant
}

type inTxKey struct{}

// NewTransactor builds a Transactor over the given stores.
func NewTransactor(participants ...Participant) *Transactor {
	return &Transactor{participants: participants}
}

// InTx reports whether ctx belongs to a running in-memory transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(inTxKey{}).(*Transactor)
	return ok
}

// RunInTx runs fn atomically with respect to every participant.
// Nested calls join the outer transaction.
func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if InTx(ctx) {
		return fn(ctx)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// check again after acquiring the lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	restores := make([]func(), 0, len(t.participants))
	for _, p := range t.participants {
		restores = append(restores, p.Snapshot())
	}
	rollback := func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
		if err != nil {
			rollback()
		}
	}()

	return fn(context.WithValue(ctx, inTxKey{}, t))
}
