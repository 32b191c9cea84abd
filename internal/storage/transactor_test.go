package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "quantumtrust/pkg/domain-errors"
)

// counterStore is a minimal participant: one integer guarded by a mutex.
type counterStore struct {
	mu sync.Mutex
	n  int
}

func (c *counterStore) Snapshot() func() {
	c.mu.Lock()
	saved := c.n
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.n = saved
		c.mu.Unlock()
	}
}

func (c *counterStore) add(d int) {
	c.mu.Lock()
	c.n += d
	c.mu.Unlock()
}

func (c *counterStore) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type TransactorSuite struct {
	suite.Suite
	a, b *counterStore
	tx   *Transactor
}

func TestTransactorSuite(t *testing.T) {
	suite.Run(t, new(TransactorSuite))
}

func (s *TransactorSuite) SetupTest() {
	s.a = &counterStore{}
	s.b = &counterStore{}
	s.tx = NewTransactor(s.a, s.b)
}

func (s *TransactorSuite) TestCommitAndRollback() {
	ctx := context.Background()

	s.Run("success keeps every mutation", func() {
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			s.True(InTx(ctx))
			s.a.add(1)
			s.b.add(2)
			return nil
		})
		s.Require().NoError(err)
		s.Equal(1, s.a.get())
		s.Equal(2, s.b.get())
	})

	s.Run("error restores every participant", func() {
		boom := errors.New("boom")
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			s.a.add(10)
			s.b.add(10)
			return boom
		})
		s.ErrorIs(err, boom)
		s.Equal(1, s.a.get())
		s.Equal(2, s.b.get())
	})

	s.Run("panic restores and re-panics", func() {
		s.Panics(func() {
			_ = s.tx.RunInTx(ctx, func(ctx context.Context) error {
				s.a.add(100)
				panic("bad")
			})
		})
		s.Equal(1, s.a.get())
	})

	s.Run("nested call joins the outer transaction", func() {
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			s.a.add(5)
			_ = s.tx.RunInTx(ctx, func(ctx context.Context) error {
				s.b.add(5)
				return nil
			})
			return errors.New("outer fails")
		})
		s.Error(err)
		s.Equal(1, s.a.get())
		s.Equal(2, s.b.get())
	})
}

func (s *TransactorSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.tx.RunInTx(ctx, func(context.Context) error {
		called = true
		return nil
	})
	s.False(called)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *TransactorSuite) TestSerializesConcurrentTransactions() {
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.tx.RunInTx(ctx, func(context.Context) error {
				// read-modify-write would lose updates without serialization
				v := s.a.get()
				s.a.mu.Lock()
				s.a.n = v + 1
				s.a.mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	s.Equal(50, s.a.get())
}
