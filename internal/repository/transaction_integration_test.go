//go:build integration

package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ai0585413/bkash/internal/domain"
)

func newTestRepository(t *testing.T) *TransactionRepository {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("bkash"),
		postgres.WithUsername("bkash"),
		postgres.WithPassword("bkash"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	// applying twice is a no-op
	require.NoError(t, RunMigrations(ctx, pool))

	return NewTransactionRepository(pool)
}

func TestTransactionRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	tx := domain.NewTransaction("R1", "42", "bkash", decimal.RequireFromString("100.50"))
	require.NoError(t, repo.Create(ctx, tx))

	t.Run("duplicate reference", func(t *testing.T) {
		dup := domain.NewTransaction("R1", "43", "bkash", decimal.NewFromInt(1))
		require.ErrorIs(t, repo.Create(ctx, dup), domain.ErrDuplicateReference)
	})

	t.Run("find by reference", func(t *testing.T) {
		got, err := repo.FindByReference(ctx, "R1")
		require.NoError(t, err)
		require.Equal(t, tx.ID, got.ID)
		require.Equal(t, domain.StateDraft, got.State)
		require.True(t, got.Amount.Equal(decimal.RequireFromString("100.50")))

		_, err = repo.FindByReference(ctx, "R404")
		require.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("pending attaches the payment id", func(t *testing.T) {
		got, err := repo.Transition(ctx, domain.Transition{Reference: "R1", To: domain.StatePending, PaymentID: "P1"})
		require.NoError(t, err)
		require.Equal(t, domain.StatePending, got.State)
		require.Equal(t, "P1", got.GatewayPaymentID)

		byID, err := repo.FindByPaymentID(ctx, "P1")
		require.NoError(t, err)
		require.Equal(t, "R1", byID.Reference)
	})

	t.Run("terminal write wins once", func(t *testing.T) {
		var (
			wg      sync.WaitGroup
			applied atomic.Int32
		)
		for i := 0; i < 10; i++ {
			to := domain.StateDone
			if i%2 == 1 {
				to = domain.StateError
			}
			wg.Add(1)
			go func(to domain.TransactionState) {
				defer wg.Done()
				if _, err := repo.Transition(ctx, domain.Transition{Reference: "R1", To: to}); err == nil {
					applied.Add(1)
				} else {
					assert.ErrorIs(t, err, domain.ErrStaleTransition)
				}
			}(to)
		}
		wg.Wait()

		require.EqualValues(t, 1, applied.Load())
		got, err := repo.FindByReference(ctx, "R1")
		require.NoError(t, err)
		require.True(t, got.State.IsTerminal())
	})

	t.Run("attach payment id to a settled transaction", func(t *testing.T) {
		settled := domain.NewTransaction("R2", "42", "bkash", decimal.NewFromInt(5))
		require.NoError(t, repo.Create(ctx, settled))
		_, err := repo.Transition(ctx, domain.Transition{Reference: "R2", To: domain.StateCanceled})
		require.NoError(t, err)

		got, err := repo.AttachPaymentID(ctx, "R2", "P2")
		require.NoError(t, err)
		require.Equal(t, domain.StateCanceled, got.State)
		require.Equal(t, "P2", got.GatewayPaymentID)

		_, err = repo.AttachPaymentID(ctx, "R2", "P3")
		require.ErrorIs(t, err, domain.ErrStaleTransition)
		_, err = repo.AttachPaymentID(ctx, "R404", "P4")
		require.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("unknown reference", func(t *testing.T) {
		_, err := repo.Transition(ctx, domain.Transition{Reference: "R404", To: domain.StateDone})
		require.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})
}
