package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/cashflow/internal/adapter/repository/postgres"
	"github.com/iho/cashflow/internal/adapter/retry"
	"github.com/iho/cashflow/internal/domain"
	pginfra "github.com/iho/cashflow/internal/infrastructure/postgres"
	"github.com/iho/cashflow/internal/usecase"
)

const migrationsPath = "../../../infrastructure/postgres/migrations"

// newIntegrationPool connects to TEST_DATABASE_URL and migrates it. The test
// is skipped when no database is configured.
func newIntegrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	require.NoError(t, pginfra.RunMigrations(dbURL, migrationsPath, zerolog.Nop()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, dbURL, 10, 1)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func newIntegrationUseCase(t *testing.T, store usecase.EventStore) *usecase.AccountUseCase {
	t.Helper()

	uc, err := usecase.NewAccountUseCase(usecase.AccountUseCaseConfig{
		Store:           store,
		DefaultCurrency: "EUR",
	})
	require.NoError(t, err)
	return uc
}

func TestIntegration_AccountLifecycle(t *testing.T) {
	pool := newIntegrationPool(t)
	ctx := context.Background()

	store := postgres.NewEventStore(pool)
	uc := newIntegrationUseCase(t, store)

	snap, err := uc.OpenAccount(ctx, usecase.OpenAccountInput{OwnerName: "Ana", Currency: "EUR"})
	require.NoError(t, err)

	_, err = uc.Deposit(ctx, snap.ID, domain.MustMoney("100.00", "EUR"))
	require.NoError(t, err)
	_, err = uc.Withdraw(ctx, snap.ID, domain.MustMoney("30.00", "EUR"))
	require.NoError(t, err)

	_, err = uc.Withdraw(ctx, snap.ID, domain.MustMoney("80.00", "EUR"))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	balance, err := uc.GetBalance(ctx, snap.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(domain.MustMoney("70.00", "EUR")), "balance %s", balance)

	recorded, err := store.LoadEvents(ctx, snap.ID)
	require.NoError(t, err)
	require.Len(t, recorded, 3)
	for i, r := range recorded {
		assert.Equal(t, int64(i+1), r.Sequence)
	}

	_, err = store.AppendEvents(ctx, snap.ID, 2, []domain.Event{
		domain.MoneyDeposited{AccountID: snap.ID, Amount: domain.MustMoney("1.00", "EUR"), At: time.Now().UTC()},
	})
	require.ErrorIs(t, err, domain.ErrConcurrentModification)
}

func TestIntegration_ConcurrentDeposits(t *testing.T) {
	pool := newIntegrationPool(t)
	ctx := context.Background()

	uc := newIntegrationUseCase(t, postgres.NewEventStore(pool))
	retrier := retry.NewRetrierWithConfig(retry.Config{
		MaxRetries:      50,
		InitialInterval: time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
		MaxElapsedTime:  30 * time.Second,
	}, zerolog.Nop())

	snap, err := uc.OpenAccount(ctx, usecase.OpenAccountInput{OwnerName: "Ana", Currency: "EUR"})
	require.NoError(t, err)

	const depositors = 20
	var wg sync.WaitGroup
	errs := make(chan error, depositors)

	for range depositors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- retrier.Retry(ctx, func() error {
				_, err := uc.Deposit(ctx, snap.ID, domain.MustMoney("10.00", "EUR"))
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	account, err := uc.GetAccount(ctx, snap.ID)
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(domain.MustMoney("200.00", "EUR")), "balance %s", account.Balance)
	assert.Equal(t, int64(depositors+1), account.Version)
}

func TestIntegration_RowsAreAppendOnly(t *testing.T) {
	pool := newIntegrationPool(t)
	ctx := context.Background()

	uc := newIntegrationUseCase(t, postgres.NewEventStore(pool))
	snap, err := uc.OpenAccount(ctx, usecase.OpenAccountInput{OwnerName: "Ana"})
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `UPDATE account_events SET amount = 999 WHERE account_id = $1`, snap.ID.String())
	require.Error(t, err)

	_, err = pool.Exec(ctx, `DELETE FROM account_events WHERE account_id = $1`, snap.ID.String())
	require.Error(t, err)

	_, err = uc.GetAccount(ctx, snap.ID)
	require.False(t, errors.Is(err, domain.ErrAccountNotFound))
}
