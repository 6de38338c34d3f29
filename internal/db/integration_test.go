package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/epsomandewellharriers/spond_sync/internal/sync"
)

func setupPostgreSQLContainer(ctx context.Context, t *testing.T) (PgxPoolIface, func()) {
	pgContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewWithRetry(ctx, pgConnStr, "integration")
	require.NoError(t, err)

	var appName string
	require.NoError(t, pool.QueryRow(ctx, "SELECT current_setting('application_name')").Scan(&appName))
	assert.Equal(t, "spond_sync:integration", appName)

	return pool, func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}
}

func TestPostgresRunState(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	pool, cleanup := setupPostgreSQLContainer(ctx, t)
	defer cleanup()

	require.NoError(t, Migrate(ctx, pool))
	require.NoError(t, Migrate(ctx, pool), "migrations must be re-runnable")

	store := NewStateStore(pool, "spond_sync")
	state, err := store.LastRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, state)

	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ok := sync.Summary{
		RunID:    "5f0c6c1e-7d1c-4c55-9a4e-3c3c1f0e9b1a",
		Started:  started,
		Finished: started.Add(2 * time.Second),
		Inserted: 3,
	}
	require.NoError(t, store.ObserveRun(ctx, ok, nil))

	failed := sync.Summary{
		RunID:    "0b7e2a55-2c1e-4d5f-8f43-0d7d1b8d6a10",
		Started:  started.Add(time.Hour),
		Finished: started.Add(time.Hour + time.Second),
	}
	require.NoError(t, store.ObserveRun(ctx, failed, errors.New("source unavailable")))

	state, err = store.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, failed.RunID, state.RunID)
	assert.Zero(t, state.Inserted)
	require.NotNil(t, state.Error)
	assert.Equal(t, "source unavailable", *state.Error)
	require.NotNil(t, state.LastSuccess)
	assert.True(t, state.LastSuccess.Equal(started), "last success survives a failed run")
}

func TestPostgresAdvisoryLock(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	pool, cleanup := setupPostgreSQLContainer(ctx, t)
	defer cleanup()

	first := NewAdvisoryLock(pool, "spond_sync")
	second := NewAdvisoryLock(pool, "spond_sync")

	unlock, err := first.TryLock(ctx)
	require.NoError(t, err)

	_, err = second.TryLock(ctx)
	require.ErrorIs(t, err, sync.ErrLockHeld)

	other, err := NewAdvisoryLock(pool, "other_job").TryLock(ctx)
	require.NoError(t, err, "locks are per job")
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	again, err := second.TryLock(ctx)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}
