package db

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/epsomandewellharriers/spond_sync/internal/sync"
)

// AdvisoryLock serialises runs with a transaction scoped advisory lock keyed
// by the job name. The lock lives as long as the transaction, so a crashed
// run releases it when its connection drops.
type AdvisoryLock struct {
	db  PgxIface
	job string
}

// NewAdvisoryLock creates an advisory lock for job
func NewAdvisoryLock(db PgxIface, job string) *AdvisoryLock {
	return &AdvisoryLock{db: db, job: job}
}

// TryLock takes the lock without waiting. It returns sync.ErrLockHeld when
// another session holds it.
func (l *AdvisoryLock) TryLock(ctx context.Context) (sync.Unlock, error) {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin lock transaction: %w", err)
	}

	var acquired bool
	if err := tx.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock(hashtext($1))`, l.job).Scan(&acquired); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to take advisory lock: %w", err)
	}
	if !acquired {
		_ = tx.Rollback(ctx)
		return nil, sync.ErrLockHeld
	}

	logrus.WithField("job", l.job).Debug("Advisory lock acquired")
	return func(ctx context.Context) error {
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to release advisory lock: %w", err)
		}
		logrus.WithField("job", l.job).Debug("Advisory lock released")
		return nil
	}, nil
}
