package etcd

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/epsomandewellharriers/spond_sync/internal/sync"
)

// LockKey is the mutex name below the client prefix
const LockKey = "lock"

// TryLock takes the run mutex without waiting. The mutex is bound to a leased
// session, so a crashed holder loses it once the lease expires.
func (c *EtcdClient) TryLock(ctx context.Context) (sync.Unlock, error) {
	session, err := concurrency.NewSession(c.client,
		concurrency.WithTTL(c.leaseTTL),
		concurrency.WithContext(context.WithoutCancel(ctx)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd session: %w", err)
	}

	key := c.key(LockKey)
	mutex := concurrency.NewMutex(session, key)
	if err := mutex.TryLock(ctx); err != nil {
		_ = session.Close()
		if errors.Is(err, concurrency.ErrLocked) {
			return nil, sync.ErrLockHeld
		}
		return nil, fmt.Errorf("failed to take etcd lock %s: %w", key, err)
	}

	logrus.WithField("key", mutex.Key()).Debug("etcd lock acquired")
	return func(ctx context.Context) error {
		defer session.Close()
		if err := mutex.Unlock(ctx); err != nil {
			return fmt.Errorf("failed to release etcd lock %s: %w", key, err)
		}
		logrus.WithField("key", key).Debug("etcd lock released")
		return nil
	}, nil
}
