package etcd

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/epsomandewellharriers/spond_sync/internal/retry"
)

// NewEtcdClientWithRetry connects to etcd, retrying until the lock key under
// the job prefix can be read. Reading that key rather than an arbitrary one
// also proves the credentials grant access to the prefix.
func NewEtcdClientWithRetry(ctx context.Context, dsn string) (*EtcdClient, error) {
	log := logrus.WithField("prefix", GetPrefix(dsn))

	var client *EtcdClient
	err := retry.WithOperation(ctx, retry.EtcdDefaults(), func() error {
		var attemptErr error
		client, attemptErr = NewEtcdClient(dsn)
		if attemptErr != nil {
			return attemptErr
		}
		if _, testErr := client.Get(ctx, LockKey); testErr != nil {
			_ = client.Close()
			return testErr
		}
		return nil
	}, "etcd connect")

	if err != nil {
		log.WithError(err).Error("Failed to establish etcd connection after all retries")
		return nil, err
	}

	log.WithField("endpoints", client.client.Endpoints()).Debug("Connected to etcd")
	return client, nil
}
