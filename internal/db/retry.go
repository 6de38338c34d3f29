package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/epsomandewellharriers/spond_sync/internal/retry"
)

// JobApplicationName is the application_name reported for job, so concurrent
// jobs sharing a server can be told apart in pg_stat_activity.
func JobApplicationName(job string) string {
	if job == "" || job == ApplicationName {
		return ApplicationName
	}
	return ApplicationName + ":" + job
}

// WithJob tags every connection of the pool with the job name
func WithJob(job string) ConnConfigCallback {
	return func(c *pgxpool.Config) error {
		c.ConnConfig.RuntimeParams["application_name"] = JobApplicationName(job)
		return nil
	}
}

// NewWithRetry connects the pool for job, retrying until the server answers a ping
func NewWithRetry(ctx context.Context, connStr, job string, callbacks ...ConnConfigCallback) (PgxPoolIface, error) {
	log := logrus.WithFields(logrus.Fields{
		"application_name": JobApplicationName(job),
		"job":              job,
	})
	callbacks = append([]ConnConfigCallback{WithJob(job)}, callbacks...)

	var pool PgxPoolIface
	err := retry.WithOperation(ctx, retry.PostgreSQLDefaults(), func() error {
		var attemptErr error
		pool, attemptErr = New(ctx, connStr, callbacks...)
		if attemptErr != nil {
			return attemptErr
		}
		if pingErr := pool.Ping(ctx); pingErr != nil {
			pool.Close()
			return pingErr
		}
		return nil
	}, "PostgreSQL connect for "+job)

	if err != nil {
		log.WithError(err).Error("Failed to establish PostgreSQL connection after all retries")
		return nil, err
	}

	cfg := pool.Config().ConnConfig
	log.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"database": cfg.Database,
	}).Debug("Connected to PostgreSQL")
	return pool, nil
}
