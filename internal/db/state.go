package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/epsomandewellharriers/spond_sync/internal/sync"
)

// RunState is the stored outcome of the latest run of a job
type RunState struct {
	Job         string
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	DryRun      bool
	Inserted    int
	Updated     int
	Deleted     int
	Quarantined int
	Error       *string // nil when the run succeeded
	LastSuccess *time.Time
}

// StateStore records run outcomes in the sync_state table
type StateStore struct {
	db  PgxIface
	job string
}

// NewStateStore creates a state store for job
func NewStateStore(db PgxIface, job string) *StateStore {
	return &StateStore{db: db, job: job}
}

const upsertRunSQL = `
	INSERT INTO sync_state AS s (job, run_id, started_at, finished_at, dry_run,
		inserted, updated, deleted, quarantined, error, last_success_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::text,
		CASE WHEN $10::text IS NULL AND NOT $5::boolean THEN $4::timestamptz END)
	ON CONFLICT (job) DO UPDATE SET
		run_id = EXCLUDED.run_id,
		started_at = EXCLUDED.started_at,
		finished_at = EXCLUDED.finished_at,
		dry_run = EXCLUDED.dry_run,
		inserted = EXCLUDED.inserted,
		updated = EXCLUDED.updated,
		deleted = EXCLUDED.deleted,
		quarantined = EXCLUDED.quarantined,
		error = EXCLUDED.error,
		last_success_at = COALESCE(EXCLUDED.last_success_at, s.last_success_at)`

// ObserveRun stores the outcome of a run. Dry runs never count as a success.
func (s *StateStore) ObserveRun(ctx context.Context, summary sync.Summary, runErr error) error {
	var errText *string
	if runErr != nil {
		msg := runErr.Error()
		errText = &msg
	}
	_, err := s.db.Exec(ctx, upsertRunSQL,
		s.job,
		summary.RunID,
		summary.Started,
		summary.Finished,
		summary.DryRun,
		summary.Inserted,
		summary.Updated,
		summary.Deleted,
		summary.Quarantined,
		errText,
	)
	if err != nil {
		return fmt.Errorf("failed to store run state: %w", err)
	}
	return nil
}

// LastRun returns the latest stored run, or nil when the job never ran
func (s *StateStore) LastRun(ctx context.Context) (*RunState, error) {
	query := `
		SELECT job, run_id::text, started_at, finished_at, dry_run,
			inserted, updated, deleted, quarantined, error, last_success_at
		FROM sync_state
		WHERE job = $1
	`

	var (
		st          RunState
		errText     pgtype.Text
		lastSuccess pgtype.Timestamptz
	)
	err := s.db.QueryRow(ctx, query, s.job).Scan(
		&st.Job, &st.RunID, &st.StartedAt, &st.FinishedAt, &st.DryRun,
		&st.Inserted, &st.Updated, &st.Deleted, &st.Quarantined,
		&errText, &lastSuccess,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run state: %w", err)
	}

	if errText.Valid {
		st.Error = &errText.String
	}
	if lastSuccess.Valid {
		st.LastSuccess = &lastSuccess.Time
	}
	return &st, nil
}
