package sync

import (
	"context"
	"errors"
	"time"

	"github.com/epsomandewellharriers/spond_sync/internal/spond"
	"github.com/epsomandewellharriers/spond_sync/internal/wordpress"
)

// DestinationStore is the publishing system fixtures are mirrored into
type DestinationStore interface {
	// FetchAll returns every fixture or fails; it never truncates.
	FetchAll(ctx context.Context) ([]wordpress.Fixture, error)
	Insert(ctx context.Context, payload wordpress.FixturePayload) error
	Update(ctx context.Context, id int, payload wordpress.FixturePayload) error
	Delete(ctx context.Context, id int) error
}

// SourceStore is the scheduling system events are read from
type SourceStore interface {
	// FetchEvents returns only events starting at or after filter.MinStart.
	FetchEvents(ctx context.Context, filter spond.Filter) ([]spond.Event, error)
}

// ErrLockHeld is returned when another run already holds the run lock
var ErrLockHeld = errors.New("another sync run is in progress")

// Unlock releases a run lock
type Unlock func(ctx context.Context) error

// Locker serialises runs across processes and hosts
type Locker interface {
	TryLock(ctx context.Context) (Unlock, error)
}

// Observer is notified after every run that acquired the lock
type Observer interface {
	ObserveRun(ctx context.Context, summary Summary, runErr error) error
}

// Summary describes the outcome of one run
type Summary struct {
	RunID       string
	Started     time.Time
	Finished    time.Time
	DryRun      bool
	Inserted    int
	Updated     int
	Deleted     int
	Quarantined int // records skipped because of mapping errors
}

// Actions returns the number of actions applied, or planned in a dry run
func (s Summary) Actions() int {
	return s.Inserted + s.Updated + s.Deleted
}
