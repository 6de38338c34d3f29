// Package sync orchestrates one-way synchronisation of Spond events into
// WordPress fixtures.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/epsomandewellharriers/spond_sync/internal/event"
	"github.com/epsomandewellharriers/spond_sync/internal/mapping"
	"github.com/epsomandewellharriers/spond_sync/internal/reconcile"
	"github.com/epsomandewellharriers/spond_sync/internal/spond"
	"github.com/epsomandewellharriers/spond_sync/internal/wordpress"
)

// Service runs single synchronisation passes
type Service struct {
	destination DestinationStore
	source      SourceStore

	vocab       mapping.Vocabulary
	notices     mapping.Notices
	destOptions mapping.DestinationOptions
	groupID     string
	maxEvents   int
	dryRun      bool
	clock       func() time.Time
	locker      Locker
	observers   []Observer

	sourceMapper      *mapping.SourceMapper
	destinationMapper *mapping.DestinationMapper
	reconciler        *reconcile.Reconciler
}

// Option configures a Service
type Option func(*Service)

// WithVocabulary sets the audiences the synchroniser owns
func WithVocabulary(v mapping.Vocabulary) Option {
	return func(s *Service) { s.vocab = v }
}

// WithNotices sets the description notices
func WithNotices(n mapping.Notices) Option {
	return func(s *Service) { s.notices = n }
}

// WithDestinationOptions sets the destination presentation options
func WithDestinationOptions(o mapping.DestinationOptions) Option {
	return func(s *Service) { s.destOptions = o }
}

// WithSourceGroup restricts the source query to one group
func WithSourceGroup(groupID string) Option {
	return func(s *Service) { s.groupID = groupID }
}

// WithMaxEvents bounds the source query
func WithMaxEvents(n int) Option {
	return func(s *Service) { s.maxEvents = n }
}

// WithDryRun logs the planned actions without applying them
func WithDryRun(dryRun bool) Option {
	return func(s *Service) { s.dryRun = dryRun }
}

// WithClock overrides the time source
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithLocker serialises runs with l
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithObserver adds a run observer
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

// NewService creates a new synchronisation service
func NewService(destination DestinationStore, source SourceStore, opts ...Option) (*Service, error) {
	s := &Service{
		destination: destination,
		source:      source,
		vocab:       mapping.DefaultVocabulary(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	destinationMapper, err := mapping.NewDestinationMapper(s.vocab, s.destOptions)
	if err != nil {
		return nil, err
	}
	s.destinationMapper = destinationMapper
	s.sourceMapper = mapping.NewSourceMapper(s.vocab, s.notices)
	s.reconciler = reconcile.New(s.vocab.Tags())
	return s, nil
}

// Run performs one synchronisation pass. Apply failures halt the pass; actions
// already applied stay applied and the next run picks up the rest.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	summary := Summary{
		RunID:   uuid.NewString(),
		Started: s.clock().UTC(),
		DryRun:  s.dryRun,
	}
	log := logrus.WithField("run_id", summary.RunID)

	if s.locker != nil {
		unlock, err := s.locker.TryLock(ctx)
		if err != nil {
			return summary, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				log.WithError(err).Warn("Failed to release run lock")
			}
		}()
	}

	log.WithField("dry_run", s.dryRun).Info("Starting Spond to WordPress synchronization")
	runErr := s.pass(ctx, &summary, log)
	summary.Finished = s.clock().UTC()

	for _, o := range s.observers {
		if err := o.ObserveRun(ctx, summary, runErr); err != nil {
			log.WithError(err).Warn("Failed to report run outcome")
		}
	}

	if runErr != nil {
		return summary, runErr
	}
	log.WithFields(logrus.Fields{
		"inserted":    summary.Inserted,
		"updated":     summary.Updated,
		"deleted":     summary.Deleted,
		"quarantined": summary.Quarantined,
		"duration":    summary.Finished.Sub(summary.Started),
	}).Info("Synchronization completed")
	return summary, nil
}

func (s *Service) pass(ctx context.Context, summary *Summary, log *logrus.Entry) error {
	now := summary.Started

	fixtures, err := s.destination.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch destination records: %w", err)
	}
	quarantine := make(map[string]struct{})
	entries := s.destinationIndex(fixtures, quarantine, log)
	log.WithField("count", len(entries)).Info("Loaded synchronised fixtures from WordPress")

	events, err := s.source.FetchEvents(ctx, spond.Filter{
		MinStart:         now,
		IncludeScheduled: true,
		IncludeHidden:    true,
		GroupID:          s.groupID,
		Max:              s.maxEvents,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch source events: %w", err)
	}
	records := s.sourceIndex(events, quarantine, log)
	log.WithField("count", len(records)).Info("Loaded events from Spond")

	summary.Quarantined = len(quarantine)
	entries, records = withoutQuarantined(entries, records, quarantine)

	for _, action := range s.reconciler.Reconcile(entries, records, now) {
		if err := s.apply(ctx, action, log); err != nil {
			return err
		}
		switch action.Kind() {
		case reconcile.KindInsert:
			summary.Inserted++
		case reconcile.KindUpdate:
			summary.Updated++
		case reconcile.KindDelete:
			summary.Deleted++
		}
	}
	return nil
}

// destinationIndex maps fixtures and keeps those linked to a source event.
// Foreign fixtures are left out and so never touched. Only the first fixture
// per source id is kept.
func (s *Service) destinationIndex(fixtures []wordpress.Fixture, quarantine map[string]struct{}, log *logrus.Entry) []reconcile.Entry {
	entries := make([]reconcile.Entry, 0, len(fixtures))
	seen := make(map[string]int, len(fixtures))
	for _, f := range fixtures {
		rec, err := s.destinationMapper.FromDestination(f)
		if err != nil {
			s.quarantine(err, quarantine, log.WithField("destination_id", f.ID))
			continue
		}
		if !rec.Linked() {
			continue
		}
		if first, dup := seen[rec.SourceID]; dup {
			log.WithFields(logrus.Fields{
				"source_id":      rec.SourceID,
				"destination_id": f.ID,
				"kept_id":        first,
			}).Warn("Duplicate fixture for Spond event, leaving it untouched")
			continue
		}
		seen[rec.SourceID] = f.ID
		entries = append(entries, reconcile.Entry{DestinationID: f.ID, Record: rec})
	}
	return entries
}

func (s *Service) sourceIndex(events []spond.Event, quarantine map[string]struct{}, log *logrus.Entry) []event.Record {
	records := make([]event.Record, 0, len(events))
	for _, e := range events {
		rec, err := s.sourceMapper.FromSource(e)
		if err != nil {
			s.quarantine(err, quarantine, log.WithField("source_id", e.ID))
			continue
		}
		if !rec.Linked() {
			log.WithField("title", rec.Title).Warn("Skipping Spond event without an id")
			continue
		}
		records = append(records, s.destinationMapper.AtFixturePrecision(rec))
	}
	return records
}

// quarantine skips a record that failed to map. Its source id, when known, is
// excluded from both sides so the pass neither duplicates nor deletes it.
func (s *Service) quarantine(err error, quarantine map[string]struct{}, log *logrus.Entry) {
	entry := log.WithError(err)
	var mappingErr *mapping.MappingError
	if errors.As(err, &mappingErr) && mappingErr.SourceID != "" {
		quarantine[mappingErr.SourceID] = struct{}{}
		entry = entry.WithField("quarantined", mappingErr.SourceID)
	}
	entry.Warn("Skipping record that could not be mapped")
}

func withoutQuarantined(entries []reconcile.Entry, records []event.Record, quarantine map[string]struct{}) ([]reconcile.Entry, []event.Record) {
	if len(quarantine) == 0 {
		return entries, records
	}
	keptEntries := entries[:0:0]
	for _, e := range entries {
		if _, q := quarantine[e.Record.SourceID]; !q {
			keptEntries = append(keptEntries, e)
		}
	}
	keptRecords := records[:0:0]
	for _, r := range records {
		if _, q := quarantine[r.SourceID]; !q {
			keptRecords = append(keptRecords, r)
		}
	}
	return keptEntries, keptRecords
}

func (s *Service) apply(ctx context.Context, action reconcile.Action, log *logrus.Entry) error {
	subject := action.Subject()
	fields := logrus.Fields{
		"action":    action.Kind(),
		"title":     subject.Title,
		"source_id": subject.SourceID,
	}

	var err error
	switch a := action.(type) {
	case reconcile.Insert:
		log.WithFields(fields).Info("Inserting fixture")
		if !s.dryRun {
			err = s.destination.Insert(ctx, s.destinationMapper.ToDestination(a.Record, 0, nil))
		}
	case reconcile.Update:
		fields["destination_id"] = a.DestinationID
		log.WithFields(fields).Info("Updating fixture")
		if !s.dryRun {
			err = s.destination.Update(ctx, a.DestinationID, s.destinationMapper.ToDestination(a.Record, a.DestinationID, &a.Existing))
		}
	case reconcile.Delete:
		fields["destination_id"] = a.DestinationID
		log.WithFields(fields).Info("Deleting fixture")
		if !s.dryRun {
			err = s.destination.Delete(ctx, a.DestinationID)
		}
	default:
		return fmt.Errorf("unknown action %T", action)
	}

	if err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to apply action")
		return fmt.Errorf("failed to %s fixture %q (spond %s): %w", action.Kind(), subject.Title, subject.SourceID, err)
	}
	return nil
}
