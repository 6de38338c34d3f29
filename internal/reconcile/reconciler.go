package reconcile

import (
	"time"

	"github.com/epsomandewellharriers/spond_sync/internal/event"
)

// Entry is a destination record that carries a source identity.
type Entry struct {
	DestinationID int
	Record        event.Record
}

// Reconciler computes the actions that bring the destination in line with
// the source. It holds no state between calls.
type Reconciler struct {
	managed event.Tags
}

// New creates a Reconciler. managed is the tag vocabulary the synchroniser
// owns; destination tags outside it are ignored when detecting changes. A nil
// vocabulary compares all tags.
func New(managed event.Tags) *Reconciler {
	return &Reconciler{managed: managed}
}

// Reconcile returns the ordered actions for one pass. Updates and deletes come
// first in destination order, then inserts in source order. Events that
// started at or before now are never deleted nor inserted.
func (r *Reconciler) Reconcile(destination []Entry, source []event.Record, now time.Time) []Action {
	sourceIndex := make(map[string]event.Record, len(source))
	for _, rec := range source {
		if _, seen := sourceIndex[rec.SourceID]; !seen {
			sourceIndex[rec.SourceID] = rec
		}
	}

	var actions []Action
	published := make(map[string]struct{}, len(destination))
	for _, entry := range destination {
		published[entry.Record.SourceID] = struct{}{}

		latest, found := sourceIndex[entry.Record.SourceID]
		switch {
		case !found || latest.Cancelled():
			if r.deletable(entry.Record, now) {
				actions = append(actions, Delete{DestinationID: entry.DestinationID, Record: entry.Record})
			}
		case r.modified(entry.Record, latest):
			actions = append(actions, Update{DestinationID: entry.DestinationID, Record: latest, Existing: entry.Record})
		}
	}

	for _, rec := range source {
		if _, ok := published[rec.SourceID]; ok {
			continue
		}
		// also guards against duplicate source ids
		published[rec.SourceID] = struct{}{}
		if rec.Start.After(now) && !rec.Cancelled() {
			actions = append(actions, Insert{Record: rec})
		}
	}
	return actions
}

// deletable keeps past events as a historical record. An undated record has
// no history to keep.
func (r *Reconciler) deletable(rec event.Record, now time.Time) bool {
	return !rec.Start.Valid() || rec.Start.After(now)
}

func (r *Reconciler) modified(existing, latest event.Record) bool {
	if r.managed != nil {
		existing.AudienceTags = existing.AudienceTags.Intersect(r.managed)
	}
	return existing.IsModified(latest)
}
