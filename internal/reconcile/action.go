// Package reconcile decides which destination changes mirror the source.
package reconcile

import (
	"github.com/epsomandewellharriers/spond_sync/internal/event"
)

// Kind names the variant of an Action.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Action is one change to apply to the destination. It is a closed set:
// Insert, Update or Delete.
type Action interface {
	Kind() Kind
	// Subject is the record the action is about, used for logging.
	Subject() event.Record
	action()
}

// Insert publishes a source record that has no destination counterpart.
type Insert struct {
	Record event.Record
}

// Update overwrites destination DestinationID with the source record.
// Existing is the destination's current state, needed to keep foreign tags.
type Update struct {
	DestinationID int
	Record        event.Record
	Existing      event.Record
}

// Delete removes destination DestinationID, whose source was removed or cancelled.
type Delete struct {
	DestinationID int
	Record        event.Record
}

func (Insert) Kind() Kind { return KindInsert }
func (Update) Kind() Kind { return KindUpdate }
func (Delete) Kind() Kind { return KindDelete }

func (a Insert) Subject() event.Record { return a.Record }
func (a Update) Subject() event.Record { return a.Record }
func (a Delete) Subject() event.Record { return a.Record }

func (Insert) action() {}
func (Update) action() {}
func (Delete) action() {}
