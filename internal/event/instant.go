// Package event defines the canonical event record shared by both sides of the sync.
package event

import (
	"time"
)

// Instant is an optional point in absolute time, always held in UTC.
// The zero value is an absent instant.
type Instant struct {
	t     time.Time
	valid bool
}

// At returns a present Instant for t, normalised to UTC.
func At(t time.Time) Instant {
	return Instant{t: t.UTC(), valid: true}
}

// Valid reports whether the instant is present.
func (i Instant) Valid() bool {
	return i.valid
}

// Time returns the UTC time and whether it is present.
func (i Instant) Time() (time.Time, bool) {
	return i.t, i.valid
}

// After reports whether the instant is present and strictly after t.
func (i Instant) After(t time.Time) bool {
	return i.valid && i.t.After(t)
}

// Equal reports whether both instants are absent or both denote the same moment.
func (i Instant) Equal(other Instant) bool {
	if i.valid != other.valid {
		return false
	}
	return !i.valid || i.t.Equal(other.t)
}

// In converts the instant to the civic time of loc.
func (i Instant) In(loc *time.Location) (time.Time, bool) {
	if !i.valid {
		return time.Time{}, false
	}
	return i.t.In(loc), true
}

// Format renders the instant in loc using layout; an absent instant yields nil.
func (i Instant) Format(loc *time.Location, layout string) *string {
	local, ok := i.In(loc)
	if !ok {
		return nil
	}
	s := local.Format(layout)
	return &s
}

func (i Instant) String() string {
	if !i.valid {
		return "<absent>"
	}
	return i.t.Format(time.RFC3339)
}
