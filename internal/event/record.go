package event

// Status is the lifecycle state of an event on the source side.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Record is the normalised representation of one event, independent of
// either remote schema. Records are rebuilt from remote payloads on every run.
type Record struct {
	SourceID          string // empty when the record was never linked to a source event
	Status            Status
	Title             string
	Description       string
	Start             Instant
	End               Instant
	LocationName      string
	LocationAddress   string
	LocationLongitude *float64
	LocationLatitude  *float64
	AudienceTags      Tags
}

// Linked reports whether the record carries a source identity.
func (r Record) Linked() bool {
	return r.SourceID != ""
}

// Cancelled reports whether the source has cancelled the event.
func (r Record) Cancelled() bool {
	return r.Status == StatusCancelled
}

// IsModified reports whether any published field differs between r and other.
// Status and SourceID are not compared.
func (r Record) IsModified(other Record) bool {
	return r.Title != other.Title ||
		r.Description != other.Description ||
		!r.Start.Equal(other.Start) ||
		!r.End.Equal(other.End) ||
		r.LocationName != other.LocationName ||
		r.LocationAddress != other.LocationAddress ||
		!equalCoordinate(r.LocationLongitude, other.LocationLongitude) ||
		!equalCoordinate(r.LocationLatitude, other.LocationLatitude) ||
		!r.AudienceTags.Equal(other.AudienceTags)
}

func equalCoordinate(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
