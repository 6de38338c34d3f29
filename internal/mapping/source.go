package mapping

import (
	"strings"

	"github.com/epsomandewellharriers/spond_sync/internal/event"
	"github.com/epsomandewellharriers/spond_sync/internal/spond"
)

// Notices are the fixed texts written into synchronised descriptions.
type Notices struct {
	// Restricted replaces the whole description for the restricted audience.
	Restricted string `yaml:"restricted"`
	// Synced is appended after the description for every other audience.
	Synced string `yaml:"synced"`
}

// DefaultNotices returns the notices pointing readers back to Spond.
func DefaultNotices() Notices {
	return Notices{
		Restricted: "<em>This event was automatically synchronised from Spond. Please view details there.</em>",
		Synced:     "<em>This event was automatically synchronised from Spond. Please respond there.</em>",
	}
}

const noticeSeparator = "\r\n\r\n"

// SourceMapper converts Spond events into records.
type SourceMapper struct {
	vocab   Vocabulary
	notices Notices
}

// NewSourceMapper creates a SourceMapper. Empty notices fall back to the defaults.
func NewSourceMapper(vocab Vocabulary, notices Notices) *SourceMapper {
	defaults := DefaultNotices()
	if notices.Restricted == "" {
		notices.Restricted = defaults.Restricted
	}
	if notices.Synced == "" {
		notices.Synced = defaults.Synced
	}
	return &SourceMapper{vocab: vocab, notices: notices}
}

// FromSource converts a raw Spond event into a record
func (m *SourceMapper) FromSource(e spond.Event) (event.Record, error) {
	groupID := e.GroupID()
	place := e.Place()

	rec := event.Record{
		SourceID:        strings.TrimSpace(e.ID),
		Status:          event.StatusActive,
		Title:           strings.TrimSpace(e.Heading),
		Description:     m.description(groupID, e.Description),
		LocationName:    strings.TrimSpace(place.Feature),
		LocationAddress: strings.TrimSpace(place.Address),
		AudienceTags:    event.NewTags(),
	}
	if e.Cancelled {
		rec.Status = event.StatusCancelled
	}
	if tag, ok := m.vocab.TagFor(groupID); ok {
		rec.AudienceTags = event.NewTags(tag)
	}

	fail := func(field string, value any, err error) (event.Record, error) {
		return event.Record{}, &MappingError{
			Side:     SideSource,
			RecordID: e.ID,
			SourceID: rec.SourceID,
			Field:    field,
			Value:    value,
			Err:      err,
		}
	}

	var err error
	if rec.Start, err = parseTimestamp(e.StartTimestamp); err != nil {
		return fail("startTimestamp", e.StartTimestamp, err)
	}
	if rec.End, err = parseTimestamp(e.EndTimestamp); err != nil {
		return fail("endTimestamp", e.EndTimestamp, err)
	}
	if rec.LocationLongitude, err = toFloat(place.Longitude); err != nil {
		return fail("location.longitude", place.Longitude, err)
	}
	if rec.LocationLatitude, err = toFloat(place.Latitude); err != nil {
		return fail("location.latitude", place.Latitude, err)
	}
	return rec, nil
}

// description never exposes the full text to the restricted audience.
func (m *SourceMapper) description(groupID, text string) string {
	if m.vocab.IsRestricted(groupID) {
		return m.notices.Restricted
	}
	return strings.TrimSpace(strings.TrimSpace(text) + noticeSeparator + m.notices.Synced)
}
