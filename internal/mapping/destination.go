package mapping

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // civic zone must resolve on hosts without zoneinfo

	"github.com/epsomandewellharriers/spond_sync/internal/event"
	"github.com/epsomandewellharriers/spond_sync/internal/wordpress"
)

// Destination defaults.
const (
	DefaultTimezone  = "Europe/London"
	DefaultLinkLabel = "Spond"
	DefaultLinkBase  = "https://spond.com/client/sponds/"
	DefaultMapZoom   = 17

	publishStatus = "publish"
	dateLayout    = "20060102"
	timeLayout    = "15:04"
)

// DestinationOptions configures how records are presented on WordPress.
type DestinationOptions struct {
	Location  *time.Location
	LinkLabel string
	LinkBase  string
	MapZoom   int
}

// DestinationMapper converts between WordPress fixtures and records.
type DestinationMapper struct {
	vocab Vocabulary
	opts  DestinationOptions
}

// NewDestinationMapper creates a DestinationMapper, filling unset options with defaults
func NewDestinationMapper(vocab Vocabulary, opts DestinationOptions) (*DestinationMapper, error) {
	if opts.Location == nil {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			return nil, fmt.Errorf("failed to load timezone %s: %w", DefaultTimezone, err)
		}
		opts.Location = loc
	}
	if opts.LinkLabel == "" {
		opts.LinkLabel = DefaultLinkLabel
	}
	if opts.LinkBase == "" {
		opts.LinkBase = DefaultLinkBase
	}
	if opts.MapZoom == 0 {
		opts.MapZoom = DefaultMapZoom
	}
	return &DestinationMapper{vocab: vocab, opts: opts}, nil
}

// FromDestination converts a WordPress fixture into a record. Fixtures not
// authored by the synchroniser get an empty SourceID.
func (m *DestinationMapper) FromDestination(f wordpress.Fixture) (event.Record, error) {
	acf := f.ACF
	rec := event.Record{
		SourceID:     m.sourceID(acf),
		Status:       event.StatusActive,
		Title:        strings.TrimSpace(f.Title.Text()),
		Description:  strings.TrimSpace(acf.Information),
		AudienceTags: event.NewTags(f.Ages...),
	}

	fail := func(field string, value any, err error) (event.Record, error) {
		return event.Record{}, &MappingError{
			Side:     SideDestination,
			RecordID: fmt.Sprint(f.ID),
			SourceID: rec.SourceID,
			Field:    field,
			Value:    value,
			Err:      err,
		}
	}

	var err error
	if rec.Start, err = m.parseLocal(acf.StartDate, acf.StartTime); err != nil {
		return fail("start_date", deref(acf.StartDate)+" "+deref(acf.StartTime), err)
	}
	if rec.End, err = m.parseLocal(acf.EndDate, acf.EndTime); err != nil {
		return fail("end_date", deref(acf.EndDate)+" "+deref(acf.EndTime), err)
	}
	if loc := acf.Location; loc != nil {
		rec.LocationName = strings.TrimSpace(loc.Name)
		rec.LocationAddress = strings.TrimSpace(loc.Address)
		if rec.LocationLongitude, err = toFloat(loc.Lng); err != nil {
			return fail("location.lng", loc.Lng, err)
		}
		if rec.LocationLatitude, err = toFloat(loc.Lat); err != nil {
			return fail("location.lat", loc.Lat, err)
		}
	}
	return rec, nil
}

// ToDestination builds the fixture payload for r. When existing is given, its
// tags outside the vocabulary are preserved and the managed ones replaced.
func (m *DestinationMapper) ToDestination(r event.Record, destinationID int, existing *event.Record) wordpress.FixturePayload {
	var tags event.Tags
	if existing != nil {
		tags = existing.AudienceTags.Without(m.vocab.Tags())
	}
	tags = tags.Union(r.AudienceTags)
	ages := []int{}
	ages = append(ages, tags...)

	var location *wordpress.MapLocation
	if r.LocationName != "" || r.LocationAddress != "" {
		location = &wordpress.MapLocation{
			Name:    r.LocationName,
			Address: r.LocationAddress,
			Lng:     r.LocationLongitude,
			Lat:     r.LocationLatitude,
			Zoom:    m.opts.MapZoom,
		}
	}

	return wordpress.FixturePayload{
		ID:     destinationID,
		Status: publishStatus,
		Title:  r.Title,
		Ages:   ages,
		ACF: wordpress.FixtureFields{
			Information:        r.Description,
			StartDate:          r.Start.Format(m.opts.Location, dateLayout),
			StartTime:          r.Start.Format(m.opts.Location, timeLayout),
			EndDate:            r.End.Format(m.opts.Location, dateLayout),
			EndTime:            r.End.Format(m.opts.Location, timeLayout),
			Location:           location,
			ShowExternalButton: true,
			ExternalLinkText:   m.opts.LinkLabel,
			ExternalLink:       m.opts.LinkBase + r.SourceID,
		},
	}
}

// AtFixturePrecision returns r with its start and end as they read back from
// a fixture. Local times in the hour repeated when clocks go back resolve to
// one offset only, so a source instant in that hour would otherwise never
// compare equal to its own fixture.
func (m *DestinationMapper) AtFixturePrecision(r event.Record) event.Record {
	r.Start = m.reread(r.Start)
	r.End = m.reread(r.End)
	return r
}

func (m *DestinationMapper) reread(i event.Instant) event.Instant {
	back, err := m.parseLocal(i.Format(m.opts.Location, dateLayout), i.Format(m.opts.Location, timeLayout))
	if err != nil {
		return i
	}
	return back
}

func (m *DestinationMapper) sourceID(acf wordpress.FixtureFields) string {
	if acf.ExternalLinkText != m.opts.LinkLabel {
		return ""
	}
	link := strings.TrimRight(strings.TrimSpace(acf.ExternalLink), "/")
	if link == "" {
		return ""
	}
	return link[strings.LastIndex(link, "/")+1:]
}

// parseLocal combines a YYYYMMDD date and an HH:MM[:SS] time in the civic zone.
func (m *DestinationMapper) parseLocal(date, clock *string) (event.Instant, error) {
	d := strings.TrimSpace(deref(date))
	if d == "" {
		return event.Instant{}, nil
	}
	c := strings.TrimSpace(deref(clock))
	if c == "" {
		c = "00:00"
	}
	if len(c) < len(timeLayout) {
		return event.Instant{}, fmt.Errorf("invalid time %q", c)
	}
	t, err := time.ParseInLocation(dateLayout+" "+timeLayout, d+" "+c[:len(timeLayout)], m.opts.Location)
	if err != nil {
		return event.Instant{}, err
	}
	return event.At(t), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
