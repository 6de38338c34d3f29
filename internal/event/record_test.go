package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func baseRecord() Record {
	start := time.Date(2025, 3, 2, 19, 0, 0, 0, time.UTC)
	return Record{
		SourceID:          "S1",
		Status:            StatusActive,
		Title:             "Club night",
		Description:       "Details",
		Start:             At(start),
		End:               At(start.Add(time.Hour)),
		LocationName:      "Track",
		LocationAddress:   "1 Road",
		LocationLongitude: ptr(-0.27),
		LocationLatitude:  ptr(51.33),
		AudienceTags:      NewTags(41),
	}
}

func TestIsModified(t *testing.T) {
	tests := []struct {
		name     string
		edit     func(*Record)
		modified bool
	}{
		{"identical", func(*Record) {}, false},
		{"status ignored", func(r *Record) { r.Status = StatusCancelled }, false},
		{"source id ignored", func(r *Record) { r.SourceID = "other" }, false},
		{"same instant other zone", func(r *Record) {
			london, err := time.LoadLocation("Europe/London")
			require.NoError(t, err)
			t0, _ := r.Start.Time()
			r.Start = At(t0.In(london))
		}, false},
		{"tag order ignored", func(r *Record) { r.AudienceTags = Tags{41, 41} }, false},
		{"empty tag sets", func(r *Record) { r.AudienceTags = nil }, true},
		{"title", func(r *Record) { r.Title = "Race" }, true},
		{"description", func(r *Record) { r.Description = "" }, true},
		{"start", func(r *Record) { r.Start = At(time.Date(2025, 3, 3, 19, 0, 0, 0, time.UTC)) }, true},
		{"start absent", func(r *Record) { r.Start = Instant{} }, true},
		{"end", func(r *Record) { r.End = Instant{} }, true},
		{"location name", func(r *Record) { r.LocationName = "Park" }, true},
		{"location address", func(r *Record) { r.LocationAddress = "" }, true},
		{"longitude", func(r *Record) { r.LocationLongitude = ptr(0) }, true},
		{"latitude absent", func(r *Record) { r.LocationLatitude = nil }, true},
		{"tags", func(r *Record) { r.AudienceTags = NewTags(41, 55) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := baseRecord()
			b := baseRecord()
			tt.edit(&b)

			assert.Equal(t, tt.modified, a.IsModified(b))
			assert.Equal(t, a.IsModified(b), b.IsModified(a), "IsModified must be symmetric")
			assert.False(t, b.IsModified(b), "A record is never modified relative to itself")
		})
	}
}

func TestInstant(t *testing.T) {
	var absent Instant
	assert.False(t, absent.Valid())
	assert.False(t, absent.After(time.Time{}), "Absent is never after anything")
	assert.True(t, absent.Equal(Instant{}))
	assert.Nil(t, absent.Format(time.UTC, "15:04"))
	assert.Equal(t, "<absent>", absent.String())

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	i := At(time.Date(2025, 7, 1, 20, 0, 0, 0, paris))
	utc, ok := i.Time()
	require.True(t, ok)
	assert.Equal(t, time.UTC, utc.Location())
	assert.Equal(t, 18, utc.Hour())
	assert.True(t, i.After(utc.Add(-time.Second)))
	assert.False(t, i.After(utc))
	assert.False(t, i.Equal(absent))
	require.NotNil(t, i.Format(paris, "15:04"))
	assert.Equal(t, "20:00", *i.Format(paris, "15:04"))
}

func TestTags(t *testing.T) {
	tags := NewTags(99, 41, 41, 55)
	assert.Equal(t, Tags{41, 55, 99}, tags)
	assert.True(t, tags.Contains(55))
	assert.False(t, tags.Contains(7))

	managed := NewTags(41, 55)
	assert.Equal(t, Tags{99}, tags.Without(managed))
	assert.Equal(t, Tags{41, 55}, tags.Intersect(managed))
	assert.Equal(t, Tags{55, 99}, NewTags(99, 41).Without(managed).Union(NewTags(55)))
	assert.True(t, Tags(nil).Equal(Tags{}))
}
