// Package wordpress is a client for the WordPress REST API "fixture" custom
// post type, the publishing destination of the sync.
package wordpress

import (
	"bytes"
	"encoding/json"
	"html"
)

// Fixture is a fixture post as returned by the REST API.
type Fixture struct {
	ID     int           `json:"id"`
	Status string        `json:"status"`
	Title  Rendered      `json:"title"`
	Ages   []int         `json:"fixture-age"`
	ACF    FixtureFields `json:"acf"`
}

// Rendered is a WordPress text field. Rendered is HTML-escaped and texturized
// (straight quotes become curly); Raw is the stored text and is only returned
// in the edit context.
type Rendered struct {
	Raw      string `json:"raw,omitempty"`
	Rendered string `json:"rendered"`
}

// Text returns the stored text, falling back to the unescaped rendered form
// when the raw value was not requested.
func (r Rendered) Text() string {
	if r.Raw != "" {
		return r.Raw
	}
	return html.UnescapeString(r.Rendered)
}

// FixturePayload is the body sent when creating or updating a fixture.
type FixturePayload struct {
	ID     int           `json:"id,omitempty"`
	Status string        `json:"status"`
	Title  string        `json:"title"`
	Ages   []int         `json:"fixture-age"`
	ACF    FixtureFields `json:"acf"`
}

// FixtureFields holds the Advanced Custom Fields of a fixture. Dates are
// YYYYMMDD and times HH:MM in the site's local timezone.
type FixtureFields struct {
	Information        string       `json:"information"`
	StartDate          *string      `json:"start_date"`
	StartTime          *string      `json:"start_time"`
	EndDate            *string      `json:"end_date"`
	EndTime            *string      `json:"end_time"`
	Location           *MapLocation `json:"location"`
	ShowExternalButton bool         `json:"show_external_button"`
	ExternalLinkText   string       `json:"external_link_text"`
	ExternalLink       string       `json:"external_link"`
}

// MapLocation is an ACF Google Map value. ACF serialises coordinates as
// either numbers or strings, so they are left untyped on read.
type MapLocation struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Lng     any    `json:"lng"`
	Lat     any    `json:"lat"`
	Zoom    any    `json:"zoom,omitempty"`
}

// UnmarshalJSON tolerates the shapes ACF uses for empty values: an empty
// field group arrives as [] and an empty map as "", false or null.
func (f *FixtureFields) UnmarshalJSON(data []byte) error {
	*f = FixtureFields{}
	if !isObject(data) {
		return nil
	}

	type plain FixtureFields
	var raw struct {
		plain
		Location           json.RawMessage `json:"location"`
		ShowExternalButton json.RawMessage `json:"show_external_button"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = FixtureFields(raw.plain)

	if isObject(raw.Location) {
		var loc MapLocation
		if err := json.Unmarshal(raw.Location, &loc); err != nil {
			return err
		}
		f.Location = &loc
	}
	f.ShowExternalButton = truthy(raw.ShowExternalButton)
	return nil
}

func isObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}

func truthy(data []byte) bool {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1", `"1"`, `"true"`:
		return true
	}
	return false
}
