// Package spond is a minimal client for the Spond group-scheduling API,
// the authoritative source of events.
package spond

// Event is a raw event ("spond") as returned by the Spond API. Only the
// fields the synchroniser reads are declared.
type Event struct {
	ID             string      `json:"id"`
	Heading        string      `json:"heading"`
	Description    string      `json:"description"`
	StartTimestamp string      `json:"startTimestamp"`
	EndTimestamp   string      `json:"endTimestamp"`
	Cancelled      bool        `json:"cancelled"`
	Location       *Location   `json:"location,omitempty"`
	Recipients     *Recipients `json:"recipients,omitempty"`
}

// Location is the venue of an event. Coordinates arrive as JSON numbers but
// are kept untyped so malformed values surface as mapping errors rather than
// failing the whole fetch.
type Location struct {
	Feature   string `json:"feature"`
	Address   string `json:"address"`
	Latitude  any    `json:"latitude,omitempty"`
	Longitude any    `json:"longitude,omitempty"`
}

// Recipients describes who an event was sent to.
type Recipients struct {
	Group *Group `json:"group,omitempty"`
}

// Group identifies a Spond group or subgroup.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// GroupID returns the recipient group id, or "" when none is present.
func (e Event) GroupID() string {
	if e.Recipients == nil || e.Recipients.Group == nil {
		return ""
	}
	return e.Recipients.Group.ID
}

// Place returns the event location, or an empty one when none is present.
func (e Event) Place() Location {
	if e.Location == nil {
		return Location{}
	}
	return *e.Location
}
