// Package mapping translates between the raw Spond and WordPress payloads and
// the canonical event.Record.
package mapping

import (
	"github.com/epsomandewellharriers/spond_sync/internal/event"
)

// Default Spond groups and the WordPress "fixture-age" terms they map to.
const (
	JuniorsGroupID = "E1604708D52A4BF8B4583435A48C10D0"
	SeniorsGroupID = "E115E8334BA948D5AC3EF2EE56B54B81"

	JuniorsTag = 55
	SeniorsTag = 41
)

// Audience links a source group to the destination tag it is published under.
type Audience struct {
	GroupID string `yaml:"group_id"`
	Tag     int    `yaml:"tag"`
}

// Vocabulary is the set of audiences the synchroniser owns. Restricted events
// never publish their full description. Tags outside the vocabulary are
// foreign and are left untouched on the destination.
type Vocabulary struct {
	Restricted Audience `yaml:"restricted"`
	Full       Audience `yaml:"full"`
}

// DefaultVocabulary returns the club's juniors (restricted) and seniors (full) audiences.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Restricted: Audience{GroupID: JuniorsGroupID, Tag: JuniorsTag},
		Full:       Audience{GroupID: SeniorsGroupID, Tag: SeniorsTag},
	}
}

func (v Vocabulary) audiences() []Audience {
	return []Audience{v.Restricted, v.Full}
}

// TagFor returns the destination tag for a source group id.
func (v Vocabulary) TagFor(groupID string) (int, bool) {
	if groupID == "" {
		return 0, false
	}
	for _, a := range v.audiences() {
		if a.GroupID == groupID {
			return a.Tag, true
		}
	}
	return 0, false
}

// IsRestricted reports whether groupID is the restricted audience.
func (v Vocabulary) IsRestricted(groupID string) bool {
	return groupID != "" && groupID == v.Restricted.GroupID
}

// Tags returns every tag the vocabulary manages.
func (v Vocabulary) Tags() event.Tags {
	return event.NewTags(v.Restricted.Tag, v.Full.Tag)
}
