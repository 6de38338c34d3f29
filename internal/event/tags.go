package event

import (
	"slices"
)

// Tags is a sorted set of destination audience tag ids.
type Tags []int

// NewTags builds a sorted, de-duplicated tag set.
func NewTags(ids ...int) Tags {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// Contains reports whether id is in the set.
func (t Tags) Contains(id int) bool {
	_, found := slices.BinarySearch(t, id)
	return found
}

// Union returns the tags present in either set.
func (t Tags) Union(other Tags) Tags {
	return NewTags(append(slices.Clone(t), other...)...)
}

// Without returns the tags of t that are not in other.
func (t Tags) Without(other Tags) Tags {
	out := make(Tags, 0, len(t))
	for _, id := range t {
		if !other.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// Intersect returns the tags present in both sets.
func (t Tags) Intersect(other Tags) Tags {
	out := make(Tags, 0, len(t))
	for _, id := range t {
		if other.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// Equal compares two tag sets irrespective of nil-ness.
func (t Tags) Equal(other Tags) bool {
	return slices.Equal(NewTags(t...), NewTags(other...))
}
