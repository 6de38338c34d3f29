package mapping

import (
	"errors"
	"fmt"
)

// ErrMapping is matched by every MappingError.
var ErrMapping = errors.New("mapping error")

// Side names the system a raw payload came from.
type Side string

const (
	SideSource      Side = "source"
	SideDestination Side = "destination"
)

// MappingError reports a malformed or type-inconsistent field in a raw payload.
// SourceID is set whenever the correlation key could be read before the failure.
type MappingError struct {
	Side     Side
	RecordID string
	SourceID string
	Field    string
	Value    any
	Err      error
}

// Error implements the error interface
func (e *MappingError) Error() string {
	return fmt.Sprintf("cannot map %s record %q: field %s (%v): %v", e.Side, e.RecordID, e.Field, e.Value, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *MappingError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *MappingError) Is(target error) bool {
	return target == ErrMapping
}
