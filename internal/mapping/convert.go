package mapping

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/epsomandewellharriers/spond_sync/internal/event"
)

// toFloat converts an untyped JSON coordinate. nil and "" are absent. NaN and
// infinities are rejected: they never compare equal and cannot be encoded.
func toFloat(v any) (*float64, error) {
	var f float64
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		f = x
	case *float64:
		if x == nil {
			return nil, nil
		}
		f = *x
	case int:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return nil, err
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		f = parsed
	default:
		return nil, fmt.Errorf("not a number: %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("not a finite number: %v", f)
	}
	return &f, nil
}

// parseTimestamp reads an ISO-8601 instant; "" is absent. Timestamps without
// an offset are taken as UTC. Seconds are dropped because fixtures only hold
// minutes and a finer source value would never compare equal.
func parseTimestamp(s string) (event.Instant, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return event.Instant{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return event.At(t.Truncate(time.Minute)), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05.999999999", s)
	if err != nil {
		return event.Instant{}, err
	}
	return event.At(t.Truncate(time.Minute)), nil
}
