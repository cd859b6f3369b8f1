package timeline

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// TimeParser turns resolved field values into points in time.
//
// Numbers are epoch milliseconds, as returned by a fields projection on date
// fields. Strings are tried against RFC 3339, then Layouts in order, then
// dateparse's format detection. Values without a zone are read in Location.
type TimeParser struct {
	Layouts  []string
	Location *time.Location
}

func (p TimeParser) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// Parse reports false for values that do not denote a time, including times
// outside years 0 to 9999, which cannot be rendered as RFC 3339.
func (p TimeParser) Parse(v interface{}) (time.Time, bool) {
	ts, ok := p.parse(v)
	if !ok || !renderable(ts) {
		return time.Time{}, false
	}
	return ts, true
}

func renderable(ts time.Time) bool {
	y := ts.Year()
	return y >= 0 && y <= 9999
}

func (p TimeParser) parse(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case float64:
		return fromMillis(t)
	case float32:
		return fromMillis(float64(t))
	case int:
		return time.UnixMilli(int64(t)).UTC(), true
	case int64:
		return time.UnixMilli(t).UTC(), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromMillis(f)
	case string:
		return p.parseString(t)
	default:
		return time.Time{}, false
	}
}

func (p TimeParser) parseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, true
	}
	for _, layout := range p.Layouts {
		if ts, err := time.ParseInLocation(layout, s, p.location()); err == nil {
			return ts, true
		}
	}
	ts, err := dateparse.ParseIn(s, p.location())
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func fromMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}
