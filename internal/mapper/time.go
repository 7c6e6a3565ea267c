package mapper

import (
	"strconv"
	"time"
)

// Timestamp layouts observed across vendor client versions. Some return
// RFC 3339 with a zone, some a bare datetime, some epoch milliseconds.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a vendor timestamp, trying the known string
// layouts first and falling back to epoch milliseconds. This dual-path
// parse exists because different vendor client versions return either a
// formatted string or a raw epoch for the same field.
func ParseTimestamp(entity, field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, Missing(entity, field)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, Errorf(entity, field, "cannot parse %q as timestamp", s)
}

// CombineDateTime combines a session date ("2006-01-02") with a wall
// time ("15:04") into one timestamp in the given location.
func CombineDateTime(entity, field, date, wall string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, Errorf(entity, field, "cannot parse date %q", date)
	}
	t, err := time.Parse("15:04", wall)
	if err != nil {
		return time.Time{}, Errorf(entity, field, "cannot parse time %q", wall)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
