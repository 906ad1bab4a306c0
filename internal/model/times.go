package model

import (
	"strings"
	"time"
)

// apiTimeLayouts are the timestamp shapes observed in the source API.
// Offsets are sometimes omitted; such values are treated as UTC.
var apiTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseAPITime parses an OData timestamp tolerantly. A trailing "Z" and
// explicit offsets are both accepted; values without an offset are read
// as UTC. Returns false for empty or unparseable input.
func ParseAPITime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range apiTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatAPITime renders a timestamp the way the OData $filter grammar
// expects: UTC with millisecond precision and a "Z" suffix.
func FormatAPITime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000") + "Z"
}
