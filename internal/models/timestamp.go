package models

import (
	"fmt"
	"strings"
	"time"
)

// LocalTimestampLayout is accepted for timestamps without a zone; they are read as UTC.
const LocalTimestampLayout = "2006-01-02T15:04:05"

// ParseTimestamp reads an RFC 3339 timestamp or a zone-less local one.
// An empty string yields the zero time.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(LocalTimestampLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
	}
	return t, nil
}
