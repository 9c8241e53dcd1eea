package util

import (
	"strconv"
	"strings"
	"time"
)

// DisplayDateFormat is the canonical display form for candle dates.
const DisplayDateFormat = "2006-01-02 15:04:05"

var dateLayouts = []string{
	DisplayDateFormat,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseMillis parses an epoch-milliseconds value from a decoded JSON field.
// Returns (ms, true) only for positive integral values.
func ParseMillis(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case float64:
		ms := int64(t)
		if ms > 0 && float64(ms) == t {
			return ms, true
		}
	case string:
		if ms, err := strconv.ParseInt(t, 10, 64); err == nil && ms > 0 {
			return ms, true
		}
	case int64:
		if t > 0 {
			return t, true
		}
	}
	return 0, false
}

// FormatMillis renders an epoch-ms timestamp in the display date format (UTC).
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DisplayDateFormat)
}

// ValidateDate returns (s, true) if s parses under any accepted layout.
// Strings containing "NaN" are rejected outright; upstream sometimes
// interpolates missing values into date strings.
func ValidateDate(s string) (string, bool) {
	if s == "" || strings.Contains(s, "NaN") {
		return "", false
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return s, true
		}
	}
	return "", false
}

// DayUTC returns the calendar day (YYYY-MM-DD, UTC) containing ms.
func DayUTC(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}
