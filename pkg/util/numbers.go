package util

import (
	"math"
	"strconv"
)

// ParseFinite parses a decoded JSON field as a finite float64.
func ParseFinite(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			return t, true
		}
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	}
	return 0, false
}

// FiniteOr returns v when finite, def otherwise.
func FiniteOr(v interface{}, def float64) float64 {
	if f, ok := ParseFinite(v); ok {
		return f
	}
	return def
}

// IntOr parses a decoded JSON field as an int or returns def.
func IntOr(v interface{}, def int) int {
	if f, ok := ParseFinite(v); ok {
		return int(f)
	}
	return def
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
