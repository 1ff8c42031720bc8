// Package util provides small time and numeric helpers shared across the
// circuit breaker and router packages.
package util

import (
	"strings"
	"time"
)

const float64EqualityThreshold = 1e-9

// CurrentTimeMillis returns the current wall-clock time in milliseconds.
func CurrentTimeMillis() uint64 {
	return uint64(time.Now().UnixNano() / int64(time.Millisecond))
}

// CurrentTimeNano returns the current wall-clock time in nanoseconds.
func CurrentTimeNano() uint64 {
	return uint64(time.Now().UnixNano())
}

// Float64Equals reports whether a and b are equal within a small epsilon,
// avoiding the usual float equality trap when comparing ratios/thresholds.
func Float64Equals(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < float64EqualityThreshold
}

// IsBlank reports whether s is empty once surrounding whitespace is trimmed.
func IsBlank(s string) bool {
	return len(strings.TrimSpace(s)) == 0
}
