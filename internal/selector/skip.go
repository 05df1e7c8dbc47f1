package selector

import (
	"math"
	"strconv"
	"strings"
)

// ValidateSkip checks that skip is a usable offset.
func ValidateSkip(skip int) error {
	if skip < 0 {
		return newValidationError("skip", skip, "must be a non-negative integer")
	}
	return nil
}

// ParseSkip parses a skip value given as text (CLI flag, query string).
// An empty value means the offset was omitted and is the same as 0.
func ParseSkip(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, newValidationError("skip", raw, "must be a non-negative integer")
	}
	if err := ValidateSkip(n); err != nil {
		return 0, newValidationError("skip", raw, "must be a non-negative integer")
	}
	return n, nil
}

// maxExactSkip is the largest integer a JSON number holds without rounding.
const maxExactSkip = 1 << 53

// SkipFromNumber converts a decoded JSON number into a skip value. NaN,
// infinities, fractions and negatives are rejected.
func SkipFromNumber(v float64) (int, error) {
	switch {
	case math.IsNaN(v):
		return 0, newValidationError("skip", v, "is not a number")
	case math.IsInf(v, 0):
		return 0, newValidationError("skip", v, "must be finite")
	case v != math.Trunc(v):
		return 0, newValidationError("skip", v, "must be an integer")
	case v < 0:
		return 0, newValidationError("skip", v, "must be a non-negative integer")
	case v > maxExactSkip || v > float64(math.MaxInt):
		return 0, newValidationError("skip", v, "is too large")
	}
	return int(v), nil
}
