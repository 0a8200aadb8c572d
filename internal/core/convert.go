package core

// convert.go turns the text an author typed into numbers.
//
// Two policies apply:
//   - CoerceNumber is lenient. Dataset values use the longest numeric prefix
//     and fall back to 0, so "12 people" is 12 and "n/a" is 0.
//   - parseBound is strict. Legend ranges and axis bounds must be entire
//     finite numbers, so a typo is reported instead of silently becoming 0.

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericPrefix matches integers, decimals and scientific notation at the
// start of a string.
var numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

var errNotNumber = errors.New("not a finite number")

// CoerceNumber converts a dataset cell to a number. Leading and trailing
// whitespace is ignored. Values without a numeric prefix, and values that
// overflow float64, become 0.
func CoerceNumber(s string) float64 {
	m := numericPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseBound parses a whole, finite number.
func parseBound(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errNotNumber
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotNumber
	}
	return f, nil
}

// axisBound parses a colour axis bound. ok is false for empty or non-numeric text.
func axisBound(s LooseString) (v float64, ok bool) {
	v, err := parseBound(string(s))
	return v, err == nil
}

// FormatNumber renders a value the shortest way that round-trips.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
