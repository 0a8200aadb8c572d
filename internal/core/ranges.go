package core

import (
	"errors"
	"strings"
)

// ColorRange is one legend class. The first class has no lower bound and
// the last has no upper bound.
type ColorRange struct {
	From *float64 `json:"from,omitempty"`
	To   *float64 `json:"to,omitempty"`
}

var errMissingUpper = errors.New("missing upper bound")

// ClassifyRanges parses legend range text such as "100,100-200,200-300,300".
//
// Tokens are comma separated and carriage returns are ignored. The first
// token is an upper bound, the last a lower bound, and every token in
// between is "lower-upper". When a boundary token is written as a pair,
// only its first number is used. Empty text yields no classes.
//
// Any non-numeric bound fails with a *RangeError.
func ClassifyRanges(text string) ([]ColorRange, error) {
	text = strings.ReplaceAll(text, "\r", "")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	tokens := strings.Split(text, ",")
	last := len(tokens) - 1
	ranges := make([]ColorRange, 0, len(tokens))

	for i, token := range tokens {
		parts := strings.Split(strings.TrimSpace(token), "-")

		first, err := parseBound(parts[0])
		if err != nil {
			return nil, &RangeError{Index: i, Token: token, Err: err}
		}

		switch {
		case i == 0:
			ranges = append(ranges, ColorRange{To: &first})
		case i == last:
			ranges = append(ranges, ColorRange{From: &first})
		default:
			if len(parts) < 2 {
				return nil, &RangeError{Index: i, Token: token, Err: errMissingUpper}
			}
			second, err := parseBound(parts[1])
			if err != nil {
				return nil, &RangeError{Index: i, Token: token, Err: err}
			}
			ranges = append(ranges, ColorRange{From: &first, To: &second})
		}
	}

	return ranges, nil
}
