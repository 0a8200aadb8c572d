package core

import (
	"errors"
	"fmt"
)

// Render pipeline errors. Structural errors abort a render; ErrMalformedRange
// only drops the legend classification.
var (
	// ErrMissingMapType means chart.map is absent or not in the registry.
	ErrMissingMapType = errors.New("missing map type")

	// ErrInvalidConfig means the stored document is not a usable map config.
	ErrInvalidConfig = errors.New("invalid map config")

	// ErrColumnOutOfRange means a dataset row is shorter than a requested column.
	ErrColumnOutOfRange = errors.New("dataset column out of range")

	// ErrInvalidDelimiter means the dataset delimiter is not a single usable character.
	ErrInvalidDelimiter = errors.New("invalid dataset delimiter")

	// ErrMalformedDataset means the dataset text could not be tokenized.
	ErrMalformedDataset = errors.New("malformed dataset")

	// ErrDatasetTooLarge means the dataset exceeds the configured size guard.
	ErrDatasetTooLarge = errors.New("dataset too large")

	// ErrMalformedRange means a legend range token is not numeric.
	ErrMalformedRange = errors.New("malformed legend range")

	// ErrMapNotFound means no stored map field has the requested ID.
	ErrMapNotFound = errors.New("map not found")
)

// ColumnError reports a dataset row that is too short for the selected columns.
type ColumnError struct {
	Line   int // 1-based line in the raw dataset text
	Column int // 1-based column that was requested
	Width  int // Number of columns the row actually has
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%v: line %d has %d column(s), column %d requested",
		ErrColumnOutOfRange, e.Line, e.Width, e.Column)
}

func (e *ColumnError) Unwrap() error {
	return ErrColumnOutOfRange
}

// RangeError reports the legend range token that failed to parse.
type RangeError struct {
	Index int    // 0-based position of the token in the list
	Token string // Token as typed
	Err   error  // Underlying parse failure
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v: token %d (%q): %v", ErrMalformedRange, e.Index+1, e.Token, e.Err)
}

func (e *RangeError) Unwrap() error {
	return ErrMalformedRange
}
