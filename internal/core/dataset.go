package core

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Default 1-based dataset columns.
const (
	DefaultKeyColumn   = 1
	DefaultValueColumn = 2
)

// DatasetRow is one (region key, value) pair. It serializes as [key, value],
// the tuple form the map library consumes.
type DatasetRow struct {
	Key   string
	Value float64
}

// MarshalJSON writes the row as a two-element array.
func (r DatasetRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{r.Key, r.Value})
}

// UnmarshalJSON reads a [key, value] array.
func (r *DatasetRow) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("dataset row: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &r.Key); err != nil {
		return fmt.Errorf("dataset row key: %w", err)
	}
	return json.Unmarshal(pair[1], &r.Value)
}

// DatasetOptions controls how raw dataset text is read.
type DatasetOptions struct {
	Delimiter   string // Single character; "" means ",", `\t` means tab
	KeyColumn   int    // 1-based; 0 means DefaultKeyColumn
	ValueColumn int    // 1-based; 0 means DefaultValueColumn
	MaxRows     int    // 0 means unlimited
	MaxBytes    int64  // 0 means unlimited
}

// ParseDataset turns delimited text into dataset rows.
//
// Each non-blank record yields one row in input order. Fields follow CSV
// quoting, so a quoted field may contain the delimiter or a line break.
// The key is taken verbatim and the value is coerced with CoerceNumber.
// A record too short for either column fails with a *ColumnError.
func ParseDataset(raw string, opts DatasetOptions) ([]DatasetRow, error) {
	return ReadDataset(strings.NewReader(raw), opts)
}

// ReadDataset is ParseDataset over a stream.
func ReadDataset(r io.Reader, opts DatasetOptions) ([]DatasetRow, error) {
	comma, err := datasetDelimiter(opts.Delimiter)
	if err != nil {
		return nil, err
	}
	keyIdx, valueIdx, err := columnOffsets(opts.KeyColumn, opts.ValueColumn)
	if err != nil {
		return nil, err
	}
	need := max(keyIdx, valueIdx)

	reader := csv.NewReader(NewDatasetReader(r, opts.MaxBytes))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows := make([]DatasetRow, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, ErrDatasetTooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformedDataset, err)
		}
		if isBlankRecord(record) {
			continue
		}

		if need >= len(record) {
			line, _ := reader.FieldPos(0)
			return nil, &ColumnError{Line: line, Column: need + 1, Width: len(record)}
		}
		if opts.MaxRows > 0 && len(rows) >= opts.MaxRows {
			return nil, fmt.Errorf("%w: more than %d rows", ErrDatasetTooLarge, opts.MaxRows)
		}

		rows = append(rows, DatasetRow{
			Key:   record[keyIdx],
			Value: CoerceNumber(record[valueIdx]),
		})
	}

	return rows, nil
}

// datasetDelimiter resolves the stored delimiter to a rune the tokenizer accepts.
func datasetDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case `\t`:
		return '\t', nil
	}

	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("%w: %q must be a single character", ErrInvalidDelimiter, s)
	}
	if r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("%w: %q cannot be used", ErrInvalidDelimiter, s)
	}
	return r, nil
}

// columnOffsets converts 1-based columns to 0-based indexes.
func columnOffsets(key, value int) (int, int, error) {
	if key == 0 {
		key = DefaultKeyColumn
	}
	if value == 0 {
		value = DefaultValueColumn
	}
	if key < 1 || value < 1 {
		return 0, 0, fmt.Errorf("%w: columns are 1-based (key %d, value %d)", ErrColumnOutOfRange, key, value)
	}
	return key - 1, value - 1, nil
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
