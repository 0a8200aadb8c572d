package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/mapfield/internal/importer"
	"github.com/JonMunkholm/mapfield/internal/maptype"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"missing map type", fmt.Errorf("%w: chart.map is empty", ErrMissingMapType), "MAP001"},
		{"unknown map type", fmt.Errorf("lookup: %w", maptype.ErrUnknownMapType), "MAP002"},
		{"resolve wraps unknown map type", fmt.Errorf("%w: %w", ErrMissingMapType, maptype.ErrUnknownMapType), "MAP001"},
		{"no example dataset", maptype.ErrNoExampleDataset, "MAP003"},
		{"map not found", fmt.Errorf("get map 1: %w", ErrMapNotFound), "MAP404"},
		{"invalid config", fmt.Errorf("%w: bad json", ErrInvalidConfig), "CFG001"},
		{"column error", &ColumnError{Line: 2, Column: 3, Width: 1}, "DATA001"},
		{"invalid delimiter", ErrInvalidDelimiter, "DATA002"},
		{"dataset too large", fmt.Errorf("%w: more than 10 rows", ErrDatasetTooLarge), "DATA003"},
		{"sheet too large", fmt.Errorf("%w: x", importer.ErrTooManyRows), "DATA003"},
		{"malformed dataset", ErrMalformedDataset, "DATA004"},
		{"range error", &RangeError{Index: 1, Token: "a-b", Err: errNotNumber}, "RNG001"},
		{"invalid workbook", importer.ErrInvalidWorkbook, "IMP001"},
		{"sheet not found", importer.ErrSheetNotFound, "IMP002"},
		{"too many imports", ErrTooManyImports, "IMP003"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), "DB001"},
		{"timeout", errors.New("read: i/o TIMEOUT"), "DB002"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(&RangeError{Index: 0, Token: "x", Err: errNotNumber})

	expected := "A legend range is not a number (Code: RNG001). Use the form 100,100-200,200"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known sentinel is user facing", ErrMissingMapType, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("get map 7: %w", ErrMapNotFound)
		userErr := NewUserError(techErr)

		if userErr.Error() != "Map not found" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrMapNotFound) {
			t.Error("Unwrap() should expose the technical error")
		}
	})
}
