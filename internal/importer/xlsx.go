// Package importer converts spreadsheet workbooks to dataset text.
//
// Authors keep their figures in Excel. Rather than teaching the dataset
// parser a second format, a sheet is written out as delimited text that is
// pasted into series.data like any hand-typed dataset.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrInvalidWorkbook indicates the input is not a readable xlsx file.
	ErrInvalidWorkbook = errors.New("invalid xlsx workbook")

	// ErrSheetNotFound indicates the requested sheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrTooManyRows indicates the sheet exceeds Options.MaxRows.
	ErrTooManyRows = errors.New("sheet has too many rows")
)

// Options controls sheet conversion.
type Options struct {
	Sheet   string // Sheet name; "" selects the first sheet
	Comma   rune   // Output delimiter; 0 means ','
	MaxRows int    // 0 means unlimited
}

// Result is a converted sheet.
type Result struct {
	ID    string `json:"id,omitempty"`
	Sheet string `json:"sheet"`
	Rows  int    `json:"rows"`
	Data  string `json:"data"`
}

// SheetToText reads a workbook from r and returns one sheet as delimited text.
// Cell values are raw (unformatted) and empty rows are dropped.
func SheetToText(r io.Reader, opts Options) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	sheet, err := pickSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	comma := opts.Comma
	if comma == 0 {
		comma = ','
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	w.Comma = comma

	written := 0
	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		if opts.MaxRows > 0 && written >= opts.MaxRows {
			return nil, fmt.Errorf("%w: %q has more than %d", ErrTooManyRows, sheet, opts.MaxRows)
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
		written++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}

	return &Result{Sheet: sheet, Rows: written, Data: buf.String()}, nil
}

// SheetNames lists the sheets of a workbook in tab order.
func SheetNames(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

func pickSheet(f *excelize.File, name string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("%w: workbook has no sheets", ErrSheetNotFound)
	}
	if name == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
