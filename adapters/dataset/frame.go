package dataset

import (
	"strconv"
	"strings"
)

// missingTokens mirrors the usual CSV sentinels for absent values.
var missingTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NULL": true,
	"null": true,
	"NaN":  true,
	"nan":  true,
}

// IsMissing reports whether a raw cell value represents a missing
// observation.
func IsMissing(value string) bool {
	return missingTokens[strings.TrimSpace(value)]
}

// ParseNumeric coerces a raw cell to a float64. The second return value is
// false when the cell is missing or not numeric.
func ParseNumeric(value string) (float64, bool) {
	trimmed := strings.TrimSpace(value)
	if IsMissing(trimmed) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(trimmed, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Frame is an in-memory table of raw string cells with named columns. It is
// read-only after construction.
type Frame struct {
	columns []string
	rows    [][]string
	index   map[string]int
}

// NewFrame builds a frame from a header and data rows. Rows shorter than
// the header are padded with empty cells; longer rows are truncated.
func NewFrame(columns []string, rows [][]string) *Frame {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, exists := index[c]; !exists {
			index[c] = i
		}
	}

	normalized := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) == len(columns) {
			normalized[i] = row
			continue
		}
		fixed := make([]string, len(columns))
		copy(fixed, row)
		normalized[i] = fixed
	}

	return &Frame{columns: columns, rows: normalized, index: index}
}

// Columns returns the column names in table order.
func (f *Frame) Columns() []string {
	return f.columns
}

// RowCount returns the number of data rows.
func (f *Frame) RowCount() int {
	return len(f.rows)
}

// HasColumn reports whether the frame contains the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Cell returns the raw value at (row, column name).
func (f *Frame) Cell(row int, column string) string {
	ci, ok := f.index[column]
	if !ok || row < 0 || row >= len(f.rows) {
		return ""
	}
	return f.rows[row][ci]
}

// Column returns all raw values of the named column.
func (f *Frame) Column(name string) ([]string, bool) {
	ci, ok := f.index[name]
	if !ok {
		return nil, false
	}
	values := make([]string, len(f.rows))
	for i, row := range f.rows {
		values[i] = row[ci]
	}
	return values, true
}

// Head returns up to n leading rows, for the raw-data preview.
func (f *Frame) Head(n int) [][]string {
	if n > len(f.rows) {
		n = len(f.rows)
	}
	return f.rows[:n]
}

// filterRows returns a new frame containing only the rows whose index the
// keep predicate accepts.
func (f *Frame) filterRows(keep func(row int) bool) *Frame {
	kept := make([][]string, 0, len(f.rows))
	for i, row := range f.rows {
		if keep(i) {
			kept = append(kept, row)
		}
	}
	return &Frame{columns: f.columns, rows: kept, index: f.index}
}
