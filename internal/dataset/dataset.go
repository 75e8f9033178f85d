// Package dataset holds the in-memory tabular representation of an uploaded
// file and the read-only relational operations the tool catalog runs on it.
package dataset

import (
	"strconv"
	"strings"

	"github.com/csvchat/csvchat/internal/domain"
)

// ColumnType is the inferred scalar type of a column.
type ColumnType string

const (
	TypeNumeric  ColumnType = "numeric"
	TypeText     ColumnType = "text"
	TypeTemporal ColumnType = "temporal"
	TypeBoolean  ColumnType = "boolean"
)

// Column is a named, typed column.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Dataset is an ordered sequence of named columns plus row data. The column
// set is immutable after parse and no operation mutates the row data; all
// relational operations return derived views or fresh values, so concurrent
// reads from multiple queries are safe without locking.
type Dataset struct {
	cols  []Column
	index map[string]int
	rows  [][]string
}

// New builds a Dataset from typed columns and row data. Callers normally go
// through Parse; New exists for tests and derived views.
func New(cols []Column, rows [][]string) *Dataset {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c.Name] = i
	}
	return &Dataset{cols: cols, index: index, rows: rows}
}

// Columns returns the declared columns in order.
func (d *Dataset) Columns() []Column { return d.cols }

// ColumnNames returns just the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.cols))
	for i, c := range d.cols {
		names[i] = c.Name
	}
	return names
}

// NumRows returns the row count fixed at parse time.
func (d *Dataset) NumRows() int { return len(d.rows) }

// NumCols returns the column count.
func (d *Dataset) NumCols() int { return len(d.cols) }

// ColumnIndex resolves a column name. Column names are case-sensitive.
func (d *Dataset) ColumnIndex(name string) (int, error) {
	if i, ok := d.index[name]; ok {
		return i, nil
	}
	return 0, domain.NewError(domain.CodeColumnNotFound,
		"column %q not found; available columns: %s", name, strings.Join(d.ColumnNames(), ", "))
}

// Column returns the column descriptor for a name.
func (d *Dataset) Column(name string) (Column, error) {
	i, err := d.ColumnIndex(name)
	if err != nil {
		return Column{}, err
	}
	return d.cols[i], nil
}

// Cell returns the raw string value at (row, col).
func (d *Dataset) Cell(row, col int) string { return d.rows[row][col] }

// Float parses the cell at (row, col) as a number. Empty cells report ok=false.
func (d *Dataset) Float(row, col int) (float64, bool) {
	return parseNumber(d.rows[row][col])
}

// Record materializes one row as a column-keyed map with typed values,
// suitable for JSON responses.
func (d *Dataset) Record(row int) map[string]interface{} {
	rec := make(map[string]interface{}, len(d.cols))
	for i, c := range d.cols {
		raw := d.rows[row][i]
		if c.Type == TypeNumeric {
			if f, ok := parseNumber(raw); ok {
				rec[c.Name] = f
				continue
			}
		}
		rec[c.Name] = raw
	}
	return rec
}

// Records materializes up to limit rows; limit <= 0 means all rows.
func (d *Dataset) Records(limit int) []map[string]interface{} {
	n := len(d.rows)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, d.Record(i))
	}
	return out
}

// parseNumber parses a numeric cell, tolerating thousands separators.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
