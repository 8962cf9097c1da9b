/*
Package ingest reads the two source tables into memory.

PURPOSE:
  The ingestion boundary between raw uploaded bytes and the reconciliation
  engine. Responsibilities:
  - Decode raw bytes, trying an ordered list of text encodings
  - Parse delimited text (CSV) and spreadsheet workbooks (xlsx)
  - Validate presence of required columns BEFORE any row is processed
  - Map source column vocabularies onto the engine's raw row types

  This is the only place the system does I/O-shaped work; once a Table is
  materialized the engine runs as a pure in-memory computation.

TABLE MODEL:
  A Table is just a header plus string rows. Column lookup is
  case-insensitive and whitespace-trimmed because both source systems are
  inconsistent about header casing.

FAIL-FAST VALIDATION:
  Require() reports ALL missing columns at once, not just the first, so a
  human fixes the source file in one round trip.

SEE ALSO:
  - encoding.go: Candidate encoding list
  - csv.go, workbook.go: Format readers
  - mapping.go: Source column vocabularies
*/
package ingest

import (
	"strings"

	"github.com/warp/recon-engine/recon"
)

// Table is a fully materialized input table: one header row and zero or
// more data rows, all strings.
type Table struct {
	Source string // file name, for error messages
	Header []string
	Rows   [][]string

	index map[string]int // normalized header -> column position
}

// NewTable builds a table and its column index.
func NewTable(source string, header []string, rows [][]string) *Table {
	t := &Table{Source: source, Header: header, Rows: rows}
	t.index = make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, exists := t.index[key]; !exists {
			t.index[key] = i
		}
	}
	return t
}

func normalizeHeader(h string) string {
	return strings.ToUpper(strings.TrimSpace(h))
}

// Column returns the position of a named column, or -1.
func (t *Table) Column(name string) int {
	i, ok := t.index[normalizeHeader(name)]
	if !ok {
		return -1
	}
	return i
}

// Cell returns the trimmed value at (row, column name); empty string when
// the column is absent or the row is short.
func (t *Table) Cell(row []string, name string) string {
	i := t.Column(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Require validates that every named column exists, reporting all missing
// columns at once. Must be called before processing any row.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if t.Column(c) < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &recon.MissingColumnsError{Source: t.Source, Columns: missing}
	}
	return nil
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool { return len(t.Rows) == 0 }
