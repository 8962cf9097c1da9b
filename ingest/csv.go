/*
csv.go - Delimited text reader

Reads a CSV export into a Table after encoding detection. Ragged rows are
tolerated (FieldsPerRecord is disabled) because lab exports occasionally
omit trailing empty fields; Cell() treats a short row as empty cells.
*/
package ingest

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/warp/recon-engine/recon"
)

// ReadCSV parses delimited text into a Table. The first record is the
// header. An input with no records at all is an EmptyInputError.
func ReadCSV(source string, data []byte) (*Table, error) {
	text, err := DecodeText(source, data)
	if err != nil {
		return nil, err
	}

	// Strip a UTF-8 BOM if the export carried one.
	text = strings.TrimPrefix(text, "\uFEFF")

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: parsing CSV: %w", source, err)
	}
	if len(records) == 0 {
		return nil, &recon.EmptyInputError{Source: source}
	}

	return NewTable(source, records[0], records[1:]), nil
}
