/*
workbook.go - Spreadsheet workbook reader

Reads the first sheet of an xlsx workbook into a Table via excelize. Site
EDC exports arrive as single-sheet workbooks; only the first sheet is
data, anything else is export tooling noise.
*/
package ingest

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/warp/recon-engine/recon"
)

// ReadWorkbook parses an xlsx workbook into a Table from the first sheet.
func ReadWorkbook(source string, data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: opening workbook: %w", source, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &recon.EmptyInputError{Source: source}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%s: reading sheet %q: %w", source, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, &recon.EmptyInputError{Source: source}
	}

	return NewTable(source, rows[0], rows[1:]), nil
}
