/*
mapping.go - Source column vocabularies

PURPOSE:
  Maps the two known export layouts onto the engine's raw row types.
  Column names follow CDISC-style lab domain conventions:

  Site EDC export (one row per planned sample per visit):
    PATIENT          subject identifier
    SITE             site identifier
    VISITORFORMNAME  raw visit name
    LBCAT            category (Chemistry, Hematology, ...)
    LBDAT            collection date, DD/MMM/YYYY
    LBPERF           performed flag

  Central lab export (one row per individual test):
    USUBJID          subject identifier
    VISIT            raw visit name
    LBCAT            category
    LBDTC            collection date-time, ISO-8601
    LBTESTCD         test code
    LBREFID          sample/accession identifier (optional)

  Require() runs before any row mapping, so a file missing columns fails
  fast with the complete missing list.
*/
package ingest

import (
	"path/filepath"
	"strings"

	"github.com/warp/recon-engine/recon"
)

// Required columns per source layout. LBREFID is optional: older lab
// exports predate accession tracking.
var (
	SiteColumns = []string{"PATIENT", "SITE", "VISITORFORMNAME", "LBCAT", "LBDAT", "LBPERF"}
	LabColumns  = []string{"USUBJID", "VISIT", "LBCAT", "LBDTC", "LBTESTCD"}
)

// SiteRows validates and maps a site-metadata table.
func SiteRows(t *Table) ([]recon.SiteRow, error) {
	if err := t.Require(SiteColumns...); err != nil {
		return nil, err
	}
	if t.Empty() {
		return nil, &recon.EmptyInputError{Source: t.Source}
	}

	rows := make([]recon.SiteRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		rows = append(rows, recon.SiteRow{
			Subject:        t.Cell(row, "PATIENT"),
			Site:           t.Cell(row, "SITE"),
			Visit:          t.Cell(row, "VISITORFORMNAME"),
			Category:       t.Cell(row, "LBCAT"),
			CollectionDate: t.Cell(row, "LBDAT"),
			Performed:      t.Cell(row, "LBPERF"),
		})
	}
	return rows, nil
}

// LabRows validates and maps a central-lab table.
func LabRows(t *Table) ([]recon.LabRow, error) {
	if err := t.Require(LabColumns...); err != nil {
		return nil, err
	}
	if t.Empty() {
		return nil, &recon.EmptyInputError{Source: t.Source}
	}

	rows := make([]recon.LabRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		rows = append(rows, recon.LabRow{
			Subject:            t.Cell(row, "USUBJID"),
			Visit:              t.Cell(row, "VISIT"),
			Category:           t.Cell(row, "LBCAT"),
			CollectionDateTime: t.Cell(row, "LBDTC"),
			TestCode:           t.Cell(row, "LBTESTCD"),
			SampleID:           t.Cell(row, "LBREFID"),
		})
	}
	return rows, nil
}

// ReadTable picks the reader by file extension: .xlsx/.xlsm go through the
// workbook reader, everything else is treated as delimited text.
func ReadTable(source string, data []byte) (*Table, error) {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".xlsx", ".xlsm":
		return ReadWorkbook(source, data)
	default:
		return ReadCSV(source, data)
	}
}
