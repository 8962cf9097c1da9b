/*
Package export renders a reconciliation report for consumers.

PURPOSE:
  The export boundary the surrounding application uses to hand results to
  humans: a flat CSV of every reconciliation record and a five-sheet
  workbook with the hierarchical gap analysis. The engine itself exposes
  no file format; this package owns column layouts, sheet names and the
  timestamped filename convention.

OUTPUTS:
  - WriteCSV:      one row per reconciliation key
  - BuildWorkbook: Summary, Subject Gaps, Visit Gaps, Category Gaps,
                   Date Mismatches

SEE ALSO:
  - workbook.go: Workbook layout and styling
  - filenames.go: Timestamped output names
*/
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/warp/recon-engine/recon"
)

// csvHeader is the flat reconciliation table layout: one row per key.
var csvHeader = []string{
	"Subject", "Site", "Visit", "Category",
	"Match_Status", "Date_Match",
	"EDC_Date", "Lab_Date", "Date_Diff_Days",
	"Num_Tests",
}

// WriteCSV writes the flat reconciliation table. Row order follows the
// report's deterministic emission order.
func WriteCSV(w io.Writer, report *recon.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range report.Results {
		row := []string{
			string(r.Key.Subject),
			r.SiteID,
			string(r.Key.Visit),
			string(r.Key.Category),
			string(r.Status),
			string(r.DateMatch),
			r.SiteDate.String(),
			r.LabDate.String(),
			diffCell(r),
			testCountCell(r),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func diffCell(r recon.Result) string {
	if !r.DiffKnown {
		return ""
	}
	return strconv.Itoa(r.DiffDays)
}

func testCountCell(r recon.Result) string {
	if r.Status == recon.StatusSiteOnly {
		return ""
	}
	return strconv.Itoa(r.TestCount)
}
