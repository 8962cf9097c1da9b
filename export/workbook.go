/*
workbook.go - Five-sheet gap analysis workbook

Sheet layout mirrors the hierarchy of the gap views:
  1. Summary         counts for every gap type plus source-data totals
  2. Subject Gaps    subjects missing from one system
  3. Visit Gaps      visits missing for subjects present in both
  4. Category Gaps   categories missing for subject+visit present in both
  5. Date Mismatches matched records whose dates differ

Each data sheet gets a styled header row and autosized columns; an empty
view gets a single placeholder row so reviewers see "none found" instead
of a blank sheet.
*/
package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/warp/recon-engine/recon"
)

const (
	sheetSummary        = "1. Summary"
	sheetSubjectGaps    = "2. Subject Gaps"
	sheetVisitGaps      = "3. Visit Gaps"
	sheetCategoryGaps   = "4. Category Gaps"
	sheetDateMismatches = "5. Date Mismatches"

	maxColumnWidth = 50
)

// gapLabel renders the side tag the way reviewers read it.
func gapLabel(side recon.Side) string {
	if side == recon.SideSite {
		return "In EDC, not in Lab"
	}
	return "In Lab, not in EDC"
}

// BuildWorkbook renders the report into an in-memory workbook. The caller
// decides whether to stream it over HTTP or save it to disk.
func BuildWorkbook(report *recon.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	sheets := []struct {
		name   string
		header []string
		rows   [][]any
	}{
		{sheetSummary, []string{"Metric", "Value"}, summaryRows(report)},
		{sheetSubjectGaps,
			[]string{"Subject", "Gap Type", "Site", "Visits", "Categories", "Records"},
			subjectGapRows(report.SubjectGaps)},
		{sheetVisitGaps,
			[]string{"Subject", "Visit", "Gap Type", "Categories", "Date"},
			visitGapRows(report.VisitGaps)},
		{sheetCategoryGaps,
			[]string{"Subject", "Visit", "Category", "Gap Type", "EDC Date", "Lab Date"},
			categoryGapRows(report.CategoryGaps)},
		{sheetDateMismatches,
			[]string{"Subject", "Visit", "Category", "EDC Date", "Lab Date", "Diff (days)"},
			dateMismatchRows(report.DateMismatches)},
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet.name); err != nil {
			return nil, err
		}
		if err := writeSheet(f, sheet.name, sheet.header, sheet.rows, headerStyle); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// SaveWorkbook renders and writes the workbook to disk.
func SaveWorkbook(report *recon.Report, path string) error {
	f, err := BuildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	widths := make([]int, len(header))

	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
		widths[col] = len(h)
	}

	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
			if col < len(widths) {
				if n := len(fmt.Sprint(value)); n > widths[col] {
					widths[col] = n
				}
			}
		}
	}

	for col := range header {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		width := widths[col] + 2
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := f.SetColWidth(sheet, name, name, float64(width)); err != nil {
			return err
		}
	}

	return nil
}

// =============================================================================
// SHEET ROW BUILDERS
// =============================================================================

func summaryRows(report *recon.Report) [][]any {
	s := report.Stats
	d := report.Diagnostics
	return [][]any{
		{"SUBJECT GAPS", ""},
		{"Subjects in EDC only (not in Lab)", s.SubjectsSiteOnly},
		{"Subjects in Lab only (not in EDC)", s.SubjectsLabOnly},
		{"Subjects in both systems", s.SubjectsBoth},
		{"", ""},
		{"VISIT GAPS (for subjects in both)", ""},
		{"Visit gaps", len(report.VisitGaps)},
		{"", ""},
		{"CATEGORY GAPS (subject+visit+category level)", ""},
		{"In EDC, not in Lab", s.SiteOnly},
		{"In Lab, not in EDC", s.LabOnly},
		{"Matched", s.Matched},
		{"Match rate (%)", s.MatchRate.String()},
		{"", ""},
		{"DATE MISMATCHES (matched records with different dates)", ""},
		{"Date mismatches", s.DateMismatches},
		{"Dates missing on one side", s.DateMissing},
		{"", ""},
		{"SOURCE DATA", ""},
		{"Total EDC rows", s.SourceSiteRows},
		{"Total Lab test rows", s.SourceLabRows},
		{"EDC rows dropped (missing key fields)", d.SiteRowsDropped},
		{"Lab rows dropped (missing key fields)", d.LabRowsDropped},
		{"Lab rows excluded (administrative)", d.LabRowsExcluded},
		{"Ambiguous lab date groups", d.AmbiguousDateGroups},
	}
}

func subjectGapRows(gaps []recon.SubjectGap) [][]any {
	if len(gaps) == 0 {
		return [][]any{{"No subject gaps found", "", "", "", "", ""}}
	}
	rows := make([][]any, 0, len(gaps))
	for _, g := range gaps {
		rows = append(rows, []any{
			string(g.Subject), gapLabel(g.Side), g.SiteID,
			g.VisitCount, joinCategories(g.Categories), g.Records,
		})
	}
	return rows
}

func visitGapRows(gaps []recon.VisitGap) [][]any {
	if len(gaps) == 0 {
		return [][]any{{"No visit gaps found", "", "", "", ""}}
	}
	rows := make([][]any, 0, len(gaps))
	for _, g := range gaps {
		rows = append(rows, []any{
			string(g.Subject), string(g.Visit), gapLabel(g.Side),
			joinCategories(g.Categories), g.Date.String(),
		})
	}
	return rows
}

func categoryGapRows(gaps []recon.CategoryGap) [][]any {
	if len(gaps) == 0 {
		return [][]any{{"No category gaps found", "", "", "", "", ""}}
	}
	rows := make([][]any, 0, len(gaps))
	for _, g := range gaps {
		rows = append(rows, []any{
			string(g.Subject), string(g.Visit), string(g.Category),
			gapLabel(g.Side), g.SiteDate.String(), g.LabDate.String(),
		})
	}
	return rows
}

func dateMismatchRows(mismatches []recon.DateMismatch) [][]any {
	if len(mismatches) == 0 {
		return [][]any{{"No date mismatches found", "", "", "", "", ""}}
	}
	rows := make([][]any, 0, len(mismatches))
	for _, m := range mismatches {
		rows = append(rows, []any{
			string(m.Subject), string(m.Visit), string(m.Category),
			m.SiteDate.String(), m.LabDate.String(), strconv.Itoa(m.DiffDays),
		})
	}
	return rows
}

func joinCategories(categories []recon.Category) string {
	parts := make([]string, len(categories))
	for i, c := range categories {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
