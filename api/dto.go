/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's internal model from the external API contract, allowing
  field renaming and version evolution without breaking clients.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/recon-engine/recon"
	"github.com/warp/recon-engine/store/sqlite"
)

// =============================================================================
// RUN TYPES
// =============================================================================

// RunDTO summarizes a stored reconciliation run.
type RunDTO struct {
	ID             string `json:"id"`
	Label          string `json:"label,omitempty"`
	SiteFile       string `json:"site_file"`
	LabFile        string `json:"lab_file"`
	Total          int    `json:"total"`
	Matched        int    `json:"matched"`
	SiteOnly       int    `json:"site_only"`
	LabOnly        int    `json:"lab_only"`
	DateMismatches int    `json:"date_mismatches"`
	MatchRate      string `json:"match_rate"`
	CreatedAt      string `json:"created_at"`
}

func toRunDTO(run sqlite.RunRecord) RunDTO {
	return RunDTO{
		ID:             run.ID,
		Label:          run.Label,
		SiteFile:       run.SiteFile,
		LabFile:        run.LabFile,
		Total:          run.Stats.Total,
		Matched:        run.Stats.Matched,
		SiteOnly:       run.Stats.SiteOnly,
		LabOnly:        run.Stats.LabOnly,
		DateMismatches: run.Stats.DateMismatches,
		MatchRate:      run.Stats.MatchRate.String(),
		CreatedAt:      run.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// ReportResponse is the full reconciliation report for one run.
type ReportResponse struct {
	Run            RunDTO            `json:"run"`
	Stats          StatsDTO          `json:"stats"`
	Diagnostics    DiagnosticsDTO    `json:"diagnostics"`
	Results        []ResultDTO       `json:"results"`
	SubjectGaps    []SubjectGapDTO   `json:"subject_gaps"`
	VisitGaps      []VisitGapDTO     `json:"visit_gaps"`
	CategoryGaps   []CategoryGapDTO  `json:"category_gaps"`
	DateMismatches []DateMismatchDTO `json:"date_mismatches"`
}

type StatsDTO struct {
	Total            int    `json:"total"`
	Matched          int    `json:"matched"`
	SiteOnly         int    `json:"site_only"`
	LabOnly          int    `json:"lab_only"`
	DateMatches      int    `json:"date_matches"`
	DateMismatches   int    `json:"date_mismatches"`
	DateMissing      int    `json:"date_missing"`
	SubjectsSiteOnly int    `json:"subjects_site_only"`
	SubjectsLabOnly  int    `json:"subjects_lab_only"`
	SubjectsBoth     int    `json:"subjects_both"`
	MatchRate        string `json:"match_rate"`
	SourceSiteRows   int    `json:"source_site_rows"`
	SourceLabRows    int    `json:"source_lab_rows"`
}

type DiagnosticsDTO struct {
	SiteRowsDropped     int `json:"site_rows_dropped"`
	LabRowsDropped      int `json:"lab_rows_dropped"`
	LabRowsExcluded     int `json:"lab_rows_excluded"`
	SiteNullDates       int `json:"site_null_dates"`
	LabNullDates        int `json:"lab_null_dates"`
	AmbiguousDateGroups int `json:"ambiguous_date_groups"`
}

type ResultDTO struct {
	Subject   string `json:"subject"`
	SiteID    string `json:"site_id,omitempty"`
	Visit     string `json:"visit"`
	Category  string `json:"category"`
	Status    string `json:"match_status"`
	DateMatch string `json:"date_match"`
	SiteDate  string `json:"site_date,omitempty"`
	LabDate   string `json:"lab_date,omitempty"`
	DiffDays  *int   `json:"date_diff_days,omitempty"`
	TestCount int    `json:"test_count,omitempty"`
}

type SubjectGapDTO struct {
	Subject    string   `json:"subject"`
	Side       string   `json:"side"`
	SiteID     string   `json:"site_id,omitempty"`
	VisitCount int      `json:"visit_count"`
	Categories []string `json:"categories"`
	Records    int      `json:"records"`
}

type VisitGapDTO struct {
	Subject    string   `json:"subject"`
	Visit      string   `json:"visit"`
	Side       string   `json:"side"`
	Categories []string `json:"categories"`
	Date       string   `json:"date,omitempty"`
}

type CategoryGapDTO struct {
	Subject  string `json:"subject"`
	Visit    string `json:"visit"`
	Category string `json:"category"`
	Side     string `json:"side"`
	SiteDate string `json:"site_date,omitempty"`
	LabDate  string `json:"lab_date,omitempty"`
}

type DateMismatchDTO struct {
	Subject  string `json:"subject"`
	Visit    string `json:"visit"`
	Category string `json:"category"`
	SiteDate string `json:"site_date"`
	LabDate  string `json:"lab_date"`
	DiffDays int    `json:"diff_days"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toReportResponse(run sqlite.RunRecord, report *recon.Report) ReportResponse {
	resp := ReportResponse{
		Run: toRunDTO(run),
		Stats: StatsDTO{
			Total:            report.Stats.Total,
			Matched:          report.Stats.Matched,
			SiteOnly:         report.Stats.SiteOnly,
			LabOnly:          report.Stats.LabOnly,
			DateMatches:      report.Stats.DateMatches,
			DateMismatches:   report.Stats.DateMismatches,
			DateMissing:      report.Stats.DateMissing,
			SubjectsSiteOnly: report.Stats.SubjectsSiteOnly,
			SubjectsLabOnly:  report.Stats.SubjectsLabOnly,
			SubjectsBoth:     report.Stats.SubjectsBoth,
			MatchRate:        report.Stats.MatchRate.String(),
			SourceSiteRows:   report.Stats.SourceSiteRows,
			SourceLabRows:    report.Stats.SourceLabRows,
		},
		Diagnostics: DiagnosticsDTO{
			SiteRowsDropped:     report.Diagnostics.SiteRowsDropped,
			LabRowsDropped:      report.Diagnostics.LabRowsDropped,
			LabRowsExcluded:     report.Diagnostics.LabRowsExcluded,
			SiteNullDates:       report.Diagnostics.SiteNullDates,
			LabNullDates:        report.Diagnostics.LabNullDates,
			AmbiguousDateGroups: report.Diagnostics.AmbiguousDateGroups,
		},
		Results:        make([]ResultDTO, 0, len(report.Results)),
		SubjectGaps:    make([]SubjectGapDTO, 0, len(report.SubjectGaps)),
		VisitGaps:      make([]VisitGapDTO, 0, len(report.VisitGaps)),
		CategoryGaps:   make([]CategoryGapDTO, 0, len(report.CategoryGaps)),
		DateMismatches: make([]DateMismatchDTO, 0, len(report.DateMismatches)),
	}

	for _, r := range report.Results {
		dto := ResultDTO{
			Subject:   string(r.Key.Subject),
			SiteID:    r.SiteID,
			Visit:     string(r.Key.Visit),
			Category:  string(r.Key.Category),
			Status:    string(r.Status),
			DateMatch: string(r.DateMatch),
			SiteDate:  r.SiteDate.String(),
			LabDate:   r.LabDate.String(),
			TestCount: r.TestCount,
		}
		if r.DiffKnown {
			diff := r.DiffDays
			dto.DiffDays = &diff
		}
		resp.Results = append(resp.Results, dto)
	}

	for _, g := range report.SubjectGaps {
		resp.SubjectGaps = append(resp.SubjectGaps, SubjectGapDTO{
			Subject:    string(g.Subject),
			Side:       string(g.Side),
			SiteID:     g.SiteID,
			VisitCount: g.VisitCount,
			Categories: categoryStrings(g.Categories),
			Records:    g.Records,
		})
	}

	for _, g := range report.VisitGaps {
		resp.VisitGaps = append(resp.VisitGaps, VisitGapDTO{
			Subject:    string(g.Subject),
			Visit:      string(g.Visit),
			Side:       string(g.Side),
			Categories: categoryStrings(g.Categories),
			Date:       g.Date.String(),
		})
	}

	for _, g := range report.CategoryGaps {
		resp.CategoryGaps = append(resp.CategoryGaps, CategoryGapDTO{
			Subject:  string(g.Subject),
			Visit:    string(g.Visit),
			Category: string(g.Category),
			Side:     string(g.Side),
			SiteDate: g.SiteDate.String(),
			LabDate:  g.LabDate.String(),
		})
	}

	for _, m := range report.DateMismatches {
		resp.DateMismatches = append(resp.DateMismatches, DateMismatchDTO{
			Subject:  string(m.Subject),
			Visit:    string(m.Visit),
			Category: string(m.Category),
			SiteDate: m.SiteDate.String(),
			LabDate:  m.LabDate.String(),
			DiffDays: m.DiffDays,
		})
	}

	return resp
}

func categoryStrings(categories []recon.Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}
