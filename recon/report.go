/*
report.go - Summary statistics and report assembly

PURPOSE:
  The last pipeline stage and the only one callers usually touch:
  Engine.Run drives normalize -> aggregate -> reconcile -> gaps -> stats
  and returns the bundled Report. BuildStats is the single-pass fold over
  the results; AssembleReport re-derives the gap views and stats from a
  stored result slice (used when re-exporting a persisted run).

LIFECYCLE:
  Everything in a Report is created fresh per run from the two immutable
  input tables. There is no state between runs; independent runs may
  execute concurrently with zero synchronization.

SEE ALSO:
  - gaps.go: The four view derivations
  - types.go: Stats and Report field documentation
*/
package recon

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// STATISTICS
// =============================================================================

var hundred = decimal.NewFromInt(100)

// BuildStats folds the result slice into summary counts. Single O(n) pass.
func BuildStats(results []Result) Stats {
	var s Stats
	s.Total = len(results)

	subjects := subjectPresence(results)
	for _, p := range subjects {
		switch {
		case p.both():
			s.SubjectsBoth++
		case p.site:
			s.SubjectsSiteOnly++
		default:
			s.SubjectsLabOnly++
		}
	}

	for _, r := range results {
		switch r.Status {
		case StatusMatched:
			s.Matched++
		case StatusSiteOnly:
			s.SiteOnly++
		case StatusLabOnly:
			s.LabOnly++
		}
		switch r.DateMatch {
		case DateStatusMatch:
			s.DateMatches++
		case DateStatusMismatch:
			s.DateMismatches++
		case DateStatusMissing:
			s.DateMissing++
		}
	}

	if s.Total > 0 {
		s.MatchRate = decimal.NewFromInt(int64(s.Matched)).
			Div(decimal.NewFromInt(int64(s.Total))).
			Mul(hundred).
			Round(1)
	}

	return s
}

// AssembleReport re-derives the four gap views and statistics from a flat
// result slice. Used both by Engine.Run and when rebuilding a report from
// persisted results.
func AssembleReport(results []Result, diag Diagnostics) *Report {
	stats := BuildStats(results)
	stats.SourceSiteRows = diag.SiteRowsIn
	stats.SourceLabRows = diag.LabRowsIn

	return &Report{
		Results:        results,
		SubjectGaps:    BuildSubjectGaps(results),
		VisitGaps:      BuildVisitGaps(results),
		CategoryGaps:   BuildCategoryGaps(results),
		DateMismatches: BuildDateMismatches(results),
		Stats:          stats,
		Diagnostics:    diag,
	}
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs the full reconciliation pipeline over two raw row sets.
// Construct once and reuse, or once per run; it holds no per-run state.
type Engine struct {
	Normalizer *Normalizer
	Log        *logrus.Logger
}

func NewEngine(log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		Normalizer: NewNormalizer(),
		Log:        log,
	}
}

// Run executes normalize -> aggregate -> reconcile -> gaps -> stats.
// The only failure class is an empty input table; every field-level
// anomaly is recovered and counted in the report diagnostics.
func (e *Engine) Run(siteName string, siteRows []SiteRow, labName string, labRows []LabRow) (*Report, error) {
	if len(siteRows) == 0 {
		return nil, &EmptyInputError{Source: siteName}
	}
	if len(labRows) == 0 {
		return nil, &EmptyInputError{Source: labName}
	}

	site, siteStats := e.Normalizer.NormalizeSite(siteRows)
	lab, labStats := e.Normalizer.NormalizeLab(labRows)

	e.Log.WithFields(logrus.Fields{
		"site_rows":     siteStats.Input,
		"site_dropped":  siteStats.Dropped,
		"lab_rows":      labStats.Input,
		"lab_dropped":   labStats.Dropped,
		"lab_excluded":  labStats.Excluded,
		"site_no_dates": siteStats.NullDates,
		"lab_no_dates":  labStats.NullDates,
	}).Info("normalized input tables")

	aggregated, ambiguous := AggregateLab(lab)
	e.Log.WithFields(logrus.Fields{
		"lab_keys":        len(aggregated),
		"ambiguous_dates": ambiguous,
	}).Info("aggregated lab records")

	results := Reconcile(site, aggregated)

	diag := Diagnostics{
		SiteRowsIn:          siteStats.Input,
		LabRowsIn:           labStats.Input,
		SiteRowsDropped:     siteStats.Dropped,
		LabRowsDropped:      labStats.Dropped,
		LabRowsExcluded:     labStats.Excluded,
		SiteNullDates:       siteStats.NullDates,
		LabNullDates:        labStats.NullDates,
		AmbiguousDateGroups: ambiguous,
	}

	report := AssembleReport(results, diag)

	e.Log.WithFields(logrus.Fields{
		"total":           report.Stats.Total,
		"matched":         report.Stats.Matched,
		"site_only":       report.Stats.SiteOnly,
		"lab_only":        report.Stats.LabOnly,
		"date_mismatches": report.Stats.DateMismatches,
		"subject_gaps":    len(report.SubjectGaps),
	}).Info("reconciliation complete")

	return report, nil
}
