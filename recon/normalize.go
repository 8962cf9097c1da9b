/*
normalize.go - Record normalization boundary

PURPOSE:
  Turns loosely-typed source rows into the fixed-shape, null-explicit
  NormalizedRecord schema every downstream component assumes. Three
  standardizations happen here:

  1. Dates: two known source shapes - calendar-style DD/MMM/YYYY from the
     site EDC export and ISO-8601 date-time from the central lab - both
     standardize to a plain calendar date. Sentinels ("ND", "NOT DONE",
     empty) and unparseable values become null, never an error.
  2. Visit names: canonicalized through the VisitVocabulary so the same
     visit spells identically on both sides of the join.
  3. Key fields: rows missing subject, visit or category cannot
     participate in keyed matching. They are dropped and counted, the run
     continues.

ANOMALY HANDLING:
  Field-level problems are recovered locally and counted in NormalizeStats
  for diagnostics. Only whole-table problems (handled upstream in ingest)
  are terminal.

SEE ALSO:
  - vocabulary.go: Visit canonicalization rules
  - aggregate.go: Next pipeline stage for the lab side
*/
package recon

import (
	"strings"
	"time"
)

// =============================================================================
// NORMALIZER
// =============================================================================

// Normalizer holds the per-run normalization configuration. Zero shared
// state: construct one per run, or share freely - it is read-only after
// construction.
type Normalizer struct {
	Vocabulary *VisitVocabulary

	// ExcludedCategories are lab categories removed before reconciliation.
	// Administrative rows track shipment paperwork, not samples.
	ExcludedCategories []Category
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		Vocabulary:         DefaultVisitVocabulary(),
		ExcludedCategories: []Category{"Administrative"},
	}
}

// NormalizeStats counts what happened to one side's rows.
type NormalizeStats struct {
	Input     int
	Kept      int
	Dropped   int // missing subject/visit/category
	Excluded  int // excluded category (lab side only)
	NullDates int
}

// =============================================================================
// SITE SIDE
// =============================================================================

// NormalizeSite converts raw site-metadata rows. One output record per
// kept input row; order preserved.
func (n *Normalizer) NormalizeSite(rows []SiteRow) ([]NormalizedRecord, NormalizeStats) {
	stats := NormalizeStats{Input: len(rows)}
	records := make([]NormalizedRecord, 0, len(rows))

	for _, row := range rows {
		subject := strings.TrimSpace(row.Subject)
		visitRaw := strings.TrimSpace(row.Visit)
		category := strings.TrimSpace(row.Category)
		if subject == "" || visitRaw == "" || category == "" {
			stats.Dropped++
			continue
		}

		date := parseSiteDate(row.CollectionDate)
		if date.IsNull() {
			stats.NullDates++
		}

		records = append(records, NormalizedRecord{
			Subject:   SubjectID(subject),
			Visit:     n.Vocabulary.Canonicalize(visitRaw),
			VisitRaw:  visitRaw,
			Category:  Category(category),
			Date:      date,
			Site:      strings.TrimSpace(row.Site),
			Performed: strings.ToUpper(strings.TrimSpace(row.Performed)),
		})
	}

	stats.Kept = len(records)
	return records, stats
}

// =============================================================================
// LAB SIDE
// =============================================================================

// NormalizeLab converts raw central-lab rows, filtering excluded
// categories. One output record per kept input row; order preserved.
func (n *Normalizer) NormalizeLab(rows []LabRow) ([]NormalizedRecord, NormalizeStats) {
	stats := NormalizeStats{Input: len(rows)}
	records := make([]NormalizedRecord, 0, len(rows))

	for _, row := range rows {
		subject := strings.TrimSpace(row.Subject)
		visitRaw := strings.TrimSpace(row.Visit)
		category := strings.TrimSpace(row.Category)
		if subject == "" || visitRaw == "" || category == "" {
			stats.Dropped++
			continue
		}
		if n.isExcluded(Category(category)) {
			stats.Excluded++
			continue
		}

		date := parseLabDate(row.CollectionDateTime)
		if date.IsNull() {
			stats.NullDates++
		}

		records = append(records, NormalizedRecord{
			Subject:  SubjectID(subject),
			Visit:    n.Vocabulary.Canonicalize(visitRaw),
			VisitRaw: visitRaw,
			Category: Category(category),
			Date:     date,
			TestCode: strings.TrimSpace(row.TestCode),
			SampleID: strings.TrimSpace(row.SampleID),
		})
	}

	stats.Kept = len(records)
	return records, stats
}

func (n *Normalizer) isExcluded(c Category) bool {
	for _, e := range n.ExcludedCategories {
		if e == c {
			return true
		}
	}
	return false
}

// =============================================================================
// DATE STANDARDIZATION
// =============================================================================

// dateSentinels are values that mean "no date" rather than "bad date".
var dateSentinels = map[string]bool{
	"":         true,
	"ND":       true,
	"NOT DONE": true,
}

// siteDateLayouts: the EDC exports DD/MMM/YYYY; spreadsheet round-trips
// sometimes render the cell as an ISO date or date-time instead.
var siteDateLayouts = []string{
	"02/Jan/2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// labDateLayouts: the central lab exports ISO-8601 date-times at varying
// precision.
var labDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseSiteDate(raw string) Date {
	return parseDate(raw, siteDateLayouts)
}

func parseLabDate(raw string) Date {
	return parseDate(raw, labDateLayouts)
}

func parseDate(raw string, layouts []string) Date {
	s := strings.TrimSpace(raw)
	if dateSentinels[strings.ToUpper(s)] {
		return Date{}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			// Truncate to the calendar date; the time component never
			// participates in matching.
			return NewDate(t.Year(), t.Month(), t.Day())
		}
	}
	return Date{}
}
