/*
Package recon implements the clinical-data reconciliation engine.

PURPOSE:
  This package contains the core algorithm: it compares two independently
  captured tabular records of the same trial subjects - site-reported
  visit/sample metadata (EDC) and central-laboratory test results - and
  produces a structured discrepancy report at four granularities
  (subject, visit, category, date).

KEY CONCEPTS IN THIS FILE (types.go):
  - Key: The (subject, visit, category) triple every record is joined on
  - Date: A nullable calendar date (no time component)
  - NormalizedRecord: A row after encoding/date/visit canonicalization
  - AggregatedLab: One row per Key collapsed from many lab test rows
  - Result: The classification of a single Key (matched or one-sided)
  - Gap types: Derived discrepancy views at each granularity

DESIGN PRINCIPLES:
  1. Immutability: Every run builds fresh values from two input tables;
     nothing is shared between runs, so concurrent runs need no locks
  2. Null-explicit: Unparseable or not-done dates are null, never zero
     values masquerading as real dates
  3. Type Safety: Subject/visit/category get distinct string types so a
     visit name cannot be passed where a subject identifier is expected
  4. Determinism: Two runs over the same inputs produce identical output

PIPELINE:
  normalize -> aggregate -> reconcile -> gaps -> report
  (see normalize.go, aggregate.go, reconcile.go, gaps.go, report.go)

SEE ALSO:
  - errors.go: Error taxonomy (terminal input errors vs recovered anomalies)
  - vocabulary.go: Configurable visit-name canonicalization table
*/
package recon

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SubjectID string
type VisitName string
type Category string

// Key is the reconciliation key: the (subject, visit, category) triple used
// to join site and lab records. After aggregation each side holds at most
// one record per Key.
type Key struct {
	Subject  SubjectID
	Visit    VisitName
	Category Category
}

// Less orders keys by subject, then visit, then category. Used for the
// deterministic emission of leftover lab-only rows.
func (k Key) Less(o Key) bool {
	if k.Subject != o.Subject {
		return k.Subject < o.Subject
	}
	if k.Visit != o.Visit {
		return k.Visit < o.Visit
	}
	return k.Category < o.Category
}

// =============================================================================
// DATE - Nullable calendar date, no time component
// =============================================================================

// Date is a calendar date or null. Null covers unparseable values and the
// explicit not-done sentinels ("ND", "NOT DONE", empty).
type Date struct {
	Time  time.Time
	Valid bool
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Valid: true}
}

// ParseDate parses the canonical YYYY-MM-DD representation.
func ParseDate(s string) Date {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}
	}
	return Date{Time: t, Valid: true}
}

// String returns YYYY-MM-DD, or the empty string for null.
func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format("2006-01-02")
}

func (d Date) IsNull() bool { return !d.Valid }

func (d Date) Equal(o Date) bool {
	if !d.Valid || !o.Valid {
		return false
	}
	return d.Time.Equal(o.Time)
}

// DaysUntil returns the signed whole-day difference o - d.
// Both dates must be non-null.
func (d Date) DaysUntil(o Date) int {
	return int(o.Time.Sub(d.Time).Hours() / 24)
}

// =============================================================================
// RAW ROWS - Loosely-typed input, one shape per source system
// =============================================================================

// SiteRow is a raw site-metadata (EDC) row: one row per planned sample per
// visit. All fields are untrimmed source strings.
type SiteRow struct {
	Subject        string
	Site           string
	Visit          string
	Category       string
	CollectionDate string
	Performed      string
}

// LabRow is a raw central-lab result row: one row per individual test, so
// many rows share the same subject+visit+category.
type LabRow struct {
	Subject            string
	Visit              string
	Category           string
	CollectionDateTime string
	TestCode           string
	SampleID           string
}

// =============================================================================
// NORMALIZED RECORD - Fixed-shape row after the normalization boundary
// =============================================================================

// NormalizedRecord is either row shape after encoding fix, date
// standardization and visit canonicalization. Downstream components can
// assume a fully-typed, null-explicit schema.
type NormalizedRecord struct {
	Subject  SubjectID
	Visit    VisitName // canonical
	VisitRaw string    // original spelling, kept for reporting
	Category Category
	Date     Date

	// Site-side only.
	Site      string
	Performed string

	// Lab-side only.
	TestCode string
	SampleID string
}

func (r NormalizedRecord) Key() Key {
	return Key{Subject: r.Subject, Visit: r.Visit, Category: r.Category}
}

// =============================================================================
// AGGREGATED LAB - One row per Key on the lab side
// =============================================================================

// AggregatedLab collapses all lab test rows sharing a Key. Invariant:
// exactly one AggregatedLab per distinct Key present in the lab input.
type AggregatedLab struct {
	Key       Key
	Date      Date // first non-null date in input order
	VisitRaw  string
	TestCount int
	SampleIDs []string // distinct, sorted
}

// =============================================================================
// RECONCILIATION RESULT - Classification of a single Key
// =============================================================================

type MatchStatus string

const (
	StatusMatched  MatchStatus = "MATCHED"
	StatusSiteOnly MatchStatus = "SITE_ONLY"
	StatusLabOnly  MatchStatus = "LAB_ONLY"
)

type DateMatchStatus string

const (
	DateStatusMatch         DateMatchStatus = "MATCH"
	DateStatusMismatch      DateMatchStatus = "MISMATCH"
	DateStatusMissing       DateMatchStatus = "MISSING"
	DateStatusNotApplicable DateMatchStatus = "N/A"
)

// Result is one row per Key present on either side. The set of Results
// exactly partitions the union of both sides' keys: every input key appears
// exactly once.
type Result struct {
	Key       Key
	Status    MatchStatus
	SiteDate  Date
	LabDate   Date
	DateMatch DateMatchStatus

	// DiffDays is the signed whole-day difference (lab - site). Only
	// meaningful when DiffKnown is true (date status MATCH or MISMATCH).
	DiffDays  int
	DiffKnown bool

	SiteID    string
	TestCount int
}

// =============================================================================
// GAP VIEWS - Derived, read-only discrepancy views
// =============================================================================

// Side tags which input system holds the data a gap refers to.
type Side string

const (
	SideSite Side = "SITE" // present in EDC, missing from lab
	SideLab  Side = "LAB"  // present in lab, missing from EDC
)

// SubjectGap is a subject present in only one input system.
type SubjectGap struct {
	Subject    SubjectID
	Side       Side
	SiteID     string
	VisitCount int
	Categories []Category // distinct, sorted, from the present side
	Records    int
}

// VisitGap is a visit present on exactly one side, for a subject that is
// present on both sides.
type VisitGap struct {
	Subject    SubjectID
	Visit      VisitName
	Side       Side
	Categories []Category
	Date       Date
}

// CategoryGap is a one-sided Key at a subject+visit that exists on both
// sides; the discrepancy is confined to the category level.
type CategoryGap struct {
	Subject  SubjectID
	Visit    VisitName
	Category Category
	Side     Side
	SiteDate Date
	LabDate  Date
}

// DateMismatch is a matched Key whose collection dates disagree.
type DateMismatch struct {
	Subject  SubjectID
	Visit    VisitName
	Category Category
	SiteDate Date
	LabDate  Date
	DiffDays int
}

// =============================================================================
// DIAGNOSTICS & STATS
// =============================================================================

// Diagnostics counts the field-level anomalies recovered during a run.
// None of these fail the run; they exist so a data manager can judge input
// quality.
type Diagnostics struct {
	SiteRowsIn          int
	LabRowsIn           int
	SiteRowsDropped     int // missing subject/visit/category
	LabRowsDropped      int
	LabRowsExcluded     int // excluded categories (e.g. Administrative)
	SiteNullDates       int
	LabNullDates        int
	AmbiguousDateGroups int // lab groups spanning >1 distinct date
}

// Stats is the summary fold over the reconciliation results.
type Stats struct {
	Total          int
	Matched        int
	SiteOnly       int
	LabOnly        int
	DateMatches    int
	DateMismatches int
	DateMissing    int

	SubjectsSiteOnly int
	SubjectsLabOnly  int
	SubjectsBoth     int

	// MatchRate is matched/total as a percentage, exact to one decimal
	// place. Zero when there are no results.
	MatchRate decimal.Decimal

	SourceSiteRows int
	SourceLabRows  int
}

// Report bundles everything a consumer needs: the flat result table, the
// four gap views, summary statistics and run diagnostics.
type Report struct {
	Results        []Result
	SubjectGaps    []SubjectGap
	VisitGaps      []VisitGap
	CategoryGaps   []CategoryGap
	DateMismatches []DateMismatch
	Stats          Stats
	Diagnostics    Diagnostics
}
