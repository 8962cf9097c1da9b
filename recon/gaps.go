/*
gaps.go - Hierarchical gap derivation

PURPOSE:
  Derives four independent discrepancy views from the flat reconciliation
  results. Each view is a pure filter/group over the same input; none
  depends on another's output.

HIERARCHY:
  The views are hierarchical in what they explain, top down:

  1. Subject gaps   - the whole subject is missing from one system
  2. Visit gaps     - subject is in both, a visit is missing from one
  3. Category gaps  - subject+visit is in both, a category is missing
  4. Date mismatches - everything matched, the dates disagree

  A discrepancy appears at exactly one level: a subject missing from the
  lab shows up once as a subject gap, not again as dozens of visit and
  category gaps. Lower levels filter out keys already explained above.

SEE ALSO:
  - report.go: Bundles the views with summary statistics
*/
package recon

import "sort"

// =============================================================================
// SIDE PRESENCE - Shared derivation helpers
// =============================================================================

type presence struct {
	site bool
	lab  bool
}

func (p presence) both() bool    { return p.site && p.lab }
func (p presence) oneSide() bool { return p.site != p.lab }

func (p presence) side() Side {
	if p.site {
		return SideSite
	}
	return SideLab
}

// mark records which sides a result row proves presence on. A MATCHED row
// proves both; a one-sided row proves its own side.
func (p *presence) mark(status MatchStatus) {
	switch status {
	case StatusMatched:
		p.site, p.lab = true, true
	case StatusSiteOnly:
		p.site = true
	case StatusLabOnly:
		p.lab = true
	}
}

func subjectPresence(results []Result) map[SubjectID]*presence {
	subjects := make(map[SubjectID]*presence)
	for _, r := range results {
		p, ok := subjects[r.Key.Subject]
		if !ok {
			p = &presence{}
			subjects[r.Key.Subject] = p
		}
		p.mark(r.Status)
	}
	return subjects
}

type subjectVisit struct {
	Subject SubjectID
	Visit   VisitName
}

func visitPresence(results []Result) map[subjectVisit]*presence {
	visits := make(map[subjectVisit]*presence)
	for _, r := range results {
		sv := subjectVisit{r.Key.Subject, r.Key.Visit}
		p, ok := visits[sv]
		if !ok {
			p = &presence{}
			visits[sv] = p
		}
		p.mark(r.Status)
	}
	return visits
}

// =============================================================================
// SUBJECT GAPS
// =============================================================================

// BuildSubjectGaps returns the subjects present in only one input system,
// each carrying the distinct-visit count, category set and record count
// observed on the present side. Sorted by subject.
func BuildSubjectGaps(results []Result) []SubjectGap {
	subjects := subjectPresence(results)

	var gaps []SubjectGap
	for subject, p := range subjects {
		if !p.oneSide() {
			continue
		}

		gap := SubjectGap{Subject: subject, Side: p.side()}
		visits := make(map[VisitName]bool)
		categories := make(map[Category]bool)

		for _, r := range results {
			if r.Key.Subject != subject {
				continue
			}
			gap.Records++
			visits[r.Key.Visit] = true
			categories[r.Key.Category] = true
			if gap.SiteID == "" {
				gap.SiteID = r.SiteID
			}
		}

		gap.VisitCount = len(visits)
		gap.Categories = sortedCategories(categories)
		gaps = append(gaps, gap)
	}

	sort.Slice(gaps, func(i, j int) bool { return gaps[i].Subject < gaps[j].Subject })
	return gaps
}

// =============================================================================
// VISIT GAPS
// =============================================================================

// BuildVisitGaps returns, for subjects present on both sides, the visits
// present on exactly one side. Each gap carries the categories and first
// non-null date observed at that visit on the holding side. Sorted by
// subject then visit.
func BuildVisitGaps(results []Result) []VisitGap {
	subjects := subjectPresence(results)
	visits := visitPresence(results)

	var gaps []VisitGap
	for sv, p := range visits {
		if !subjects[sv.Subject].both() || !p.oneSide() {
			continue
		}

		gap := VisitGap{Subject: sv.Subject, Visit: sv.Visit, Side: p.side()}
		categories := make(map[Category]bool)

		for _, r := range results {
			if r.Key.Subject != sv.Subject || r.Key.Visit != sv.Visit {
				continue
			}
			categories[r.Key.Category] = true
			if gap.Date.IsNull() {
				if p.side() == SideSite {
					gap.Date = r.SiteDate
				} else {
					gap.Date = r.LabDate
				}
			}
		}

		gap.Categories = sortedCategories(categories)
		gaps = append(gaps, gap)
	}

	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Subject != gaps[j].Subject {
			return gaps[i].Subject < gaps[j].Subject
		}
		return gaps[i].Visit < gaps[j].Visit
	})
	return gaps
}

// =============================================================================
// CATEGORY GAPS
// =============================================================================

// BuildCategoryGaps relabels the one-sided result rows whose subject+visit
// exists on both sides: the discrepancy is confined to the category level.
// One-sided rows already explained by a subject or visit gap are excluded.
// Sorted by subject, visit, category.
func BuildCategoryGaps(results []Result) []CategoryGap {
	subjects := subjectPresence(results)
	visits := visitPresence(results)

	var gaps []CategoryGap
	for _, r := range results {
		if r.Status == StatusMatched {
			continue
		}
		if !subjects[r.Key.Subject].both() {
			continue
		}
		if !visits[subjectVisit{r.Key.Subject, r.Key.Visit}].both() {
			continue
		}

		side := SideSite
		if r.Status == StatusLabOnly {
			side = SideLab
		}
		gaps = append(gaps, CategoryGap{
			Subject:  r.Key.Subject,
			Visit:    r.Key.Visit,
			Category: r.Key.Category,
			Side:     side,
			SiteDate: r.SiteDate,
			LabDate:  r.LabDate,
		})
	}

	sort.Slice(gaps, func(i, j int) bool {
		a, b := gaps[i], gaps[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Visit != b.Visit {
			return a.Visit < b.Visit
		}
		return a.Category < b.Category
	})
	return gaps
}

// =============================================================================
// DATE MISMATCHES
// =============================================================================

// BuildDateMismatches returns every matched result whose collection dates
// disagree. Sorted by subject, visit, category.
func BuildDateMismatches(results []Result) []DateMismatch {
	var mismatches []DateMismatch
	for _, r := range results {
		if r.Status != StatusMatched || r.DateMatch != DateStatusMismatch {
			continue
		}
		mismatches = append(mismatches, DateMismatch{
			Subject:  r.Key.Subject,
			Visit:    r.Key.Visit,
			Category: r.Key.Category,
			SiteDate: r.SiteDate,
			LabDate:  r.LabDate,
			DiffDays: r.DiffDays,
		})
	}

	sort.Slice(mismatches, func(i, j int) bool {
		a, b := mismatches[i], mismatches[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Visit != b.Visit {
			return a.Visit < b.Visit
		}
		return a.Category < b.Category
	})
	return mismatches
}

func sortedCategories(set map[Category]bool) []Category {
	out := make([]Category, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
