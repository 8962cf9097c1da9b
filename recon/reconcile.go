/*
reconcile.go - Composite-key outer join

PURPOSE:
  The heart of the engine: a full outer join on the (subject, visit,
  category) key across the two normalized sides, classifying every key as
  matched or one-sided and comparing collection dates for matched pairs.

CONSUME-ONCE INVARIANT:
  Each site record looks up its key in the lab map; a hit emits MATCHED
  and removes the key from the map. Keys are consumed exactly once, which
  is what guarantees the partition invariant: the emitted results exactly
  partition the union of both sides' keys, and

    matched + site_only = |site keys|
    matched + lab_only  = |lab keys|

DETERMINISM:
  Classification is order-independent. Emission order is site-record input
  order followed by leftover lab keys in sorted key order, so two runs
  over the same inputs are byte-identical.

SEE ALSO:
  - gaps.go: Derives the four discrepancy views from the result slice
*/
package recon

import "sort"

// Reconcile joins the normalized site records against the aggregated lab
// map and returns one Result per key present on either side.
//
// The lab map is treated as consumed input: Reconcile copies it before
// draining so callers keep their aggregation intact.
func Reconcile(site []NormalizedRecord, lab map[Key]*AggregatedLab) []Result {
	remaining := make(map[Key]*AggregatedLab, len(lab))
	for k, v := range lab {
		remaining[k] = v
	}

	results := make([]Result, 0, len(site)+len(lab))

	for _, s := range site {
		key := s.Key()
		agg, ok := remaining[key]
		if !ok {
			results = append(results, Result{
				Key:       key,
				Status:    StatusSiteOnly,
				SiteDate:  s.Date,
				DateMatch: DateStatusNotApplicable,
				SiteID:    s.Site,
			})
			continue
		}
		delete(remaining, key)

		r := Result{
			Key:       key,
			Status:    StatusMatched,
			SiteDate:  s.Date,
			LabDate:   agg.Date,
			SiteID:    s.Site,
			TestCount: agg.TestCount,
		}
		r.DateMatch, r.DiffDays, r.DiffKnown = compareDates(s.Date, agg.Date)
		results = append(results, r)
	}

	leftover := make([]Key, 0, len(remaining))
	for k := range remaining {
		leftover = append(leftover, k)
	}
	sort.Slice(leftover, func(i, j int) bool { return leftover[i].Less(leftover[j]) })

	for _, key := range leftover {
		agg := remaining[key]
		results = append(results, Result{
			Key:       key,
			Status:    StatusLabOnly,
			LabDate:   agg.Date,
			DateMatch: DateStatusNotApplicable,
			TestCount: agg.TestCount,
		})
	}

	return results
}

// compareDates implements the matched-pair date contract: MISSING when
// either side is null, MATCH with diff 0 when identical, otherwise
// MISMATCH with a signed whole-day diff (lab - site).
func compareDates(siteDate, labDate Date) (DateMatchStatus, int, bool) {
	if siteDate.IsNull() || labDate.IsNull() {
		return DateStatusMissing, 0, false
	}
	if siteDate.Equal(labDate) {
		return DateStatusMatch, 0, true
	}
	return DateStatusMismatch, siteDate.DaysUntil(labDate), true
}
