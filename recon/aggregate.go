/*
aggregate.go - Lab-side aggregation

PURPOSE:
  The central lab reports one row per individual test; the site metadata
  is one row per planned sample per visit. Reconciliation needs both sides
  at the same granularity, so the lab side collapses to one row per
  (subject, visit, category) key before joining.

TIE-BREAK:
  All rows in a well-formed group share the same collection date. When
  they disagree, the first non-null date in input order wins and the group
  is counted as ambiguous in the diagnostics. This tie-break is inherited
  behavior, not a verified clinical requirement; the ambiguity count
  exists so data managers can review such groups.

SEE ALSO:
  - reconcile.go: Consumes the aggregated map
*/
package recon

import "sort"

// AggregateLab collapses normalized lab records into one AggregatedLab per
// distinct Key. Single O(n) pass; no side effects beyond the returned
// values. The second return value counts groups that contained more than
// one distinct non-null date.
func AggregateLab(records []NormalizedRecord) (map[Key]*AggregatedLab, int) {
	groups := make(map[Key]*AggregatedLab)
	seenDates := make(map[Key]map[string]bool)
	seenSamples := make(map[Key]map[string]bool)

	for _, r := range records {
		key := r.Key()
		agg, ok := groups[key]
		if !ok {
			agg = &AggregatedLab{Key: key, VisitRaw: r.VisitRaw}
			groups[key] = agg
			seenDates[key] = make(map[string]bool)
			seenSamples[key] = make(map[string]bool)
		}

		agg.TestCount++

		if !r.Date.IsNull() {
			if agg.Date.IsNull() {
				agg.Date = r.Date
			}
			seenDates[key][r.Date.String()] = true
		}

		if r.SampleID != "" && !seenSamples[key][r.SampleID] {
			seenSamples[key][r.SampleID] = true
			agg.SampleIDs = append(agg.SampleIDs, r.SampleID)
		}
	}

	ambiguous := 0
	for key, dates := range seenDates {
		if len(dates) > 1 {
			ambiguous++
		}
		sort.Strings(groups[key].SampleIDs)
	}

	return groups, ambiguous
}
