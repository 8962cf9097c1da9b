package recon_test

import (
	"reflect"
	"testing"

	"github.com/warp/recon-engine/recon"
)

func labRecSample(subject, visit, category, date, testCode, sampleID string) recon.NormalizedRecord {
	r := labRec(subject, visit, category, date, testCode)
	r.SampleID = sampleID
	return r
}

func TestAggregateLab_OneRowPerKey(t *testing.T) {
	// GIVEN: Five test rows spanning two keys
	// WHEN: Aggregating
	// THEN: Two groups, each carrying its test count

	records := []recon.NormalizedRecord{
		labRec("S001", "Screening", "Chemistry", "2025-03-10", "ALT"),
		labRec("S001", "Screening", "Chemistry", "2025-03-10", "AST"),
		labRec("S001", "Screening", "Chemistry", "2025-03-10", "BUN"),
		labRec("S001", "Screening", "Hematology", "2025-03-10", "HGB"),
		labRec("S001", "Screening", "Hematology", "2025-03-10", "WBC"),
	}

	groups, ambiguous := recon.AggregateLab(records)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if ambiguous != 0 {
		t.Errorf("expected no ambiguous groups, got %d", ambiguous)
	}

	chem := groups[recon.Key{Subject: "S001", Visit: "Screening", Category: "Chemistry"}]
	if chem == nil || chem.TestCount != 3 {
		t.Errorf("chemistry group: expected 3 tests, got %+v", chem)
	}
	hema := groups[recon.Key{Subject: "S001", Visit: "Screening", Category: "Hematology"}]
	if hema == nil || hema.TestCount != 2 {
		t.Errorf("hematology group: expected 2 tests, got %+v", hema)
	}
}

func TestAggregateLab_FirstNonNullDateWins(t *testing.T) {
	// GIVEN: A group whose first row has no date and later rows do
	// WHEN: Aggregating
	// THEN: The group date is the first non-null date in input order

	records := []recon.NormalizedRecord{
		labRec("S001", "Week 4", "Chemistry", "", "ALT"),
		labRec("S001", "Week 4", "Chemistry", "2025-04-07", "AST"),
		labRec("S001", "Week 4", "Chemistry", "2025-04-09", "BUN"),
	}

	groups, ambiguous := recon.AggregateLab(records)

	agg := groups[recon.Key{Subject: "S001", Visit: "Week 4", Category: "Chemistry"}]
	if agg.Date.String() != "2025-04-07" {
		t.Errorf("expected first non-null date 2025-04-07, got %q", agg.Date.String())
	}
	if ambiguous != 1 {
		t.Errorf("group spans two distinct dates, expected ambiguous count 1, got %d", ambiguous)
	}
}

func TestAggregateLab_AllNullDates(t *testing.T) {
	// GIVEN: A group where no row carries a date
	// WHEN: Aggregating
	// THEN: The group date stays null and the group is not ambiguous

	records := []recon.NormalizedRecord{
		labRec("S001", "Week 4", "Chemistry", "", "ALT"),
		labRec("S001", "Week 4", "Chemistry", "", "AST"),
	}

	groups, ambiguous := recon.AggregateLab(records)

	agg := groups[recon.Key{Subject: "S001", Visit: "Week 4", Category: "Chemistry"}]
	if !agg.Date.IsNull() {
		t.Errorf("expected null group date, got %q", agg.Date.String())
	}
	if ambiguous != 0 {
		t.Errorf("expected no ambiguous groups, got %d", ambiguous)
	}
}

func TestAggregateLab_SampleIDsDistinctSorted(t *testing.T) {
	// GIVEN: Rows sharing accession identifiers, out of order, with blanks
	// WHEN: Aggregating
	// THEN: SampleIDs holds the distinct non-empty identifiers, sorted

	records := []recon.NormalizedRecord{
		labRecSample("S001", "Screening", "Chemistry", "2025-03-10", "ALT", "ACC-9"),
		labRecSample("S001", "Screening", "Chemistry", "2025-03-10", "AST", "ACC-2"),
		labRecSample("S001", "Screening", "Chemistry", "2025-03-10", "BUN", "ACC-9"),
		labRecSample("S001", "Screening", "Chemistry", "2025-03-10", "CRE", ""),
	}

	groups, _ := recon.AggregateLab(records)

	agg := groups[recon.Key{Subject: "S001", Visit: "Screening", Category: "Chemistry"}]
	want := []string{"ACC-2", "ACC-9"}
	if !reflect.DeepEqual(agg.SampleIDs, want) {
		t.Errorf("expected sample IDs %v, got %v", want, agg.SampleIDs)
	}
}

func TestAggregateLab_Empty(t *testing.T) {
	// GIVEN: No records
	// WHEN: Aggregating
	// THEN: Empty map, zero ambiguous groups

	groups, ambiguous := recon.AggregateLab(nil)

	if len(groups) != 0 || ambiguous != 0 {
		t.Errorf("expected empty aggregation, got %d groups, %d ambiguous", len(groups), ambiguous)
	}
}
