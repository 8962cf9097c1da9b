package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/recon-engine/recon"
	"github.com/warp/recon-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResults() []recon.Result {
	return []recon.Result{
		{
			Key:       recon.Key{Subject: "S001", Visit: "Screening", Category: "Chemistry"},
			Status:    recon.StatusMatched,
			SiteDate:  recon.NewDate(2025, time.March, 10),
			LabDate:   recon.NewDate(2025, time.March, 10),
			DateMatch: recon.DateStatusMatch,
			DiffDays:  0,
			DiffKnown: true,
			SiteID:    "101",
			TestCount: 3,
		},
		{
			Key:       recon.Key{Subject: "S001", Visit: "Week 4", Category: "Chemistry"},
			Status:    recon.StatusMatched,
			SiteDate:  recon.NewDate(2025, time.April, 7),
			LabDate:   recon.NewDate(2025, time.April, 9),
			DateMatch: recon.DateStatusMismatch,
			DiffDays:  2,
			DiffKnown: true,
			SiteID:    "101",
			TestCount: 1,
		},
		{
			Key:       recon.Key{Subject: "S002", Visit: "Screening", Category: "Chemistry"},
			Status:    recon.StatusLabOnly,
			LabDate:   recon.NewDate(2025, time.March, 12),
			DateMatch: recon.DateStatusNotApplicable,
			TestCount: 2,
		},
	}
}

func sampleRun(id string, createdAt time.Time) sqlite.RunRecord {
	results := sampleResults()
	stats := recon.BuildStats(results)
	return sqlite.RunRecord{
		ID:       id,
		Label:    "weekly check",
		SiteFile: "edc.csv",
		LabFile:  "lab.csv",
		Stats:    stats,
		Diagnostics: recon.Diagnostics{
			SiteRowsIn:      2,
			LabRowsIn:       6,
			LabRowsExcluded: 1,
		},
		CreatedAt: createdAt,
	}
}

// =============================================================================
// SAVE / GET
// =============================================================================

func TestSaveRun_RoundTrip(t *testing.T) {
	// GIVEN: A completed run with results
	// WHEN: Saving and re-reading it
	// THEN: The record and every result row survive intact

	store := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	run := sampleRun("run-1", created)
	results := sampleResults()

	require.NoError(t, store.SaveRun(ctx, run, results))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, "weekly check", got.Label)
	assert.Equal(t, "edc.csv", got.SiteFile)
	assert.Equal(t, "lab.csv", got.LabFile)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, run.Stats.Total, got.Stats.Total)
	assert.Equal(t, run.Stats.Matched, got.Stats.Matched)
	assert.True(t, run.Stats.MatchRate.Equal(got.Stats.MatchRate))
	assert.Equal(t, 1, got.Diagnostics.LabRowsExcluded)

	loaded, err := store.LoadResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	// Emission order preserved.
	assert.Equal(t, results[0].Key, loaded[0].Key)
	assert.Equal(t, results[2].Key, loaded[2].Key)

	// Field fidelity on the mismatch row.
	assert.Equal(t, recon.StatusMatched, loaded[1].Status)
	assert.Equal(t, recon.DateStatusMismatch, loaded[1].DateMatch)
	assert.True(t, loaded[1].DiffKnown)
	assert.Equal(t, 2, loaded[1].DiffDays)
	assert.Equal(t, "2025-04-07", loaded[1].SiteDate.String())
	assert.Equal(t, "101", loaded[1].SiteID)

	// Null handling on the lab-only row.
	assert.True(t, loaded[2].SiteDate.IsNull())
	assert.False(t, loaded[2].DiffKnown)
	assert.Equal(t, 2, loaded[2].TestCount)
}

func TestGetRun_NotFound(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Fetching an unknown run
	// THEN: recon.ErrRunNotFound

	store := newTestStore(t)

	_, err := store.GetRun(context.Background(), "nope")
	assert.True(t, recon.IsNotFound(err))
}

func TestSaveRun_DuplicateIDRejected(t *testing.T) {
	// GIVEN: A stored run
	// WHEN: Saving another run with the same ID
	// THEN: The insert fails and the original is untouched

	store := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-1", time.Now().UTC())
	require.NoError(t, store.SaveRun(ctx, run, sampleResults()))

	dup := sampleRun("run-1", time.Now().UTC())
	dup.Label = "duplicate"
	assert.Error(t, store.SaveRun(ctx, dup, sampleResults()))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "weekly check", got.Label)
}

// =============================================================================
// LIST
// =============================================================================

func TestListRuns_NewestFirst(t *testing.T) {
	// GIVEN: Three runs created on consecutive days
	// WHEN: Listing
	// THEN: Newest first, and the limit is honored

	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := sampleRun(id, base.AddDate(0, 0, i))
		require.NoError(t, store.SaveRun(ctx, run, sampleResults()))
	}

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-a", runs[2].ID)

	limited, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDeleteRun_CascadesToResults(t *testing.T) {
	// GIVEN: A stored run with results
	// WHEN: Deleting the run
	// THEN: The run and its result rows are gone

	store := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-1", time.Now().UTC())
	require.NoError(t, store.SaveRun(ctx, run, sampleResults()))

	require.NoError(t, store.DeleteRun(ctx, "run-1"))

	_, err := store.GetRun(ctx, "run-1")
	assert.True(t, recon.IsNotFound(err))

	results, err := store.LoadResults(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, results)
}

// =============================================================================
// REPORT REASSEMBLY
// =============================================================================

func TestLoadResults_FeedsAssembleReport(t *testing.T) {
	// GIVEN: A persisted run
	// WHEN: Rebuilding the report from stored rows
	// THEN: Gap views and stats come back as they were at run time

	store := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-1", time.Now().UTC())
	require.NoError(t, store.SaveRun(ctx, run, sampleResults()))

	loaded, err := store.LoadResults(ctx, "run-1")
	require.NoError(t, err)

	report := recon.AssembleReport(loaded, run.Diagnostics)

	assert.Equal(t, 3, report.Stats.Total)
	assert.Equal(t, 2, report.Stats.Matched)
	assert.Equal(t, 1, report.Stats.LabOnly)
	require.Len(t, report.SubjectGaps, 1)
	assert.Equal(t, recon.SubjectID("S002"), report.SubjectGaps[0].Subject)
	require.Len(t, report.DateMismatches, 1)
	assert.Equal(t, 2, report.DateMismatches[0].DiffDays)
}
