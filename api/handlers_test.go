/*
handlers_test.go - HTTP handler tests

Exercises the full request path: multipart upload, engine run, persistence,
report retrieval and workbook export, plus the input-error status mapping.
*/
package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/recon-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const siteCSV = "PATIENT,SITE,VISITORFORMNAME,LBCAT,LBDAT,LBPERF\n" +
	"S001,101,Screening,Chemistry,10/Mar/2025,Yes\n" +
	"S001,101,Week 4,Chemistry,07/Apr/2025,Yes\n"

const labCSV = "USUBJID,VISIT,LBCAT,LBDTC,LBTESTCD,LBREFID\n" +
	"S001,SCREENING,Chemistry,2025-03-10T08:15:00,ALT,ACC-1\n" +
	"S001,Week 4,Chemistry,2025-04-09T09:00:00,ALT,ACC-2\n" +
	"S002,SCREENING,Chemistry,2025-03-12T10:00:00,ALT,ACC-3\n"

func newTestServer(t *testing.T) *httptest.Server {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	srv := httptest.NewServer(NewRouter(NewHandler(store, log)))
	t.Cleanup(srv.Close)
	return srv
}

func uploadBody(t *testing.T, siteData, labData string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("site_file", "edc.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(siteData))
	require.NoError(t, err)

	part, err = w.CreateFormFile("lab_file", "lab.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(labData))
	require.NoError(t, err)

	require.NoError(t, w.WriteField("label", "smoke test"))
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func createRun(t *testing.T, srv *httptest.Server) ReportResponse {
	t.Helper()

	body, contentType := uploadBody(t, siteCSV, labCSV)
	resp, err := http.Post(srv.URL+"/api/reconciliations", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var report ReportResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	return report
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreateReconciliation_Success(t *testing.T) {
	// GIVEN: Valid site and lab uploads
	// WHEN: POSTing them
	// THEN: 201 with the full report and a persisted run ID

	srv := newTestServer(t)
	report := createRun(t, srv)

	assert.NotEmpty(t, report.Run.ID)
	assert.Equal(t, "smoke test", report.Run.Label)
	assert.Equal(t, 3, report.Stats.Total)
	assert.Equal(t, 2, report.Stats.Matched)
	assert.Equal(t, 1, report.Stats.LabOnly)
	assert.Equal(t, 1, report.Stats.DateMismatches)
	require.Len(t, report.SubjectGaps, 1)
	assert.Equal(t, "S002", report.SubjectGaps[0].Subject)
	require.Len(t, report.DateMismatches, 1)
	assert.Equal(t, 2, report.DateMismatches[0].DiffDays)
}

func TestCreateReconciliation_MissingColumns(t *testing.T) {
	// GIVEN: A site file lacking the category column
	// WHEN: POSTing
	// THEN: 400 naming the missing column

	srv := newTestServer(t)

	badSite := "PATIENT,SITE,VISITORFORMNAME,LBDAT,LBPERF\nS001,101,Screening,10/Mar/2025,Yes\n"
	body, contentType := uploadBody(t, badSite, labCSV)

	resp, err := http.Post(srv.URL+"/api/reconciliations", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Contains(t, errResp.Details, "LBCAT")
}

func TestCreateReconciliation_MissingFile(t *testing.T) {
	// GIVEN: An upload with no lab_file part
	// WHEN: POSTing
	// THEN: 400

	srv := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("site_file", "edc.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(siteCSV))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := http.Post(srv.URL+"/api/reconciliations", w.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// LIST / GET
// =============================================================================

func TestListAndGetReconciliation(t *testing.T) {
	// GIVEN: One stored run
	// WHEN: Listing and fetching it by ID
	// THEN: The list shows the summary; the fetch rebuilds the full report

	srv := newTestServer(t)
	created := createRun(t, srv)

	resp, err := http.Get(srv.URL + "/api/reconciliations")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []RunDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, created.Run.ID, runs[0].ID)
	assert.Equal(t, created.Stats.Total, runs[0].Total)

	resp, err = http.Get(srv.URL + "/api/reconciliations/" + created.Run.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report ReportResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, created.Stats, report.Stats)
	assert.Equal(t, len(created.Results), len(report.Results))
	assert.Equal(t, created.SubjectGaps, report.SubjectGaps)
}

func TestGetReconciliation_NotFound(t *testing.T) {
	// GIVEN: No runs
	// WHEN: Fetching an unknown ID
	// THEN: 404

	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/reconciliations/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// EXPORT
// =============================================================================

func TestExportReconciliation_StreamsWorkbook(t *testing.T) {
	// GIVEN: A stored run
	// WHEN: Requesting the export
	// THEN: An xlsx attachment with the conventional file name prefix

	srv := newTestServer(t)
	created := createRun(t, srv)

	resp, err := http.Get(srv.URL + "/api/reconciliations/" + created.Run.ID + "/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Lab_Reconciliation_Report_")
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
