/*
handlers.go - HTTP API handlers for the reconciliation service

PURPOSE:
  Exposes the reconciliation engine via REST API. Handles multipart file
  upload, JSON serialization, and delegates to the engine, ingest and
  store packages.

ENDPOINTS:
  POST   /api/reconciliations               Upload site+lab files, run, persist
  GET    /api/reconciliations               List past runs
  GET    /api/reconciliations/{id}          Full report for a run
  GET    /api/reconciliations/{id}/export   Workbook download
  GET    /api/health                        Liveness probe

REQUEST FLOW:
  1. Parse multipart upload (site_file, lab_file, optional label)
  2. Read tables (encoding detection, column validation)
  3. Run the engine
  4. Persist the run
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input (missing columns, undecodable encoding, empty table)
  - 404: Unknown run
  - 500: Internal errors

SECURITY NOTE:
  No authentication middleware. The service is deployed behind the
  application gateway which owns auth.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/recon-engine/export"
	"github.com/warp/recon-engine/ingest"
	"github.com/warp/recon-engine/recon"
	"github.com/warp/recon-engine/store/sqlite"
)

// maxUploadBytes bounds one upload pair; lab exports run to a few MB.
const maxUploadBytes = 64 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *recon.Engine
	Log    *logrus.Logger
}

// NewHandler creates a new handler with the given store and logger.
func NewHandler(store *sqlite.Store, log *logrus.Logger) *Handler {
	return &Handler{
		Store:  store,
		Engine: recon.NewEngine(log),
		Log:    log,
	}
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

// CreateReconciliation runs a reconciliation over an uploaded file pair.
// POST /api/reconciliations  (multipart: site_file, lab_file, label?)
func (h *Handler) CreateReconciliation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart upload", err)
		return
	}

	siteName, siteData, err := formFile(r, "site_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing site_file upload", err)
		return
	}
	labName, labData, err := formFile(r, "lab_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing lab_file upload", err)
		return
	}

	siteRows, labRows, err := readInputs(siteName, siteData, labName, labData)
	if err != nil {
		writeInputError(w, err)
		return
	}

	report, err := h.Engine.Run(siteName, siteRows, labName, labRows)
	if err != nil {
		writeInputError(w, err)
		return
	}

	run := sqlite.RunRecord{
		ID:          uuid.NewString(),
		Label:       r.FormValue("label"),
		SiteFile:    siteName,
		LabFile:     labName,
		Stats:       report.Stats,
		Diagnostics: report.Diagnostics,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Store.SaveRun(r.Context(), run, report.Results); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to persist run", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"run_id":    run.ID,
		"site_file": siteName,
		"lab_file":  labName,
		"total":     report.Stats.Total,
	}).Info("reconciliation run stored")

	writeJSON(w, http.StatusCreated, toReportResponse(run, report))
}

// ListReconciliations returns past runs, newest first.
// GET /api/reconciliations
func (h *Handler) ListReconciliations(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context(), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetReconciliation returns the full report for a stored run. Gap views
// are re-derived from the persisted flat results.
// GET /api/reconciliations/{id}
func (h *Handler) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	run, report, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(*run, report))
}

// ExportReconciliation streams the five-sheet workbook for a stored run.
// GET /api/reconciliations/{id}/export
func (h *Handler) ExportReconciliation(w http.ResponseWriter, r *http.Request) {
	_, report, ok := h.loadReport(w, r)
	if !ok {
		return
	}

	f, err := export.BuildWorkbook(report)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}
	defer f.Close()

	filename := export.ReportFileName("xlsx", time.Now())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if err := f.Write(w); err != nil {
		h.Log.WithError(err).Error("failed to stream workbook")
	}
}

// Health is a liveness probe.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadReport(w http.ResponseWriter, r *http.Request) (*sqlite.RunRecord, *recon.Report, bool) {
	id := chi.URLParam(r, "id")

	run, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		if recon.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Run not found", err)
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to load run", err)
		}
		return nil, nil, false
	}

	results, err := h.Store.LoadResults(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load results", err)
		return nil, nil, false
	}

	report := recon.AssembleReport(results, run.Diagnostics)
	// Re-deriving stats loses nothing, but the stored snapshot is the
	// source of truth for source-row counts.
	report.Stats.SourceSiteRows = run.Stats.SourceSiteRows
	report.Stats.SourceLabRows = run.Stats.SourceLabRows

	return run, report, true
}

func readInputs(siteName string, siteData []byte, labName string, labData []byte) ([]recon.SiteRow, []recon.LabRow, error) {
	siteTable, err := ingest.ReadTable(siteName, siteData)
	if err != nil {
		return nil, nil, err
	}
	siteRows, err := ingest.SiteRows(siteTable)
	if err != nil {
		return nil, nil, err
	}

	labTable, err := ingest.ReadTable(labName, labData)
	if err != nil {
		return nil, nil, err
	}
	labRows, err := ingest.LabRows(labTable)
	if err != nil {
		return nil, nil, err
	}

	return siteRows, labRows, nil
}

func formFile(r *http.Request, field string) (string, []byte, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return "", nil, err
	}
	return headerName(header), data, nil
}

func headerName(h *multipart.FileHeader) string {
	if h.Filename != "" {
		return h.Filename
	}
	return "upload"
}

func writeInputError(w http.ResponseWriter, err error) {
	if recon.IsInputError(err) {
		writeError(w, http.StatusBadRequest, "Malformed input file", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "Reconciliation failed", err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
