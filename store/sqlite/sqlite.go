/*
Package sqlite persists completed reconciliation runs.

PURPOSE:
  The engine itself is stateless - every run is a fresh computation over
  two immutable input tables. This store records run OUTCOMES so data
  managers can list past runs, reopen a report, and re-export the
  workbook without re-uploading the source files.

KEY TABLES:
  runs:        One row per reconciliation run (source files, summary
               stats, diagnostics)
  run_results: The flat reconciliation table for a run, one row per key

WRITE DISCIPLINE:
  A run and its results are written in a single database transaction;
  a run never exists without its result rows. Runs are never updated -
  re-running the same files creates a new run.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL for
  better read concurrency.

USAGE:
  store, err := sqlite.New("./data/recon.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - recon/report.go: AssembleReport rebuilds gap views from stored results
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/recon-engine/recon"
)

// Store persists reconciliation runs using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a store at the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		label TEXT,
		site_file TEXT NOT NULL,
		lab_file TEXT NOT NULL,
		total INTEGER NOT NULL,
		matched INTEGER NOT NULL,
		site_only INTEGER NOT NULL,
		lab_only INTEGER NOT NULL,
		date_mismatches INTEGER NOT NULL,
		stats_json TEXT NOT NULL,
		diagnostics_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at
		ON runs(created_at DESC);

	CREATE TABLE IF NOT EXISTS run_results (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		subject TEXT NOT NULL,
		visit TEXT NOT NULL,
		category TEXT NOT NULL,
		match_status TEXT NOT NULL,
		date_match TEXT NOT NULL,
		site_date TEXT,
		lab_date TEXT,
		diff_days INTEGER,
		site_id TEXT,
		test_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_run_results_subject
		ON run_results(run_id, subject);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RUN RECORDS
// =============================================================================

// RunRecord is a stored reconciliation run.
type RunRecord struct {
	ID          string
	Label       string
	SiteFile    string
	LabFile     string
	Stats       recon.Stats
	Diagnostics recon.Diagnostics
	CreatedAt   time.Time
}

// SaveRun persists a run and its flat results atomically.
func (s *Store) SaveRun(ctx context.Context, run RunRecord, results []recon.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	diagJSON, err := json.Marshal(run.Diagnostics)
	if err != nil {
		return fmt.Errorf("encoding diagnostics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, label, site_file, lab_file, total, matched, site_only, lab_only,
		 date_mismatches, stats_json, diagnostics_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		nullString(run.Label),
		run.SiteFile,
		run.LabFile,
		run.Stats.Total,
		run.Stats.Matched,
		run.Stats.SiteOnly,
		run.Stats.LabOnly,
		run.Stats.DateMismatches,
		string(statsJSON),
		string(diagJSON),
		run.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_results
		(run_id, position, subject, visit, category, match_status, date_match,
		 site_date, lab_date, diff_days, site_id, test_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		var diff *int
		if r.DiffKnown {
			d := r.DiffDays
			diff = &d
		}
		_, err = stmt.ExecContext(ctx,
			run.ID, i,
			string(r.Key.Subject), string(r.Key.Visit), string(r.Key.Category),
			string(r.Status), string(r.DateMatch),
			nullString(r.SiteDate.String()), nullString(r.LabDate.String()),
			diff, nullString(r.SiteID), r.TestCount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert result %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run by ID. Returns recon.ErrRunNotFound when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, label, site_file, lab_file, stats_json, diagnostics_json, created_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, recon.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, site_file, lab_file, stats_json, diagnostics_json, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		run                 RunRecord
		label               sql.NullString
		statsJSON, diagJSON string
		createdAt           string
	)

	err := row.Scan(&run.ID, &label, &run.SiteFile, &run.LabFile,
		&statsJSON, &diagJSON, &createdAt)
	if err != nil {
		return nil, err
	}

	run.Label = label.String
	if err := json.Unmarshal([]byte(statsJSON), &run.Stats); err != nil {
		return nil, fmt.Errorf("decoding stats: %w", err)
	}
	if err := json.Unmarshal([]byte(diagJSON), &run.Diagnostics); err != nil {
		return nil, fmt.Errorf("decoding diagnostics: %w", err)
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &run, nil
}

// =============================================================================
// RESULT ROWS
// =============================================================================

// LoadResults returns a run's flat results in their original emission
// order, suitable for recon.AssembleReport.
func (s *Store) LoadResults(ctx context.Context, runID string) ([]recon.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT subject, visit, category, match_status, date_match,
		       site_date, lab_date, diff_days, site_id, test_count
		FROM run_results
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []recon.Result
	for rows.Next() {
		var (
			r                         recon.Result
			subject, visit, category  string
			status, dateMatch         string
			siteDate, labDate, siteID sql.NullString
			diffDays                  sql.NullInt64
		)

		err := rows.Scan(&subject, &visit, &category, &status, &dateMatch,
			&siteDate, &labDate, &diffDays, &siteID, &r.TestCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		r.Key = recon.Key{
			Subject:  recon.SubjectID(subject),
			Visit:    recon.VisitName(visit),
			Category: recon.Category(category),
		}
		r.Status = recon.MatchStatus(status)
		r.DateMatch = recon.DateMatchStatus(dateMatch)
		if siteDate.Valid {
			r.SiteDate = recon.ParseDate(siteDate.String)
		}
		if labDate.Valid {
			r.LabDate = recon.ParseDate(labDate.String)
		}
		if diffDays.Valid {
			r.DiffDays = int(diffDays.Int64)
			r.DiffKnown = true
		}
		r.SiteID = siteID.String

		results = append(results, r)
	}
	return results, rows.Err()
}

// DeleteRun removes a run and (via cascade) its results.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	return err
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
