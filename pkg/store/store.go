// Package store persists reweighting results to a SQLite database, so that
// successive runs over the same surveys can be compared without re-parsing
// result files. It uses the pure-Go modernc.org/sqlite driver; no cgo.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/surveykit/poststrat/pkg/table"
)

// Store wraps a SQLite database holding run metadata and distributions.
type Store struct {
	db *sql.DB
}

// RunMeta describes one reweighting run.
type RunMeta struct {
	ID             string    // uuid; assigned by SaveRun when empty
	ReferencePath  string    // reference (population) dataset
	TargetPath     string    // target (reweighted) dataset
	LowerBound     float64   // trim lower bound
	UpperBound     float64   // trim upper bound
	QuantilePoints int       // probability grid size
	AllowPartial   bool      // partial strata coverage tolerated
	CreatedAt      time.Time // set by SaveRun
}

const schema = `
CREATE TABLE IF NOT EXISTS run (
    id TEXT PRIMARY KEY,
    reference_path TEXT NOT NULL,
    target_path TEXT NOT NULL,
    lower_bound REAL NOT NULL,
    upper_bound REAL NOT NULL,
    quantile_points INTEGER NOT NULL,
    allow_partial INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS distribution (
    run_id TEXT NOT NULL REFERENCES run(id) ON DELETE CASCADE,
    outcome_value REAL NOT NULL,
    estimated_mass REAL NOT NULL,
    distribution_category TEXT NOT NULL,
    outcome_field TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_distribution_run_id ON distribution(run_id);
`

// Open opens (or creates) the database at path and ensures the schema
// exists. Safe to call against an existing database; the schema uses
// IF NOT EXISTS throughout.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and its result rows in one transaction.
// When meta.ID is empty a fresh uuid is assigned; the stored meta
// (including CreatedAt) is returned.
func (s *Store) SaveRun(ctx context.Context, meta RunMeta, rows []table.ResultRow) (RunMeta, error) {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	meta.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunMeta{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO run (id, reference_path, target_path, lower_bound, upper_bound, quantile_points, allow_partial, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.ReferencePath, meta.TargetPath,
		meta.LowerBound, meta.UpperBound, meta.QuantilePoints,
		boolToInt(meta.AllowPartial), meta.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return RunMeta{}, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO distribution (run_id, outcome_value, estimated_mass, distribution_category, outcome_field)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return RunMeta{}, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, meta.ID, r.OutcomeValue, r.EstimatedMass, r.Category, r.Field); err != nil {
			return RunMeta{}, fmt.Errorf("insert distribution row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return RunMeta{}, fmt.Errorf("commit: %w", err)
	}
	return meta, nil
}

// Distributions returns the result rows stored for a run, ordered by
// outcome field, category, and value.
func (s *Store) Distributions(ctx context.Context, runID string) ([]table.ResultRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome_value, estimated_mass, distribution_category, outcome_field
		 FROM distribution WHERE run_id = ?
		 ORDER BY outcome_field, distribution_category, outcome_value`, runID)
	if err != nil {
		return nil, fmt.Errorf("query distributions: %w", err)
	}
	defer rows.Close()

	var out []table.ResultRow
	for rows.Next() {
		var r table.ResultRow
		if err := rows.Scan(&r.OutcomeValue, &r.EstimatedMass, &r.Category, &r.Field); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, reference_path, target_path, lower_bound, upper_bound, quantile_points, allow_partial, created_at
		 FROM run ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunMeta
	for rows.Next() {
		var m RunMeta
		var allowPartial int
		var createdAt string
		if err := rows.Scan(&m.ID, &m.ReferencePath, &m.TargetPath,
			&m.LowerBound, &m.UpperBound, &m.QuantilePoints, &allowPartial, &createdAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		m.AllowPartial = allowPartial != 0
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			m.CreatedAt = ts
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
