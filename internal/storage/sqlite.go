package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/san-kum/lyapsim/internal/lyapunov"
)

const sqlSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    system TEXT NOT NULL,
    created_at TEXT NOT NULL,
    status TEXT NOT NULL,
    lambda REAL,
    meta TEXT NOT NULL  -- JSON RunMetadata
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS samples (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    idx INTEGER NOT NULL,
    t REAL NOT NULL,
    d REAL NOT NULL,
    ln_d REAL NOT NULL,
    lambda_running REAL,  -- NULL before the first renormalization
    PRIMARY KEY (run_id, idx)
);
`

// sqlTime has a fixed width so created_at sorts lexically.
const sqlTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLStore keeps runs in a single SQLite database.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(dbPath string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), sqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func (s *SQLStore) Save(ctx context.Context, rec Record) (string, error) {
	runID := NewRunID(string(rec.Params.System))
	meta := rec.metadata(runID, s.now().UTC())

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, system, created_at, status, lambda, meta) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, meta.System, meta.Timestamp.Format(sqlTime), meta.Status,
		nullFloat(rec.Result.Lambda), string(metaJSON)); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (run_id, idx, t, d, ln_d, lambda_running) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	series := rec.Result.Series
	for i := 0; i < series.Len(); i++ {
		sm := series.At(i)
		if _, err := stmt.ExecContext(ctx, runID, i, sm.T, sm.Distance, sm.LnDistance, nullFloat(sm.RunningLambda)); err != nil {
			return "", fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// List returns every run, newest first.
func (s *SQLStore) List(ctx context.Context) ([]RunMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT meta FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var meta RunMetadata
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return nil, fmt.Errorf("failed to decode run metadata: %w", err)
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

func (s *SQLStore) Load(ctx context.Context, runID string) (*RunMetadata, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT meta FROM runs WHERE id = ?`, runID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var meta RunMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("failed to decode run metadata: %w", err)
	}
	return &meta, nil
}

func (s *SQLStore) LoadSeries(ctx context.Context, runID string) (lyapunov.Series, error) {
	if _, err := s.Load(ctx, runID); err != nil {
		return lyapunov.Series{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT t, d, ln_d, lambda_running FROM samples WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return lyapunov.Series{}, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var series lyapunov.Series
	for rows.Next() {
		var sm lyapunov.Sample
		var lam sql.NullFloat64
		if err := rows.Scan(&sm.T, &sm.Distance, &sm.LnDistance, &lam); err != nil {
			return lyapunov.Series{}, err
		}
		sm.RunningLambda = math.NaN()
		if lam.Valid {
			sm.RunningLambda = lam.Float64
		}
		series.Append(sm)
	}
	return series, rows.Err()
}
