// Package store provides SQLite-backed persistence of ranking runs, so the
// measured rates and scores can be compared across invocations.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pacmirror/pacmirror/internal/mirror"
)

// Run records one ranking execution.
type Run struct {
	ID         int64
	SourceURL  string
	TargetRepo string
	Candidates int
	Selected   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Result is one selected mirror of a run, in rank order.
type Result struct {
	RunID         int64
	Rank          int
	URL           string
	Country       string
	Delay         *int
	Score         *float64
	TransferRate  *float64
	WeightedScore *float64
}

// Store provides SQLite-backed persistence.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens the history database at dbPath and runs migrations.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("history store opened", "path", dbPath)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func (s *Store) migrate() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_url TEXT NOT NULL,
			target_repo TEXT NOT NULL,
			candidates INTEGER NOT NULL,
			selected INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS results (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			rank INTEGER NOT NULL,
			url TEXT NOT NULL,
			country TEXT NOT NULL,
			delay INTEGER,
			score REAL,
			transfer_rate REAL,
			weighted_score REAL,
			PRIMARY KEY (run_id, rank)
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun inserts a run and its selected mirrors in a single transaction and
// sets run.ID.
func (s *Store) SaveRun(run *Run, selected mirror.Mirrors) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (source_url, target_repo, candidates, selected, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.SourceURL, run.TargetRepo, run.Candidates, run.Selected, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get run id: %w", err)
	}
	run.ID = id

	for i := range selected {
		m := &selected[i]
		_, err := tx.Exec(
			`INSERT INTO results (run_id, rank, url, country, delay, score, transfer_rate, weighted_score)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i+1, m.URL, m.Country,
			nullInt(m.Delay), nullFloat(m.Score), nullFloat(m.TransferRate), nullFloat(m.WeightedScore),
		)
		if err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", m.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Info("run saved to history", "run_id", id, "selected", len(selected))
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, source_url, target_repo, candidates, selected, started_at, finished_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.SourceURL, &r.TargetRepo, &r.Candidates, &r.Selected, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunResults returns the selected mirrors of one run in rank order.
func (s *Store) RunResults(runID int64) ([]Result, error) {
	rows, err := s.db.Query(
		`SELECT run_id, rank, url, country, delay, score, transfer_rate, weighted_score
		 FROM results WHERE run_id = ? ORDER BY rank`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var delay sql.NullInt64
		var score, rate, weighted sql.NullFloat64
		if err := rows.Scan(&r.RunID, &r.Rank, &r.URL, &r.Country, &delay, &score, &rate, &weighted); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if delay.Valid {
			d := int(delay.Int64)
			r.Delay = &d
		}
		r.Score = fromNullFloat(score)
		r.TransferRate = fromNullFloat(rate)
		r.WeightedScore = fromNullFloat(weighted)
		results = append(results, r)
	}
	return results, rows.Err()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
