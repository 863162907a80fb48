// Package state records pipeline run summaries in a local SQLite database.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"medallion/internal/engine"
)

const timeLayout = time.RFC3339Nano

// Run is one recorded stage run.
type Run struct {
	ID              string
	Stage           string
	Namespace       string
	Status          string
	Started         time.Time
	Finished        time.Time
	TablesAttempted int
	TablesSucceeded int
	TotalRows       int64
	Error           string
}

func (r Run) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// TableRun is the recorded outcome of one table within a run.
type TableRun struct {
	Unit     string
	Table    string
	State    string
	Rows     int64
	RowsIn   int
	Dropped  int
	Reason   string
	Duration time.Duration
}

const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusAborted   = "ABORTED"
)

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	} else {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping state db: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for tests and diagnostics.
func (s *Store) DB() *sql.DB { return s.db }

// RecordRun stores a summary and its per-table results in one transaction.
func (s *Store) RecordRun(ctx context.Context, sum *engine.Summary) error {
	if sum == nil {
		return errors.New("nil summary")
	}
	status := StatusSucceeded
	var errText sql.NullString
	if err := sum.Err(); err != nil {
		status = StatusFailed
		errText = sql.NullString{String: err.Error(), Valid: true}
	}
	if sum.Aborted != nil {
		status = StatusAborted
		errText = sql.NullString{String: sum.Aborted.Error(), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, stage, namespace, status, started_at, finished_at, tables_attempted, tables_succeeded, total_rows, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.Stage, sum.Namespace, status,
		sum.Started.UTC().Format(timeLayout), sum.Finished.UTC().Format(timeLayout),
		sum.Attempted(), sum.Succeeded(), sum.TotalRows(), errText,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", sum.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_tables
		(run_id, position, unit, table_name, state, rows, rows_in, dropped, reason, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()
	for i, t := range sum.Tables {
		var reason sql.NullString
		if t.Reason != "" {
			reason = sql.NullString{String: t.Reason, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, sum.RunID, i, t.Unit, t.Table, string(t.State), t.Rows,
			t.Stats.RowsIn, t.Stats.TotalDropped(), reason, t.Duration.Milliseconds()); err != nil {
			return fmt.Errorf("insert table %s: %w", t.Table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("run recorded", "run_id", sum.RunID, "stage", sum.Stage, "status", status)
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 means all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, stage, namespace, status, started_at, finished_at,
		tables_attempted, tables_succeeded, total_rows, error
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r              Run
			started, ended string
			errText        sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Stage, &r.Namespace, &r.Status, &started, &ended,
			&r.TablesAttempted, &r.TablesSucceeded, &r.TotalRows, &errText); err != nil {
			return nil, err
		}
		if r.Started, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s: started_at: %w", r.ID, err)
		}
		if r.Finished, err = time.Parse(timeLayout, ended); err != nil {
			return nil, fmt.Errorf("run %s: finished_at: %w", r.ID, err)
		}
		r.Error = errText.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunTables returns the per-table results of a run in plan order.
func (s *Store) RunTables(ctx context.Context, runID string) ([]TableRun, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT unit, table_name, state, rows, rows_in, dropped, reason, duration_ms
		FROM run_tables WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list tables of %s: %w", runID, err)
	}
	defer rows.Close()

	var out []TableRun
	for rows.Next() {
		var (
			t      TableRun
			reason sql.NullString
			ms     int64
		)
		if err := rows.Scan(&t.Unit, &t.Table, &t.State, &t.Rows, &t.RowsIn, &t.Dropped, &reason, &ms); err != nil {
			return nil, err
		}
		t.Reason = reason.String
		t.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, t)
	}
	return out, rows.Err()
}
