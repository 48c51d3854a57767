// Package sqlite persists run history. One file on disk, no server to
// run; ":memory:" works for tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stagehand-dev/stagehand/internal/domain"
	"github.com/stagehand-dev/stagehand/internal/ports"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// Enable WAL mode for concurrent read/write access
	db.Exec("PRAGMA journal_mode=WAL")

	// Wait up to 5 seconds when the database is locked instead of failing immediately
	db.Exec("PRAGMA busy_timeout=5000")

	// Serialize all Go-side access through a single connection so SQLite
	// never sees concurrent writers (WAL + busy_timeout as defense-in-depth).
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			agent TEXT NOT NULL,
			workflow TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT
		);
		CREATE TABLE IF NOT EXISTS step_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			step_id TEXT NOT NULL,
			status TEXT NOT NULL,
			output TEXT,
			error TEXT,
			error_kind TEXT,
			started_at TEXT NOT NULL,
			completed_at TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);
	`)
	return err
}

func (s *Store) CreateRun(ctx context.Context, run *domain.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, agent, workflow, status, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Agent, run.Workflow, string(run.Status),
		formatTime(run.StartedAt), formatTime(run.CompletedAt),
	)
	return err
}

func (s *Store) CompleteRun(ctx context.Context, run *domain.Run) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ? WHERE id = ?`,
		string(run.Status), formatTime(run.CompletedAt), run.ID,
	)
	return err
}

func (s *Store) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, agent, workflow, status, started_at, completed_at FROM runs WHERE id = ?`, id)

	run := &domain.Run{}
	var startedAt, completedAt string
	err := row.Scan(&run.ID, &run.Agent, &run.Workflow, &run.Status, &startedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	run.StartedAt = parseTime(startedAt)
	run.CompletedAt = parseTime(completedAt)
	return run, nil
}

func (s *Store) ListRuns(ctx context.Context) ([]*domain.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent, workflow, status, started_at, completed_at FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		run := &domain.Run{}
		var startedAt, completedAt string
		if err := rows.Scan(&run.ID, &run.Agent, &run.Workflow, &run.Status, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		run.StartedAt = parseTime(startedAt)
		run.CompletedAt = parseTime(completedAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) RecordStepResult(ctx context.Context, runID string, result *domain.StepResult) error {
	output, err := encodeOutput(result.Output)
	if err != nil {
		return fmt.Errorf("encoding step output: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO step_results (run_id, step_id, status, output, error, error_kind, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, result.StepID, string(result.Status), output,
		result.Error, string(result.ErrorKind),
		formatTime(result.StartedAt), formatTime(result.CompletedAt),
	)
	return err
}

func (s *Store) ListStepResults(ctx context.Context, runID string) ([]*domain.StepResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT step_id, status, COALESCE(output,''), COALESCE(error,''), COALESCE(error_kind,''), started_at, completed_at
		 FROM step_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.StepResult
	for rows.Next() {
		r := &domain.StepResult{}
		var output, startedAt, completedAt string
		if err := rows.Scan(&r.StepID, &r.Status, &output, &r.Error, &r.ErrorKind, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		r.Output = decodeOutput(output)
		r.StartedAt = parseTime(startedAt)
		r.CompletedAt = parseTime(completedAt)
		results = append(results, r)
	}
	return results, rows.Err()
}

// encodeOutput stores outputs as JSON so structured analysis results
// survive the round trip through TEXT.
func encodeOutput(output any) (string, error) {
	if output == nil {
		return "", nil
	}
	encoded, err := json.Marshal(output)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeOutput(s string) any {
	if s == "" {
		return nil
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return s
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

var _ ports.ResultStore = (*Store)(nil)
