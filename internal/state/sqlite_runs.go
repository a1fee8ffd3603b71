package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/mvrefresh/internal/refresh"
)

// CreateRun creates a new refresh run in the running state.
func (s *SQLiteStore) CreateRun(dryRun bool) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        generateID(),
		Status:    RunStatusRunning,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.Bool("dry_run", dryRun))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, status, dry_run, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, string(run.Status), run.DryRun, formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// RecordResult stores the outcome of the view at position within a run.
func (s *SQLiteStore) RecordResult(runID string, position int, res refresh.Result) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errMsg *string
	if res.Err != nil {
		msg := res.Err.Error()
		errMsg = &msg
	}

	_, err := s.db.Exec(
		`INSERT INTO view_refreshes
			(run_id, position, view_schema, view_name, outcome, statements, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, position, res.View.Schema, res.View.Name, string(res.Outcome),
		len(res.Statements), res.Duration.Milliseconds(), errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to record result for %s: %w", res.View, err)
	}
	return nil
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), errorPtr, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

const runSelect = `
	SELECT
		r.id, r.status, r.dry_run, r.started_at, r.completed_at, r.error,
		COALESCE(SUM(CASE WHEN v.outcome IN ('refreshed-concurrently', 'refreshed-non-concurrently') THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN v.outcome = 'refreshed-non-concurrently' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN v.outcome = 'skipped-by-filter' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN v.outcome = 'failed' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN v.outcome = 'planned' THEN 1 ELSE 0 END), 0)
	FROM runs r
	LEFT JOIN view_refreshes v ON v.run_id = r.id`

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(runSelect+` WHERE r.id = ? GROUP BY r.id`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(runSelect+` GROUP BY r.id ORDER BY r.started_at DESC, r.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// ListResults returns the recorded view outcomes of a run in position order.
func (s *SQLiteStore) ListResults(runID string) ([]*ViewResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT run_id, position, view_schema, view_name, outcome, statements, duration_ms, error
		 FROM view_refreshes WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*ViewResult
	for rows.Next() {
		r := &ViewResult{}
		var errMsg sql.NullString
		if err := rows.Scan(&r.RunID, &r.Position, &r.Schema, &r.Name, &r.Outcome,
			&r.Statements, &r.DurationMS, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Error = errMsg.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var (
		status      string
		startedAt   string
		completedAt sql.NullString
		errMsg      sql.NullString
	)
	if err := row.Scan(&run.ID, &status, &run.DryRun, &startedAt, &completedAt, &errMsg,
		&run.Refreshed, &run.Fallbacks, &run.Skipped, &run.Failed, &run.Planned); err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	run.Error = errMsg.String

	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}
	return run, nil
}
