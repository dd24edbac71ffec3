package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"brainprep/internal/stage"
)

// CreateRun records the start of a run.
func (s *Store) CreateRun(ctx context.Context, id string, stages []stage.Name, patients int) (*Run, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("run id is required")
	}
	now := time.Now().UTC()
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (id, status, stages, patients, started_at) VALUES (?, ?, ?, ?, ?)`,
		id,
		RunRunning,
		joinStages(stages),
		patients,
		now.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.GetRun(ctx, id)
}

// AppendResult persists one stage result for runID.
func (s *Store) AppendResult(ctx context.Context, runID string, result stage.Result) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO entries (
            run_id, patient_id, stage, input_path, output_path, status,
            reason, error_kind, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		result.Patient,
		string(result.Stage),
		nullableString(result.Input),
		nullableString(result.Output),
		string(result.Status),
		nullableString(result.Reason),
		nullableString(result.ErrorKind),
		nullableTime(result.StartedAt),
		nullableTime(result.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// FinishRun finalizes a run with its status and counts. runErr, when set,
// is stored as the run's error message.
func (s *Store) FinishRun(ctx context.Context, runID string, status RunStatus, counts Counts, runErr error) error {
	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs
         SET status = ?, succeeded = ?, skipped = ?, failed = ?, error_message = ?, finished_at = ?
         WHERE id = ?`,
		status,
		counts.Succeeded,
		counts.Skipped,
		counts.Failed,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	return nil
}

// GetRun fetches a run by identifier or unique prefix. It returns nil when
// nothing matches.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id LIKE ? ORDER BY rowid LIMIT 2`, id+"%")
	if err != nil {
		return nil, fmt.Errorf("get run by prefix: %w", err)
	}
	defer rows.Close()
	var matches []*Run
	for rows.Next() {
		match, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run prefix %q is ambiguous", id)
	}
}

// LatestRun returns the most recently started run, or nil when none exist.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

// ListRuns returns runs newest first. limit <= 0 returns all of them.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunEntries returns the entries of one run in insertion order.
func (s *Store) RunEntries(ctx context.Context, runID string) ([]Entry, error) {
	return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM entries WHERE run_id = ? ORDER BY id`, runID)
}

// Failures returns failed entries, newest first. An empty runID searches
// every run.
func (s *Store) Failures(ctx context.Context, runID string) ([]Entry, error) {
	if runID == "" {
		return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM entries WHERE status = ? ORDER BY id DESC`, string(stage.StatusFailed))
	}
	return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM entries WHERE run_id = ? AND status = ? ORDER BY id DESC`, runID, string(stage.StatusFailed))
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Clear removes every run and entry, returning the number of runs removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	if _, err := s.execWithRetry(ctx, `DELETE FROM entries`); err != nil {
		return 0, fmt.Errorf("clear entries: %w", err)
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}
