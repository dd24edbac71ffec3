package manifest

import (
	"database/sql"
	"errors"
	"time"

	"brainprep/internal/stage"
)

const runColumns = "id, status, stages, patients, succeeded, skipped, failed, error_message, started_at, finished_at"

const entryColumns = "id, run_id, patient_id, stage, input_path, output_path, status, reason, error_kind, started_at, finished_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanRun(scanner rowScanner) (*Run, error) {
	var (
		id          string
		status      string
		stages      string
		patients    int
		succeeded   int
		skipped     int
		failed      int
		errorMsg    sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&status,
		&stages,
		&patients,
		&succeeded,
		&skipped,
		&failed,
		&errorMsg,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           id,
		Status:       RunStatus(status),
		Stages:       splitStages(stages),
		Patients:     patients,
		Counts:       Counts{Succeeded: succeeded, Skipped: skipped, Failed: failed},
		ErrorMessage: errorMsg.String,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

func scanEntry(scanner rowScanner) (Entry, error) {
	var (
		entry       Entry
		stageName   string
		status      string
		input       sql.NullString
		output      sql.NullString
		reason      sql.NullString
		errorKind   sql.NullString
		startedRaw  sql.NullString
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.RunID,
		&entry.Patient,
		&stageName,
		&input,
		&output,
		&status,
		&reason,
		&errorKind,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Entry{}, err
	}
	entry.Stage = stage.Name(stageName)
	entry.Status = stage.Status(status)
	entry.Input = input.String
	entry.Output = output.String
	entry.Reason = reason.String
	entry.ErrorKind = errorKind.String
	if started, err := parseTimeString(startedRaw.String); err == nil {
		entry.StartedAt = started
	}
	if finished, err := parseTimeString(finishedRaw.String); err == nil {
		entry.FinishedAt = finished
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
