package manifest

import (
	"strings"
	"time"

	"brainprep/internal/stage"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCanceled  RunStatus = "canceled"
)

// Counts tallies entries by status.
type Counts struct {
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Add tallies one result status.
func (c *Counts) Add(status stage.Status) {
	switch status {
	case stage.StatusSucceeded:
		c.Succeeded++
	case stage.StatusSkipped:
		c.Skipped++
	case stage.StatusFailed:
		c.Failed++
	}
}

// Total returns the number of tallied entries.
func (c Counts) Total() int {
	return c.Succeeded + c.Skipped + c.Failed
}

// Run is one invocation of the workflow.
type Run struct {
	ID           string       `json:"id"`
	Status       RunStatus    `json:"status"`
	Stages       []stage.Name `json:"stages"`
	Patients     int          `json:"patients"`
	Counts       Counts       `json:"counts"`
	ErrorMessage string       `json:"error_message,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

// Entry is one persisted stage result.
type Entry struct {
	ID         int64        `json:"id"`
	RunID      string       `json:"run_id"`
	Patient    string       `json:"patient_id"`
	Stage      stage.Name   `json:"stage"`
	Input      string       `json:"input,omitempty"`
	Output     string       `json:"output,omitempty"`
	Status     stage.Status `json:"status"`
	Reason     string       `json:"reason,omitempty"`
	ErrorKind  string       `json:"error_kind,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Result converts the entry back to a stage result.
func (e Entry) Result() stage.Result {
	return stage.Result{
		Patient:    e.Patient,
		Stage:      e.Stage,
		Input:      e.Input,
		Output:     e.Output,
		Status:     e.Status,
		Reason:     e.Reason,
		ErrorKind:  e.ErrorKind,
		StartedAt:  e.StartedAt,
		FinishedAt: e.FinishedAt,
	}
}

func joinStages(stages []stage.Name) string {
	parts := make([]string, 0, len(stages))
	for _, name := range stages {
		parts = append(parts, string(name))
	}
	return strings.Join(parts, ",")
}

func splitStages(raw string) []stage.Name {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	stages := make([]stage.Name, 0, len(parts))
	for _, part := range parts {
		stages = append(stages, stage.Name(part))
	}
	return stages
}
