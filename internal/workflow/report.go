package workflow

import (
	"time"

	"brainprep/internal/manifest"
	"brainprep/internal/stage"
)

// StageSummary is the tally for one stage.
type StageSummary struct {
	Stage  stage.Name      `json:"stage"`
	Counts manifest.Counts `json:"counts"`
}

// Report aggregates every result produced by one run.
type Report struct {
	RunID      string         `json:"run_id"`
	Stages     []stage.Name   `json:"stages"`
	Patients   []string       `json:"patients"`
	Results    []stage.Result `json:"results"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

func newReport(runID string, stages []stage.Name, patients []string) *Report {
	return &Report{
		RunID:     runID,
		Stages:    append([]stage.Name(nil), stages...),
		Patients:  append([]string(nil), patients...),
		StartedAt: time.Now().UTC(),
	}
}

// Add appends a result.
func (r *Report) Add(result stage.Result) {
	r.Results = append(r.Results, result)
}

// Counts tallies every result.
func (r *Report) Counts() manifest.Counts {
	var counts manifest.Counts
	for _, result := range r.Results {
		counts.Add(result.Status)
	}
	return counts
}

// Summary tallies results per stage in the run's stage order.
func (r *Report) Summary() []StageSummary {
	byStage := make(map[stage.Name]*manifest.Counts, len(r.Stages))
	summary := make([]StageSummary, len(r.Stages))
	for i, name := range r.Stages {
		summary[i].Stage = name
		byStage[name] = &summary[i].Counts
	}
	for _, result := range r.Results {
		if counts, ok := byStage[result.Stage]; ok {
			counts.Add(result.Status)
		}
	}
	return summary
}

// Failures returns the failed results in run order.
func (r *Report) Failures() []stage.Result {
	var failures []stage.Result
	for _, result := range r.Results {
		if result.Status == stage.StatusFailed {
			failures = append(failures, result)
		}
	}
	return failures
}

// HasFailures reports whether any item failed.
func (r *Report) HasFailures() bool {
	return r.Counts().Failed > 0
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
