package stage

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"brainprep/internal/services"
)

// Status is the outcome of one stage item.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Label returns the capitalized status for display.
func (s Status) Label() string {
	return cases.Title(language.Und).String(string(s))
}

// Reasons recorded for skipped items.
const (
	ReasonNotInCohort  = "not in cohort"
	ReasonOutputExists = "output exists"
	ReasonNoInputs     = "no inputs found"
)

// Result records what a stage did with one input.
type Result struct {
	Patient    string
	Stage      Name
	Input      string
	Output     string
	Status     Status
	Reason     string
	ErrorKind  string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time spent on the item.
func (r Result) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Recorder stamps Results for one patient and stage.
type Recorder struct {
	Patient string
	Stage   Name
	now     func() time.Time
}

// NewRecorder builds a Recorder using the wall clock.
func NewRecorder(stageName Name, patient string) *Recorder {
	return &Recorder{Patient: patient, Stage: stageName, now: time.Now}
}

// Succeeded records a completed item.
func (r *Recorder) Succeeded(started time.Time, input, output string) Result {
	return r.result(started, input, output, StatusSucceeded, "", "")
}

// Skipped records an item that needed no work.
func (r *Recorder) Skipped(input, output, reason string) Result {
	now := r.now().UTC()
	return r.result(now, input, output, StatusSkipped, reason, "")
}

// Failed records an item whose processing returned err.
func (r *Recorder) Failed(started time.Time, input, output string, err error) Result {
	reason := "failed"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	return r.result(started, input, output, StatusFailed, reason, services.Kind(err))
}

func (r *Recorder) result(started time.Time, input, output string, status Status, reason, kind string) Result {
	return Result{
		Patient:    r.Patient,
		Stage:      r.Stage,
		Input:      input,
		Output:     output,
		Status:     status,
		Reason:     reason,
		ErrorKind:  kind,
		StartedAt:  started.UTC(),
		FinishedAt: r.now().UTC(),
	}
}
