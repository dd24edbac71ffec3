package logs

import (
	"encoding/json"
	"log/slog"
	"strings"

	"brainprep/internal/logging"
)

// Filter narrows log lines by structured fields. Empty fields match
// everything.
type Filter struct {
	PatientID string
	Stage     string
	RunID     string
	MinLevel  string
}

// Empty reports whether the filter accepts every line.
func (f Filter) Empty() bool {
	return f.PatientID == "" && f.Stage == "" && f.RunID == "" && f.MinLevel == ""
}

// Match decodes one JSON log line and reports whether it passes the filter.
// Lines that are not JSON objects only pass an empty filter.
func (f Filter) Match(line string) bool {
	if f.Empty() {
		return true
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return false
	}
	for key, want := range map[string]string{
		logging.FieldPatientID: f.PatientID,
		logging.FieldStage:     f.Stage,
		logging.FieldRunID:     f.RunID,
	} {
		if want == "" {
			continue
		}
		got, _ := record[key].(string)
		if key == logging.FieldRunID {
			if !strings.HasPrefix(got, want) {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	if f.MinLevel != "" {
		var floor, got slog.Level
		if err := floor.UnmarshalText([]byte(f.MinLevel)); err != nil {
			return false
		}
		text, _ := record[slog.LevelKey].(string)
		if err := got.UnmarshalText([]byte(text)); err != nil || got < floor {
			return false
		}
	}
	return true
}

// Apply returns the lines that pass the filter.
func (f Filter) Apply(lines []string) []string {
	if f.Empty() {
		return lines
	}
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if f.Match(line) {
			kept = append(kept, line)
		}
	}
	return kept
}
