package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"brainprep/internal/manifest"
	"brainprep/internal/stage"
	"brainprep/internal/workflow"
)

func printReport(w io.Writer, report *workflow.Report, colorize bool) error {
	for _, line := range renderSectionHeader("Run "+shortID(report.RunID), colorize) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, renderField("Stages", joinStageLabels(report.Stages)))
	fmt.Fprintln(w, renderField("Patients", strconv.Itoa(len(report.Patients))))
	fmt.Fprintln(w, renderField("Duration", report.Duration().Round(time.Millisecond).String()))
	fmt.Fprintln(w)

	summary := report.Summary()
	rows := make([][]string, 0, len(summary))
	for _, s := range summary {
		rows = append(rows, countsRow(s.Stage.Label(), s.Counts))
	}
	fmt.Fprintln(w, renderTableWithFooter(
		[]string{"Stage", "Succeeded", "Skipped", "Failed"},
		rows,
		countsRow("Total", report.Counts()),
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	))

	failures := report.Failures()
	if len(failures) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	for _, line := range renderSectionHeader("Failures", colorize) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Patient", "Stage", "Input", "Kind", "Reason"},
		resultRows(failures),
		nil,
	))
	return nil
}

func countsRow(label string, counts manifest.Counts) []string {
	return []string{
		label,
		strconv.Itoa(counts.Succeeded),
		strconv.Itoa(counts.Skipped),
		strconv.Itoa(counts.Failed),
	}
}

func resultRows(results []stage.Result) [][]string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, []string{
			result.Patient,
			result.Stage.Label(),
			truncate(result.Input, 60),
			result.ErrorKind,
			truncate(result.Reason, 80),
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate keeps the tail of long values, where paths carry their meaning.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if limit <= 3 || len(runes) <= limit {
		return value
	}
	return "..." + string(runes[len(runes)-limit+3:])
}
