// Package logs reads the JSON log file written by brainprep.
//
// Tail returns the last lines or the lines appended after a byte offset, and
// can wait for new lines so `brainprep logs --follow` polls with bounded
// memory. Filter narrows decoded lines to one patient, stage, run, or minimum
// level.
package logs
