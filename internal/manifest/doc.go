// Package manifest persists preprocessing runs and their per-item results in
// SQLite.
//
// Every invocation of the workflow opens a run, appends one entry per stage
// result and finalizes the run with its counts. The path convention on disk
// stays authoritative for resumption; the manifest answers what happened,
// when, and why an item was skipped or failed.
//
// Schema changes bump schemaVersion in schema.go; users clear the database
// to adopt the new schema.
package manifest
