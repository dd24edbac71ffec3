// Package workflow drives the preprocessing stages over a cohort.
//
// Manager.Run takes the workspace lock, opens a manifest run, and walks every
// patient through the selected stages in canonical order. Stage handlers
// report per-item outcomes as stage.Result values; the manager persists each
// one and folds it into a Report. Item failures never abort the batch; only
// cancellation, a lost manifest, or a handler-level error end a run early,
// and the run is still finalized with the counts gathered so far.
package workflow
