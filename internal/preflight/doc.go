// Package preflight checks the workspace before a run: directory access for
// the DICOM root and the work and log directories, plus the external binaries
// each stage invokes.
package preflight
