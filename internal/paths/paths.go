// Package paths derives every stage directory and output file from the DICOM
// root by textual substitution of stage tags. Stages find their inputs only
// through these conventions.
package paths

import (
	"path/filepath"
	"strings"

	"brainprep/internal/config"
)

// Resolver maps input paths of one stage to output paths of the next.
type Resolver struct {
	tags       config.Tags
	sourceRoot string
}

// NewResolver builds a Resolver for the configured DICOM root and tags.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{tags: cfg.Tags, sourceRoot: filepath.Clean(cfg.Paths.DICOMRoot)}
}

// Tags returns the stage tags in use.
func (r *Resolver) Tags() config.Tags {
	return r.tags
}

// SourceRoot is the DICOM cohort root.
func (r *Resolver) SourceRoot() string {
	return r.sourceRoot
}

// NIfTIRoot is the converted tree root.
func (r *Resolver) NIfTIRoot() string {
	return r.SeriesOutputDir(r.sourceRoot)
}

// BrainRoot is the skull-stripped tree root.
func (r *Resolver) BrainRoot() string {
	return strings.ReplaceAll(r.NIfTIRoot(), r.tags.NIfTI, r.tags.Brain)
}

// AxesRoot is the axis-corrected tree root.
func (r *Resolver) AxesRoot() string {
	return strings.ReplaceAll(r.BrainRoot(), r.tags.BrainMarker, r.tags.AxesCorrected)
}

// PNGRoot is the rendered PNG tree root.
func (r *Resolver) PNGRoot() string {
	return strings.ReplaceAll(r.AxesRoot(), r.tags.AxesCorrected, r.tags.PNG)
}

// PatientDir joins a stage root with a patient identifier.
func PatientDir(root, patient string) string {
	return filepath.Join(root, patient)
}

// SeriesOutputDir maps a DICOM series directory to its NIfTI output
// directory: the source tag becomes the NIfTI tag and spaces become
// underscores.
func (r *Resolver) SeriesOutputDir(seriesDir string) string {
	out := strings.ReplaceAll(seriesDir, r.tags.Source, r.tags.NIfTI)
	return strings.ReplaceAll(out, " ", "_")
}

// BrainOutput maps a converted volume to the skull-strip output base path.
// The skull-strip tool appends the volume extension itself.
func (r *Resolver) BrainOutput(volume string) (string, error) {
	out := strings.ReplaceAll(volume, r.tags.NIfTI, r.tags.Brain)
	out = strings.ReplaceAll(out, r.tags.VolumeSuffix, r.tags.BrainSuffix)
	return filepath.Abs(out)
}

// AxesOutput maps a skull-stripped volume to its axis-corrected path.
func (r *Resolver) AxesOutput(volume string) string {
	return strings.ReplaceAll(volume, r.tags.BrainMarker, r.tags.AxesCorrected)
}

// PNGOutput maps an axis-corrected volume to the PNG output directory and the
// filename handed to the renderer.
func (r *Resolver) PNGOutput(volume string) (dir, filename string) {
	mapped := strings.ReplaceAll(volume, r.tags.AxesCorrected, r.tags.PNG)
	return filepath.Dir(mapped), PNGFilename(mapped)
}

// PNGFilename takes the stem of path (name without its final extension) up to
// the last underscore and adds ".png". A stem without underscores is used
// whole.
func PNGFilename(path string) string {
	stem := Stem(path)
	if idx := strings.LastIndex(stem, "_"); idx >= 0 {
		stem = stem[:idx]
	}
	return stem + ".png"
}

// Stem returns the base name of path without its final extension, so
// "T1.nii.gz" yields "T1.nii".
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
