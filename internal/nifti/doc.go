// Package nifti reads and writes single-file NIfTI-1 volumes (.nii and
// .nii.gz) and implements the geometry operations the pipeline needs: shape
// inspection, minimum-extent axis detection, and axis swapping.
//
// Only the single-file "n+1" layout is supported. Voxel data is kept as raw
// bytes in the file's byte order; Float64s converts it for numeric work.
package nifti
