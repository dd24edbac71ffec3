// Command brainprep prepares brain MRI cohorts for segmentation training.
//
// It converts DICOM series to NIfTI, strips the skull, puts the smallest
// axis last, renders PNG slices, and records every outcome in a SQLite
// manifest. It also launches the external trainer and renders prediction
// panels scored with Dice.
package main
