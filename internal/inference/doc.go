// Package inference scores and renders model predictions against ground
// truth. For each requested slice along axis 2 it center-crops the image,
// mask and prediction, computes Dice and soft Dice, and writes a three-panel
// PNG named pred_<index>.png.
package inference
