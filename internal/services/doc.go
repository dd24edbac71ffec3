// Package services defines shared utilities consumed by the pipeline stage
// handlers and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, patient IDs, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified when they are recorded in the manifest.
//   - The Executor abstraction that makes invocations of dcm2niix, bet,
//     med2image, and the trainer testable.
package services
