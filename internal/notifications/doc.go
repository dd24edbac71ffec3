// Package notifications publishes run outcomes to ntfy.
//
// NewService returns a no-op Service when no topic is configured, so the
// workflow manager can notify unconditionally.
package notifications
