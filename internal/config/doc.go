// Package config loads, normalizes, and validates brainprep configuration.
//
// Configuration is read from TOML (default ~/.config/brainprep/config.toml,
// falling back to ./brainprep.toml) on top of repository defaults. Paths are
// expanded to absolute form, stage tags are trimmed, and validation rejects
// tag sets that would make two stages resolve to the same directory.
//
// Create a starter file with `brainprep config init`.
package config
