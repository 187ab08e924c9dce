// Package config loads, normalizes, and validates tunesweep configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the TUNESWEEP_LOG_LEVEL environment fallback. Every
// knob the cleaning and grouping engines read comes through Config so the CLI
// hands them sanitized paths and bounded policy values.
package config
