// Package main hosts the tunesweep CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, opens a session for
// the library root (preflight checks, per-root lock, on-disk or simulated
// executor), runs the cleaning and grouping engines, and renders the run
// ledger as tables, plain lines or JSON. Finished runs are recorded in the
// history database.
//
// Keep this package lean: behavior belongs in the internal packages, and
// commands here only wire them together.
package main
