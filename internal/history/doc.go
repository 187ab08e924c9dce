// Package history keeps a SQLite record of finished runs.
//
// Each run stores its counts, removed web tokens, warnings and the full
// per-item change ledger, so `tunesweep history show` can explain what a
// past run did long after its console output is gone. The schema is
// versioned; a mismatch fails Open with ErrSchemaMismatch instead of
// migrating.
package history
