package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tunesweep/internal/ledger"
)

var (
	// ErrNotFound is returned when no run matches an ID.
	ErrNotFound = errors.New("run not found")
	// ErrAmbiguousID is returned when an ID prefix matches more than one run.
	ErrAmbiguousID = errors.New("run id prefix is ambiguous")
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists finished runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Run is one stored run. Entries is filled by Get only.
type Run struct {
	ID          string         `json:"id"`
	Command     string         `json:"command"`
	Root        string         `json:"root"`
	DryRun      bool           `json:"dry_run"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Converged   bool           `json:"converged"`
	Interrupted bool           `json:"interrupted,omitempty"`
	Passes      int            `json:"passes"`
	Counts      ledger.Counts  `json:"counts"`
	Tokens      []string       `json:"tokens,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
	Entries     []ledger.Entry `json:"entries,omitempty"`
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Record stores a finished run and its entries in one transaction.
func (s *Store) Record(ctx context.Context, res *ledger.Result) error {
	if res == nil {
		return errors.New("result is nil")
	}
	counts, err := json.Marshal(res.Counts)
	if err != nil {
		return fmt.Errorf("marshal counts: %w", err)
	}
	tokens, err := marshalList(res.Tokens.Sorted())
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	warnings, err := marshalList(res.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin record tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (
                id, command, root, dry_run, started_at, finished_at,
                converged, interrupted, passes, counts_json, tokens_json, warnings_json
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.ID,
			res.Command,
			res.Root,
			boolToInt(res.DryRun),
			formatTime(res.StartedAt),
			nullableTime(res.FinishedAt),
			boolToInt(res.Converged),
			boolToInt(res.Interrupted),
			len(res.Passes),
			string(counts),
			tokens,
			warnings,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO entries (
                run_id, position, original_path, final_path, renamed,
                moved_to, album_key, skip_reason, metadata_json, errors_json
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare entry insert: %w", err)
		}
		defer stmt.Close()

		for i, entry := range res.Entries {
			metadata, err := marshalList(entry.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata: %w", err)
			}
			errs, err := marshalList(entry.Errors)
			if err != nil {
				return fmt.Errorf("marshal errors: %w", err)
			}
			if _, err := stmt.ExecContext(ctx,
				res.ID,
				i,
				entry.OriginalPath,
				entry.FinalPath,
				boolToInt(entry.Renamed),
				nullableString(entry.MovedTo),
				nullableString(entry.AlbumKey),
				nullableString(entry.SkipReason),
				metadata,
				errs,
			); err != nil {
				return fmt.Errorf("insert entry: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit record: %w", err)
		}
		return nil
	})
}

const runColumns = "id, command, root, dry_run, started_at, finished_at, converged, interrupted, passes, counts_json, tokens_json, warnings_json"

// List returns the most recent runs first. A limit of zero or less returns
// every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Get returns the run whose ID equals id or uniquely starts with it,
// including its entries.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR substr(id, 1, length(?)) = ? ORDER BY id = ? DESC LIMIT 2`,
		id, id, id, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case len(matches) > 1 && matches[0].ID != id:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}

	run := matches[0]
	entries, err := s.entries(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Entries = entries
	return run, nil
}

func (s *Store) entries(ctx context.Context, runID string) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT original_path, final_path, renamed, moved_to, album_key, skip_reason, metadata_json, errors_json
         FROM entries WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			entry      ledger.Entry
			renamed    int
			movedTo    sql.NullString
			albumKey   sql.NullString
			skipReason sql.NullString
			metadata   sql.NullString
			errs       sql.NullString
		)
		if err := rows.Scan(&entry.OriginalPath, &entry.FinalPath, &renamed, &movedTo, &albumKey, &skipReason, &metadata, &errs); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry.Renamed = renamed != 0
		entry.MovedTo = movedTo.String
		entry.AlbumKey = albumKey.String
		entry.SkipReason = skipReason.String
		if err := unmarshalList(metadata, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		if err := unmarshalList(errs, &entry.Errors); err != nil {
			return nil, fmt.Errorf("decode errors: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Prune keeps the newest keep runs and deletes the rest, returning how many
// runs were removed. A keep of zero or less removes nothing.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	var removed int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin prune tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		const stale = `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT -1 OFFSET ?`
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE run_id IN (`+stale+`)`, keep); err != nil {
			return fmt.Errorf("prune entries: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+stale+`)`, keep)
		if err != nil {
			return fmt.Errorf("prune runs: %w", err)
		}
		if removed, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("prune rows affected: %w", err)
		}
		return tx.Commit()
	})
	return removed, err
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		dryRun      int
		startedRaw  string
		finishedRaw sql.NullString
		converged   int
		interrupted int
		counts      string
		tokens      sql.NullString
		warnings    sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Command,
		&run.Root,
		&dryRun,
		&startedRaw,
		&finishedRaw,
		&converged,
		&interrupted,
		&run.Passes,
		&counts,
		&tokens,
		&warnings,
	); err != nil {
		return nil, err
	}
	run.DryRun = dryRun != 0
	run.Converged = converged != 0
	run.Interrupted = interrupted != 0
	if started, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := time.Parse(time.RFC3339Nano, finishedRaw.String); err == nil {
			run.FinishedAt = finished
		}
	}
	if err := json.Unmarshal([]byte(counts), &run.Counts); err != nil {
		return nil, fmt.Errorf("decode counts: %w", err)
	}
	if err := unmarshalList(tokens, &run.Tokens); err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}
	if err := unmarshalList(warnings, &run.Warnings); err != nil {
		return nil, fmt.Errorf("decode warnings: %w", err)
	}
	return &run, nil
}
