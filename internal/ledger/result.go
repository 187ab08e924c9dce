package ledger

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tunesweep/internal/textclean"
)

// Outcome classifies what happened to one item in one pass.
type Outcome string

const (
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeRenamed   Outcome = "renamed"
	OutcomeMetadata  Outcome = "metadata"
	OutcomeBoth      Outcome = "both"
	OutcomeError     Outcome = "error"
)

// Changed reports whether the outcome mutated the item.
func (o Outcome) Changed() bool {
	return o == OutcomeRenamed || o == OutcomeMetadata || o == OutcomeBoth
}

// Skip reasons recorded by the grouping engine.
const (
	SkipBelowThreshold = "below_threshold"
	SkipAlreadyPlaced  = "already_placed"
	SkipQuarantined    = "quarantined"
	SkipUnsafeKey      = "unsafe_album_key"
)

// Counts summarises a run.
type Counts struct {
	Processed         int `json:"processed"`
	Renamed           int `json:"renamed"`
	MetadataUpdated   int `json:"metadata_updated"`
	Moved             int `json:"moved"`
	Skipped           int `json:"skipped"`
	Errored           int `json:"errored"`
	ContainersCreated int `json:"containers_created"`
	ContainersRemoved int `json:"containers_removed"`
}

// FieldChange records one tag rewrite.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Entry is the per-item change record, keyed by the path the item had when
// the run first saw it.
type Entry struct {
	OriginalPath string        `json:"original_path"`
	FinalPath    string        `json:"final_path"`
	Renamed      bool          `json:"renamed,omitempty"`
	Metadata     []FieldChange `json:"metadata,omitempty"`
	MovedTo      string        `json:"moved_to,omitempty"`
	AlbumKey     string        `json:"album_key,omitempty"`
	SkipReason   string        `json:"skip_reason,omitempty"`
	Errors       []string      `json:"errors,omitempty"`
}

// OriginalName returns the leaf name the item started with.
func (e *Entry) OriginalName() string { return filepath.Base(e.OriginalPath) }

// FinalName returns the leaf name the item ended with.
func (e *Entry) FinalName() string { return filepath.Base(e.FinalPath) }

// AddError appends err unless the same message is already recorded.
func (e *Entry) AddError(err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	for _, existing := range e.Errors {
		if existing == msg {
			return
		}
	}
	e.Errors = append(e.Errors, msg)
}

// PassStat describes one scheduler pass.
type PassStat struct {
	Pass            int           `json:"pass"`
	Items           int           `json:"items"`
	Renamed         int           `json:"renamed"`
	MetadataUpdated int           `json:"metadata_updated"`
	Errored         int           `json:"errored"`
	Duration        time.Duration `json:"duration"`
}

// Changes returns the number of items the pass mutated.
func (p PassStat) Changes() int { return p.Renamed + p.MetadataUpdated }

// Result is the accumulator threaded through one run. Nothing in it is
// shared between runs.
type Result struct {
	ID          string              `json:"id"`
	Command     string              `json:"command"`
	Root        string              `json:"root"`
	DryRun      bool                `json:"dry_run"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
	Counts      Counts              `json:"counts"`
	Tokens      textclean.TokenSet  `json:"tokens"`
	Passes      []PassStat          `json:"passes,omitempty"`
	Converged   bool                `json:"converged"`
	Interrupted bool                `json:"interrupted,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
	Containers  []string            `json:"containers_created,omitempty"`
	Removed     []string            `json:"containers_removed,omitempty"`
	Entries     []*Entry            `json:"entries"`
	Paths       *PathIndex          `json:"-"`
	byOrigin    map[string]*Entry
}

// NewResult starts an empty result with a fresh run ID.
func NewResult(command, root string, dryRun bool) *Result {
	return &Result{
		ID:        uuid.NewString(),
		Command:   command,
		Root:      root,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
		Tokens:    make(textclean.TokenSet),
		Paths:     NewPathIndex(),
		byOrigin:  make(map[string]*Entry),
	}
}

// Entry returns the record for the item currently at path, creating it on
// first sight.
func (r *Result) Entry(path string) *Entry {
	origin := r.Paths.Original(path)
	if e, ok := r.byOrigin[origin]; ok {
		return e
	}
	e := &Entry{OriginalPath: origin, FinalPath: path}
	r.byOrigin[origin] = e
	r.Entries = append(r.Entries, e)
	return e
}

// Lookup returns the record for the item currently at path, if any.
func (r *Result) Lookup(path string) (*Entry, bool) {
	e, ok := r.byOrigin[r.Paths.Original(path)]
	return e, ok
}

// Relocate records that the item at from now lives at to.
func (r *Result) Relocate(from, to string) *Entry {
	e := r.Entry(from)
	r.Paths.Record(from, to)
	e.FinalPath = to
	return e
}

// ContainerCreated records a new container.
func (r *Result) ContainerCreated(path string) {
	r.Containers = append(r.Containers, path)
}

// ContainerRemoved records a pruned container.
func (r *Result) ContainerRemoved(path string) {
	r.Removed = append(r.Removed, path)
}

// Warn appends a run-level warning.
func (r *Result) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Finish stamps the end time and recomputes Counts from the entries.
func (r *Result) Finish() {
	r.FinishedAt = time.Now().UTC()
	r.Counts = r.tally()
}

func (r *Result) tally() Counts {
	c := Counts{
		Processed:         len(r.Entries),
		ContainersCreated: len(r.Containers),
		ContainersRemoved: len(r.Removed),
	}
	for _, e := range r.Entries {
		if e.Renamed {
			c.Renamed++
		}
		if len(e.Metadata) > 0 {
			c.MetadataUpdated++
		}
		if e.MovedTo != "" {
			c.Moved++
		}
		if e.SkipReason != "" {
			c.Skipped++
		}
		if len(e.Errors) > 0 {
			c.Errored++
		}
	}
	return c
}
