package convergence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"tunesweep/internal/fsops"
	"tunesweep/internal/ledger"
	"tunesweep/internal/library"
	"tunesweep/internal/logging"
	"tunesweep/internal/naming"
	"tunesweep/internal/tags"
	"tunesweep/internal/textclean"
)

// DefaultMaxPasses is the pass ceiling. Options may lower it, never raise it.
const DefaultMaxPasses = 10

// ErrNonConvergence is reported as a run warning when the pass ceiling is
// reached while passes were still making changes.
var ErrNonConvergence = errors.New("pass ceiling reached before convergence")

// Scope selects which half of the per-item work runs.
type Scope string

const (
	ScopeAll       Scope = "all"
	ScopeFilenames Scope = "filenames"
	ScopeMetadata  Scope = "metadata"
)

// ParseScope maps a CLI value to a Scope; blank selects ScopeAll.
func ParseScope(value string) (Scope, error) {
	switch Scope(value) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeFilenames, ScopeMetadata:
		return Scope(value), nil
	}
	return "", fmt.Errorf("unknown scope %q (want all, filenames or metadata)", value)
}

func (s Scope) names() bool { return s != ScopeMetadata }
func (s Scope) tags() bool  { return s != ScopeFilenames }

// Options tune a Scheduler.
type Options struct {
	MaxPasses int
	Scope     Scope
}

// Scheduler re-applies the cleaning pipeline over a tree until a pass makes
// no changes. Whether it mutates storage depends only on the executor and tag
// store it is given.
type Scheduler struct {
	pipeline *textclean.Pipeline
	exec     fsops.Executor
	store    tags.Store
	walker   *library.Walker
	opts     Options
	logger   *slog.Logger
}

// New builds a scheduler.
func New(pipeline *textclean.Pipeline, exec fsops.Executor, store tags.Store, walker *library.Walker, opts Options, logger *slog.Logger) *Scheduler {
	if pipeline == nil {
		pipeline = textclean.Default()
	}
	if opts.MaxPasses <= 0 || opts.MaxPasses > DefaultMaxPasses {
		opts.MaxPasses = DefaultMaxPasses
	}
	if opts.Scope == "" {
		opts.Scope = ScopeAll
	}
	return &Scheduler{
		pipeline: pipeline,
		exec:     exec,
		store:    store,
		walker:   walker,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "convergence"),
	}
}

// Run drives passes over root, accumulating into res. Cancellation is only
// observed between passes and ends the run early with res.Interrupted set.
// An error is returned only when the tree cannot be enumerated at all.
func (s *Scheduler) Run(ctx context.Context, root string, res *ledger.Result) error {
	for pass := 1; pass <= s.opts.MaxPasses; pass++ {
		if ctx.Err() != nil {
			res.Interrupted = true
			s.logger.Info("run interrupted between passes", logging.Int(logging.FieldPass, pass))
			return nil
		}

		started := time.Now()
		items, err := s.walker.Items(ctx, root, s.skippedDir(res))
		if err != nil {
			if ctx.Err() != nil {
				res.Interrupted = true
				return nil
			}
			return fmt.Errorf("enumerate pass %d: %w", pass, err)
		}

		stat := ledger.PassStat{Pass: pass, Items: len(items)}
		for _, item := range items {
			r := s.process(item, res)
			if r.renamed {
				stat.Renamed++
			}
			if r.metadata {
				stat.MetadataUpdated++
			}
			if r.failed {
				stat.Errored++
			}
		}
		stat.Duration = time.Since(started)
		res.Passes = append(res.Passes, stat)

		s.logger.Info("pass complete",
			logging.Int(logging.FieldPass, pass),
			logging.Int("items", stat.Items),
			logging.Int("renamed", stat.Renamed),
			logging.Int("metadata_updated", stat.MetadataUpdated),
			logging.Int("errored", stat.Errored),
			logging.Duration("duration", stat.Duration),
		)

		if stat.Changes() == 0 {
			res.Converged = true
			return nil
		}
	}

	res.Converged = false
	res.Warn("%v after %d passes", ErrNonConvergence, s.opts.MaxPasses)
	logging.WarnWithContext(s.logger, "cleaning did not converge", "non_convergence",
		logging.Int("max_passes", s.opts.MaxPasses),
		logging.String(logging.FieldErrorHint, "run again; a rule may be oscillating on some names"),
		logging.String(logging.FieldImpact, "some names may not be fully normalized"),
	)
	return nil
}

// ProcessItem runs one item through the same rename and tag cleaning as a
// pass would.
func (s *Scheduler) ProcessItem(_ context.Context, item library.Item, res *ledger.Result) ledger.Outcome {
	return s.process(item, res).outcome()
}

func (s *Scheduler) skippedDir(res *ledger.Result) func(string, error) {
	return func(dir string, err error) {
		res.Warn("skipped unreadable container %s: %v", dir, err)
		logging.WarnWithContext(s.logger, "container unreadable", "walk_skipped",
			logging.String(logging.FieldPath, dir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "items in this container are not cleaned"),
		)
	}
}

type report struct {
	renamed  bool
	metadata bool
	failed   bool
}

func (r report) outcome() ledger.Outcome {
	switch {
	case r.renamed && r.metadata:
		return ledger.OutcomeBoth
	case r.renamed:
		return ledger.OutcomeRenamed
	case r.metadata:
		return ledger.OutcomeMetadata
	case r.failed:
		return ledger.OutcomeError
	}
	return ledger.OutcomeUnchanged
}

func (s *Scheduler) process(item library.Item, res *ledger.Result) report {
	entry := res.Entry(item.Path)
	var r report

	if s.opts.Scope.names() {
		next, renamed, err := s.rename(item, res)
		if err != nil {
			r.failed = true
			s.itemFailed(entry, item.Path, err)
		}
		r.renamed = renamed
		item = next
	}

	if s.opts.Scope.tags() {
		changed, err := s.cleanTags(item, entry, res)
		if err != nil {
			r.failed = true
			s.itemFailed(entry, item.Path, err)
		}
		r.metadata = changed
	}
	return r
}

func (s *Scheduler) rename(item library.Item, res *ledger.Result) (library.Item, bool, error) {
	clean, tokens := s.pipeline.Normalize(item.Name)
	res.Tokens.Merge(tokens)
	if clean == item.Name {
		return item, false, nil
	}
	final, err := naming.Resolve(s.exec, item.Dir, clean, item.Name)
	if err != nil {
		return item, false, fmt.Errorf("resolve %q: %w", clean, err)
	}
	if final == item.Name {
		return item, false, nil
	}
	if err := s.exec.Rename(item.Dir, item.Name, final); err != nil {
		return item, false, fmt.Errorf("rename to %q: %w", final, err)
	}
	path := filepath.Join(item.Dir, final)
	entry := res.Relocate(item.Path, path)
	entry.Renamed = true
	s.logger.Debug("renamed item",
		logging.String(logging.FieldPath, item.Path),
		logging.String("to", final),
	)
	return library.NewItem(path), true, nil
}

func (s *Scheduler) cleanTags(item library.Item, entry *ledger.Entry, res *ledger.Result) (bool, error) {
	text, err := s.store.ReadText(item.Path)
	switch {
	case errors.Is(err, tags.ErrUnsupportedFormat):
		return false, nil
	case errors.Is(err, tags.ErrUnreadableAttributes):
		s.logger.Debug("tags unreadable", logging.String(logging.FieldPath, item.Path), logging.Error(err))
		return false, nil
	case err != nil:
		return false, err
	}

	patch := make(tags.Text)
	for _, field := range tags.Fields {
		value := text[field]
		if value == "" {
			continue
		}
		kind := textclean.KindText
		if field == tags.FieldAlbum {
			kind = textclean.KindAlbum
		}
		cleaned, tokens := s.pipeline.CleanText(value, kind)
		res.Tokens.Merge(tokens)
		if cleaned == "" || cleaned == value {
			continue
		}
		patch[field] = cleaned
	}
	if len(patch) == 0 {
		return false, nil
	}
	if err := s.store.WriteText(item.Path, patch); err != nil {
		return false, err
	}
	for _, field := range tags.Fields {
		if after, ok := patch[field]; ok {
			recordChange(entry, string(field), text[field], after)
		}
	}
	return true, nil
}

// recordChange keeps the first before-value per field so the ledger shows the
// net change across passes.
func recordChange(entry *ledger.Entry, field, before, after string) {
	for i := range entry.Metadata {
		if entry.Metadata[i].Field == field {
			entry.Metadata[i].After = after
			return
		}
	}
	entry.Metadata = append(entry.Metadata, ledger.FieldChange{Field: field, Before: before, After: after})
}

func (s *Scheduler) itemFailed(entry *ledger.Entry, path string, err error) {
	entry.AddError(err)
	logging.WarnWithContext(s.logger, "item failed", "item_failed",
		logging.String(logging.FieldPath, path),
		logging.Error(err),
		logging.String(logging.FieldImpact, "item left as is for this pass"),
	)
}
