package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"tunesweep/internal/config"
	"tunesweep/internal/convergence"
	"tunesweep/internal/fsops"
	"tunesweep/internal/grouping"
	"tunesweep/internal/history"
	"tunesweep/internal/ledger"
	"tunesweep/internal/library"
	"tunesweep/internal/logging"
	"tunesweep/internal/preflight"
	"tunesweep/internal/runlock"
	"tunesweep/internal/tags"
	"tunesweep/internal/textclean"
)

// session is everything one command needs to work on one library root.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	root   string
	dryRun bool
	exec   fsops.Executor
	store  tags.Store
	walker *library.Walker
	lock   *runlock.Lock
}

func (c *commandContext) openSession(args []string) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	root, err := resolveRoot(args)
	if err != nil {
		return nil, err
	}

	dryRun := c.dryRun()
	if err := preflight.Err(preflight.RunAll(cfg, root, dryRun)); err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger, root: root, dryRun: dryRun}
	if dryRun {
		ov := fsops.NewOverlay()
		s.exec = ov
		s.store = tags.NewOverlay(tags.NewFiles(logger), ov.Backing)
	} else {
		lock, err := runlock.Acquire(cfg.LockDir(), root)
		if err != nil {
			return nil, err
		}
		s.lock = lock
		logger.Debug("run lock acquired", logging.String("lock_file", lock.File()))
		s.exec = fsops.NewOS()
		s.store = tags.NewFiles(logger)
	}
	s.walker = library.NewWalker(s.exec, cfg.Scan.MaxDepth, cfg.Scan.Extensions)

	logger.Debug("session opened",
		logging.String(logging.FieldPath, root),
		logging.Bool("dry_run", dryRun),
	)
	return s, nil
}

func resolveRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		root = strings.TrimSpace(args[0])
	}
	expanded, err := config.ExpandPath(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	return abs, nil
}

func (s *session) close() {
	if err := s.lock.Release(); err != nil {
		logging.WarnWithContext(s.logger, "failed to release run lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next run may report the root as busy until this process exits"),
		)
	}
}

func (s *session) result(command string) *ledger.Result {
	return ledger.NewResult(command, s.root, s.dryRun)
}

func (s *session) pipeline() *textclean.Pipeline {
	return textclean.New(textclean.Options{
		FallbackName: s.cfg.Cleanup.FallbackName,
		WebSuffixes:  s.cfg.Cleanup.WebSuffixes,
	})
}

func (s *session) scheduler(scope convergence.Scope) *convergence.Scheduler {
	return convergence.New(s.pipeline(), s.exec, s.store, s.walker, convergence.Options{
		MaxPasses: s.cfg.Cleanup.MaxPasses,
		Scope:     scope,
	}, s.logger)
}

func (s *session) grouper() *grouping.Engine {
	return grouping.New(s.exec, s.store, s.walker, grouping.Options{
		Threshold:  s.cfg.Albums.Threshold,
		Quarantine: s.cfg.Albums.Quarantine,
		Placement:  s.cfg.Albums.Placement,
		PruneEmpty: s.cfg.Albums.PruneEmpty,
	}, s.logger)
}

// prune removes empty containers below the root, keeping the quarantine
// folder.
func (s *session) prune(ctx context.Context, res *ledger.Result) {
	if ctx.Err() != nil {
		res.Interrupted = true
		return
	}
	pruned := fsops.Prune(s.exec, s.root, s.cfg.Albums.Quarantine, s.logger)
	for _, dir := range pruned.Removed {
		res.ContainerRemoved(dir)
	}
	for _, failure := range pruned.Errors {
		res.Warn("could not prune %s: %v", failure.Path, failure.Error)
	}
}

// record stores a finished run in the history database. Failures are
// logged; the run itself already happened.
func (s *session) record(ctx context.Context, res *ledger.Result) {
	if !s.cfg.History.Enabled {
		return
	}
	store, err := history.Open(s.cfg.HistoryPath())
	if err != nil {
		s.historyFailed(err)
		return
	}
	defer store.Close()

	if err := store.Record(ctx, res); err != nil {
		s.historyFailed(err)
		return
	}
	removed, err := store.Prune(ctx, s.cfg.History.KeepRuns)
	if err != nil {
		s.historyFailed(err)
		return
	}
	s.logger.Debug("run recorded",
		logging.String(logging.FieldRunID, res.ID),
		logging.Int("pruned_runs", int(removed)),
	)
}

func (s *session) historyFailed(err error) {
	logging.WarnWithContext(s.logger, "failed to record run history", "history_record_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check permissions on "+s.cfg.Paths.StateDir),
		logging.String(logging.FieldImpact, "this run will not appear in `tunesweep history`"),
	)
}
