package main

import (
	"context"

	"github.com/spf13/cobra"

	"tunesweep/internal/convergence"
	"tunesweep/internal/ledger"
)

type operation func(ctx context.Context, s *session, res *ledger.Result) error

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var scopeFlag string

	cmd := &cobra.Command{
		Use:   "clean [dir]",
		Short: "Normalize filenames and tags until nothing changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := convergence.ParseScope(scopeFlag)
			if err != nil {
				return err
			}
			return runOperation(cmd, ctx, args, "clean", func(runCtx context.Context, s *session, res *ledger.Result) error {
				return s.scheduler(scope).Run(runCtx, s.root, res)
			})
		},
	}
	cmd.Flags().StringVar(&scopeFlag, "scope", string(convergence.ScopeAll), "What to clean: all, filenames or metadata")
	return cmd
}

func newAlbumsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "albums [dir]",
		Short: "Group loose tracks into album folders",
		Long: "Group loose tracks into album folders.\n\n" +
			"Tracks inside the quarantine folder are never regrouped; their names and tags are cleaned instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, ctx, args, "albums", func(runCtx context.Context, s *session, res *ledger.Result) error {
				cleaner := s.scheduler(convergence.ScopeAll)
				return s.grouper().WithCleaner(cleaner).Run(runCtx, s.root, res)
			})
		},
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run [dir]",
		Short: "Clean names and tags, then group into albums and prune empty folders",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, ctx, args, "run", func(runCtx context.Context, s *session, res *ledger.Result) error {
				if err := s.scheduler(convergence.ScopeAll).Run(runCtx, s.root, res); err != nil {
					return err
				}
				if res.Interrupted {
					return nil
				}
				// Grouping prunes emptied folders itself when albums.prune_empty is set.
				return s.grouper().Run(runCtx, s.root, res)
			})
		},
	}
}

func newPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune [dir]",
		Short: "Remove empty folders, keeping the quarantine folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, ctx, args, "prune", func(runCtx context.Context, s *session, res *ledger.Result) error {
				s.prune(runCtx, res)
				return nil
			})
		},
	}
}

// runOperation opens a session, runs op, records and renders the result.
// An interrupted run still records and renders what it did before
// returning context.Canceled.
func runOperation(cmd *cobra.Command, ctx *commandContext, args []string, command string, op operation) error {
	s, err := ctx.openSession(args)
	if err != nil {
		return err
	}
	defer s.close()

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	res := s.result(command)
	if err := op(runCtx, s, res); err != nil {
		return err
	}
	res.Finish()
	s.record(context.WithoutCancel(runCtx), res)

	if err := renderResult(cmd, ctx.jsonOut(), res); err != nil {
		return err
	}
	if res.Interrupted {
		return context.Canceled
	}
	return nil
}
