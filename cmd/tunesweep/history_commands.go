package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tunesweep/internal/history"
	"tunesweep/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past runs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOut() {
					if runs == nil {
						runs = []history.Run{}
					}
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintf(out, "No runs recorded in %s\n", store.Path())
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						run.StartedAt.Local().Format(time.DateTime),
						run.Command,
						yesNo(run.DryRun),
						run.Root,
						strconv.Itoa(run.Counts.Processed),
						strconv.Itoa(changed(run.Counts)),
						strconv.Itoa(run.Counts.Errored),
					})
				}
				headers := []string{"ID", "Started", "Command", "Dry run", "Root", "Items", "Changed", "Errors"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}
				fmt.Fprintln(out, renderRows(out, headers, rows, aligns))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run and its per-track changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				run, err := store.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if ctx.jsonOut() {
					return writeJSON(cmd, run)
				}
				out := cmd.OutOrStdout()
				mode := run.Command
				if run.DryRun {
					mode += ", dry run"
				}
				fmt.Fprintf(out, "Run %s (%s)\n", run.ID, mode)
				fmt.Fprintf(out, "Root: %s\n", run.Root)
				fmt.Fprintf(out, "Started: %s\n", run.StartedAt.Local().Format(time.DateTime))
				if !run.FinishedAt.IsZero() {
					fmt.Fprintf(out, "Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
				}
				if run.Passes > 0 {
					fmt.Fprintf(out, "Passes: %d (converged: %s)\n", run.Passes, yesNo(run.Converged))
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderRows(out, []string{"Metric", "Count"}, countRows(run.Counts), []columnAlignment{alignLeft, alignRight}))

				entries := make([]*ledger.Entry, 0, len(run.Entries))
				for i := range run.Entries {
					entries = append(entries, &run.Entries[i])
				}
				if rows := changeRows(run.Root, entries); len(rows) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderRows(out, []string{"Original", "Final", "Action", "Detail"}, rows, nil))
				}
				if len(run.Tokens) > 0 {
					fmt.Fprintf(out, "\nWeb tokens removed: %s\n", strings.Join(run.Tokens, ", "))
				}
				for _, warning := range run.Warnings {
					fmt.Fprintf(out, "Warning: %s\n", warning)
				}
				return nil
			})
		},
	}
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func changed(c ledger.Counts) int {
	return c.Renamed + c.MetadataUpdated + c.Moved
}
