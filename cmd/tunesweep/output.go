package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tunesweep/internal/ledger"
)

func renderResult(cmd *cobra.Command, jsonOut bool, res *ledger.Result) error {
	if jsonOut {
		return writeJSON(cmd, res)
	}
	out := cmd.OutOrStdout()

	mode := res.Command
	if res.DryRun {
		mode += ", dry run"
	}
	fmt.Fprintf(out, "Run %s (%s)\n", res.ID, mode)
	fmt.Fprintf(out, "Root: %s\n\n", res.Root)

	fmt.Fprintln(out, renderRows(out, []string{"Metric", "Count"}, countRows(res.Counts), []columnAlignment{alignLeft, alignRight}))

	if changes := changeRows(res.Root, res.Entries); len(changes) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderRows(out, []string{"Original", "Final", "Action", "Detail"}, changes, nil))
	}

	if tokens := res.Tokens.Sorted(); len(tokens) > 0 {
		fmt.Fprintf(out, "\nWeb tokens removed: %s\n", strings.Join(tokens, ", "))
	}
	for _, warning := range res.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", warning)
	}

	switch {
	case res.Interrupted:
		fmt.Fprintln(out, "\nInterrupted; the tree reflects the work completed so far.")
	case len(res.Passes) > 0 && res.Converged:
		fmt.Fprintf(out, "\nConverged after %d %s.\n", len(res.Passes), plural(len(res.Passes), "pass", "passes"))
	case len(res.Passes) > 0:
		fmt.Fprintf(out, "\nStopped after %d passes without converging.\n", len(res.Passes))
	}
	return nil
}

func countRows(c ledger.Counts) [][]string {
	return [][]string{
		{"Processed", strconv.Itoa(c.Processed)},
		{"Renamed", strconv.Itoa(c.Renamed)},
		{"Tags updated", strconv.Itoa(c.MetadataUpdated)},
		{"Moved", strconv.Itoa(c.Moved)},
		{"Skipped", strconv.Itoa(c.Skipped)},
		{"Errors", strconv.Itoa(c.Errored)},
		{"Folders created", strconv.Itoa(c.ContainersCreated)},
		{"Folders removed", strconv.Itoa(c.ContainersRemoved)},
	}
}

// changeRows lists entries that changed or failed; plain skips are only
// counted.
func changeRows(root string, entries []*ledger.Entry) [][]string {
	var rows [][]string
	for _, e := range entries {
		var actions, details []string
		if e.Renamed {
			actions = append(actions, "renamed")
		}
		if len(e.Metadata) > 0 {
			actions = append(actions, "tags")
			for _, change := range e.Metadata {
				details = append(details, fmt.Sprintf("%s: %q -> %q", change.Field, change.Before, change.After))
			}
		}
		if e.MovedTo != "" {
			actions = append(actions, "moved")
			details = append(details, "album: "+e.AlbumKey)
		}
		if len(e.Errors) > 0 {
			actions = append(actions, "error")
			details = append(details, e.Errors...)
		}
		if len(actions) == 0 {
			continue
		}
		rows = append(rows, []string{
			relativeTo(root, e.OriginalPath),
			relativeTo(root, e.FinalPath),
			strings.Join(actions, "+"),
			strings.Join(details, "; "),
		})
	}
	return rows
}

func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
