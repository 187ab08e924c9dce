package fsops

import (
	"log/slog"
	"path/filepath"
	"strings"

	"tunesweep/internal/logging"
)

// PruneResult contains the outcome of an empty-container sweep.
type PruneResult struct {
	Removed []string
	Errors  []PruneError
}

// PruneError pairs a container path with the error that kept it in place.
type PruneError struct {
	Path  string
	Error error
}

// Prune deletes every container below root that holds no files and only
// empty subcontainers, deepest first. Root itself, hidden containers and any
// container named keep (case-insensitive) are never deleted; a kept
// container also keeps its ancestors alive.
func Prune(exec Executor, root, keep string, logger *slog.Logger) PruneResult {
	result := PruneResult{}
	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}
	p := pruner{exec: exec, keep: keep, logger: logger, result: &result}
	p.visit(filepath.Clean(root), true)
	return result
}

type pruner struct {
	exec   Executor
	keep   string
	logger *slog.Logger
	result *PruneResult
}

// visit returns whether dir is gone (or was already empty and removable).
func (p *pruner) visit(dir string, isRoot bool) bool {
	if !isRoot {
		base := filepath.Base(dir)
		if strings.HasPrefix(base, ".") {
			return false
		}
		if p.keep != "" && strings.EqualFold(base, p.keep) {
			return false
		}
	}

	entries, err := p.exec.ReadDir(dir)
	if err != nil {
		p.fail(dir, err)
		return false
	}

	empty := true
	for _, entry := range entries {
		if !entry.IsDir {
			empty = false
			continue
		}
		if !p.visit(filepath.Join(dir, entry.Name), false) {
			empty = false
		}
	}
	if !empty || isRoot {
		return false
	}

	removed, err := p.exec.RemoveIfEmpty(dir)
	if err != nil {
		p.fail(dir, err)
		return false
	}
	if removed {
		p.result.Removed = append(p.result.Removed, dir)
		if p.logger != nil {
			p.logger.Info("removed empty container",
				logging.String(logging.FieldPath, dir),
				logging.String(logging.FieldEventType, "container_pruned"),
			)
		}
	}
	return removed
}

func (p *pruner) fail(dir string, err error) {
	p.result.Errors = append(p.result.Errors, PruneError{Path: dir, Error: err})
	logging.WarnWithContext(p.logger, "failed to prune container", "prune_failed",
		logging.String(logging.FieldPath, dir),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check permissions on the music root"),
		logging.String(logging.FieldImpact, "empty container left in place"),
	)
}
