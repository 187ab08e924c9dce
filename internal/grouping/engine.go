package grouping

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"tunesweep/internal/album"
	"tunesweep/internal/fsops"
	"tunesweep/internal/ledger"
	"tunesweep/internal/library"
	"tunesweep/internal/logging"
	"tunesweep/internal/naming"
	"tunesweep/internal/tags"
)

// ErrMoveConflict marks a move whose resolved destination was occupied when
// the move ran.
var ErrMoveConflict = errors.New("destination occupied")

// ErrUnsafeKey marks an album key that would not name a single container
// below the library root.
var ErrUnsafeKey = errors.New("album key does not name a folder inside the root")

// DefaultThreshold is the largest group left where it is.
const DefaultThreshold = 3

// Placement modes.
const (
	PlacementSibling = "sibling"
	PlacementInPlace = "inplace"
)

// Options tune an Engine.
type Options struct {
	Threshold  int
	Quarantine string
	Placement  string
	PruneEmpty bool
}

// Cleaner cleans one item in place; quarantined items go through it instead
// of being grouped.
type Cleaner interface {
	ProcessItem(ctx context.Context, item library.Item, res *ledger.Result) ledger.Outcome
}

// Engine partitions each container's items by album key and moves groups
// above the threshold into a container named by the key.
type Engine struct {
	exec    fsops.Executor
	store   tags.Store
	walker  *library.Walker
	opts    Options
	cleaner Cleaner
	logger  *slog.Logger
}

// New builds an engine. A negative threshold selects DefaultThreshold and an
// unknown placement selects sibling placement.
func New(exec fsops.Executor, store tags.Store, walker *library.Walker, opts Options, logger *slog.Logger) *Engine {
	if opts.Threshold < 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Placement != PlacementInPlace {
		opts.Placement = PlacementSibling
	}
	return &Engine{
		exec:   exec,
		store:  store,
		walker: walker,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "grouping"),
	}
}

// WithCleaner attaches the cleaner used for quarantined items.
func (e *Engine) WithCleaner(c Cleaner) *Engine {
	e.cleaner = c
	return e
}

// Group is the set of items in one container sharing an album key.
type Group struct {
	Key       string
	Container string
	Items     []library.Item
}

// Move is one planned relocation.
type Move struct {
	Item     library.Item
	Key      string
	DestDir  string
	DestName string
}

// Skip is an item the plan leaves where it is.
type Skip struct {
	Item   library.Item
	Key    string
	Reason string
}

// Plan is the full set of decisions for one tree.
type Plan struct {
	Groups      []Group
	Moves       []Move
	Skips       []Skip
	Quarantined []library.Item
}

// Plan walks root and decides every placement without executing any.
func (e *Engine) Plan(ctx context.Context, root string) (*Plan, error) {
	root = filepath.Clean(root)
	containers, err := e.walker.Walk(ctx, root, e.skippedDir)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	reserved := make(map[string]map[string]struct{})
	ns := naming.ExistsFunc(func(dir, name string) bool {
		if _, ok := reserved[dir][name]; ok {
			return true
		}
		return e.exec.Exists(dir, name)
	})

	for _, container := range containers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.quarantined(root, container.Path) {
			plan.Quarantined = append(plan.Quarantined, container.Items...)
			continue
		}
		for _, group := range e.collect(container) {
			plan.Groups = append(plan.Groups, group)
			if len(group.Items) <= e.opts.Threshold {
				plan.skip(group, ledger.SkipBelowThreshold)
				continue
			}
			dest, err := e.destination(root, container.Path, group.Key)
			if err != nil {
				logging.WarnWithContext(e.logger, "album group left in place", "unsafe_album_key",
					logging.String(logging.FieldAlbumKey, group.Key),
					logging.String(logging.FieldPath, container.Path),
					logging.Error(err),
					logging.String(logging.FieldImpact, "tracks not grouped"),
				)
				plan.skip(group, ledger.SkipUnsafeKey)
				continue
			}
			if dest == container.Path || filepath.Base(container.Path) == group.Key {
				plan.skip(group, ledger.SkipAlreadyPlaced)
				continue
			}
			if reserved[dest] == nil {
				reserved[dest] = make(map[string]struct{})
			}
			for _, item := range group.Items {
				name, err := naming.Resolve(ns, dest, item.Name, "")
				if err != nil {
					return nil, fmt.Errorf("resolve %s in %s: %w", item.Name, dest, err)
				}
				reserved[dest][name] = struct{}{}
				plan.Moves = append(plan.Moves, Move{Item: item, Key: group.Key, DestDir: dest, DestName: name})
			}
		}
	}
	return plan, nil
}

func (p *Plan) skip(group Group, reason string) {
	for _, item := range group.Items {
		p.Skips = append(p.Skips, Skip{Item: item, Key: group.Key, Reason: reason})
	}
}

// Run plans root, executes the plan and, when enabled, prunes containers
// left empty. Per-item failures land in res; only an unreadable root is an
// error. Cancellation before execution starts marks res interrupted.
func (e *Engine) Run(ctx context.Context, root string, res *ledger.Result) error {
	plan, err := e.Plan(ctx, root)
	if err != nil {
		if ctx.Err() != nil {
			res.Interrupted = true
			return nil
		}
		return err
	}

	for _, item := range plan.Quarantined {
		entry := res.Entry(item.Path)
		entry.SkipReason = ledger.SkipQuarantined
		if e.cleaner != nil {
			e.cleaner.ProcessItem(ctx, item, res)
		}
	}
	for _, skip := range plan.Skips {
		entry := res.Entry(skip.Item.Path)
		entry.AlbumKey = skip.Key
		entry.SkipReason = skip.Reason
	}
	for _, group := range plan.Groups {
		e.logger.Debug("album group",
			logging.String(logging.FieldAlbumKey, group.Key),
			logging.String(logging.FieldPath, group.Container),
			logging.Int("items", len(group.Items)),
		)
	}

	ready := make(map[string]error)
	for _, move := range plan.Moves {
		entry := res.Entry(move.Item.Path)
		entry.AlbumKey = move.Key
		if err := e.ensureContainer(move.DestDir, ready, res); err != nil {
			e.moveFailed(entry, move, err)
			continue
		}
		if err := e.move(move); err != nil {
			e.moveFailed(entry, move, err)
			continue
		}
		entry = res.Relocate(move.Item.Path, filepath.Join(move.DestDir, move.DestName))
		entry.MovedTo = move.DestDir
		entry.SkipReason = ""
	}

	if e.opts.PruneEmpty {
		pruned := fsops.Prune(e.exec, root, e.opts.Quarantine, e.logger)
		for _, dir := range pruned.Removed {
			res.ContainerRemoved(dir)
		}
		for _, failure := range pruned.Errors {
			res.Warn("could not prune %s: %v", failure.Path, failure.Error)
		}
	}

	e.logger.Info("grouping complete",
		logging.Int("groups", len(plan.Groups)),
		logging.Int("moves", len(plan.Moves)),
		logging.Int("skipped", len(plan.Skips)),
		logging.Int("quarantined", len(plan.Quarantined)),
	)
	return nil
}

func (e *Engine) collect(container library.Container) []Group {
	byKey := make(map[string]*Group)
	var keys []string
	for _, item := range container.Items {
		attrs, err := e.store.ReadAttributes(item.Path)
		if err != nil {
			e.logger.Debug("attributes unreadable, using unknown album",
				logging.String(logging.FieldPath, item.Path),
				logging.Error(err),
			)
		}
		key := album.Key(attrs.Album, attrs.Year)
		group, ok := byKey[key]
		if !ok {
			group = &Group{Key: key, Container: container.Path}
			byKey[key] = group
			keys = append(keys, key)
		}
		group.Items = append(group.Items, item)
	}
	sort.Strings(keys)
	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, *byKey[key])
	}
	return groups
}

// destination names the album container for a group found in container. The
// result is a direct, visible child of its parent and lies strictly below
// root; anything else is ErrUnsafeKey.
func (e *Engine) destination(root, container, key string) (string, error) {
	parent := filepath.Dir(container)
	if e.opts.Placement == PlacementInPlace || container == root {
		parent = container
	}
	dest := filepath.Join(parent, key)
	if key == "" || strings.HasPrefix(key, ".") || filepath.Base(dest) != key || filepath.Dir(dest) != parent {
		return "", fmt.Errorf("%w: %q", ErrUnsafeKey, key)
	}
	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeKey, key)
	}
	return dest, nil
}

func (e *Engine) quarantined(root, container string) bool {
	if e.opts.Quarantine == "" {
		return false
	}
	rel, err := filepath.Rel(root, container)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.EqualFold(part, e.opts.Quarantine) {
			return true
		}
	}
	return false
}

func (e *Engine) ensureContainer(dir string, ready map[string]error, res *ledger.Result) error {
	if err, done := ready[dir]; done {
		return err
	}
	created, err := e.exec.CreateContainer(filepath.Dir(dir), filepath.Base(dir))
	if err != nil {
		err = fmt.Errorf("create album container: %w", err)
	} else if created {
		res.ContainerCreated(dir)
		e.logger.Info("created album container",
			logging.String(logging.FieldPath, dir),
			logging.String(logging.FieldEventType, "container_created"),
		)
	}
	ready[dir] = err
	return err
}

func (e *Engine) move(m Move) error {
	if e.exec.Exists(m.DestDir, m.DestName) {
		return fmt.Errorf("%w: %s", ErrMoveConflict, filepath.Join(m.DestDir, m.DestName))
	}
	err := e.exec.Move(m.Item.Path, m.DestDir, m.DestName)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %v", ErrMoveConflict, err)
	}
	return err
}

func (e *Engine) moveFailed(entry *ledger.Entry, m Move, err error) {
	entry.AddError(err)
	logging.WarnWithContext(e.logger, "album move failed", "move_failed",
		logging.String(logging.FieldPath, m.Item.Path),
		logging.String(logging.FieldAlbumKey, m.Key),
		logging.Error(err),
		logging.String(logging.FieldImpact, "track left in its current folder"),
	)
}

func (e *Engine) skippedDir(dir string, err error) {
	logging.WarnWithContext(e.logger, "container unreadable", "walk_skipped",
		logging.String(logging.FieldPath, dir),
		logging.Error(err),
		logging.String(logging.FieldImpact, "items in this container are not grouped"),
	)
}
