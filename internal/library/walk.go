package library

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"tunesweep/internal/fsops"
)

// DefaultMaxDepth bounds how far below the root the walk descends.
const DefaultMaxDepth = 10

// DefaultExtensions lists the music file extensions the walk picks up.
var DefaultExtensions = []string{
	".mp3", ".flac", ".wav", ".aac", ".ogg", ".m4a", ".wma",
	".opus", ".alac", ".aiff", ".dsd", ".dff", ".dsf",
}

// Lister is the read side of the tree the walk needs.
type Lister interface {
	ReadDir(dir string) ([]fsops.Entry, error)
}

// Item is one music file found by the walk. Name is the leaf currently
// known for it.
type Item struct {
	Path string
	Dir  string
	Name string
}

// NewItem builds an Item from a full path.
func NewItem(path string) Item {
	return Item{Path: path, Dir: filepath.Dir(path), Name: filepath.Base(path)}
}

// Container is one directory of the walk and the music items directly in it.
type Container struct {
	Path  string
	Depth int
	Items []Item
}

// Walker enumerates music items through a Lister so simulated trees are
// walked exactly like real ones.
type Walker struct {
	lister   Lister
	maxDepth int
	exts     map[string]struct{}
}

// NewWalker returns a walker over lister. maxDepth <= 0 selects the default;
// an empty extension list selects DefaultExtensions.
func NewWalker(lister Lister, maxDepth int, extensions []string) *Walker {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &Walker{lister: lister, maxDepth: maxDepth, exts: exts}
}

// IsMusicFile reports whether name carries one of the walker's extensions.
func (w *Walker) IsMusicFile(name string) bool {
	_, ok := w.exts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Walk lists every non-hidden container from root down to the depth limit,
// parents before children, each with its music items in listing order. The
// root is depth 0. Unreadable subdirectories are reported through skipped
// and left out; an unreadable root is an error.
func (w *Walker) Walk(ctx context.Context, root string, skipped func(dir string, err error)) ([]Container, error) {
	root = filepath.Clean(root)
	var out []Container
	var visit func(dir string, depth int) error
	visit = func(dir string, depth int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := w.lister.ReadDir(dir)
		if err != nil {
			if depth == 0 {
				return fmt.Errorf("read root %s: %w", dir, err)
			}
			if skipped != nil {
				skipped(dir, err)
			}
			return nil
		}
		container := Container{Path: dir, Depth: depth}
		var children []string
		for _, entry := range entries {
			if strings.HasPrefix(entry.Name, ".") {
				continue
			}
			path := filepath.Join(dir, entry.Name)
			if entry.IsDir {
				if depth < w.maxDepth {
					children = append(children, path)
				}
				continue
			}
			if w.IsMusicFile(entry.Name) {
				container.Items = append(container.Items, Item{Path: path, Dir: dir, Name: entry.Name})
			}
		}
		out = append(out, container)
		for _, child := range children {
			if err := visit(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(root, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// Items flattens Walk into the item list.
func (w *Walker) Items(ctx context.Context, root string, skipped func(dir string, err error)) ([]Item, error) {
	containers, err := w.Walk(ctx, root, skipped)
	if err != nil {
		return nil, err
	}
	var items []Item
	for _, c := range containers {
		items = append(items, c.Items...)
	}
	return items, nil
}
