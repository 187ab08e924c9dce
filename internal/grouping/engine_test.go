package grouping

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"tunesweep/internal/fsops"
	"tunesweep/internal/ledger"
	"tunesweep/internal/library"
	"tunesweep/internal/tags"
	"tunesweep/internal/testsupport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEngine(exec fsops.Executor, store tags.Store, opts Options) *Engine {
	return New(exec, store, library.NewWalker(exec, 0, nil), opts, nil)
}

func defaultOptions() Options {
	return Options{Threshold: DefaultThreshold, Quarantine: "Devotional", PruneEmpty: true}
}

func run(t *testing.T, e *Engine, root string) *ledger.Result {
	t.Helper()
	res := ledger.NewResult("albums", root, false)
	if err := e.Run(context.Background(), root, res); err != nil {
		t.Fatalf("Run: %v", err)
	}
	res.Finish()
	return res
}

func seedMixedRoot(t *testing.T) (string, *testsupport.TagStore) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{"b1.mp3": "other", "b2.mp3": "other"}
	for i := 1; i <= 5; i++ {
		files[fmt.Sprintf("a%d.mp3", i)] = "hits"
	}
	testsupport.WriteTree(t, root, files)
	store := testsupport.NewTagStore()
	store.SetAlbum("hits", "Greatest Hits", "2001")
	store.SetAlbum("other", "Other", "")
	return root, store
}

var groupedRoot = []string{
	"Greatest Hits (2001)/a1.mp3",
	"Greatest Hits (2001)/a2.mp3",
	"Greatest Hits (2001)/a3.mp3",
	"Greatest Hits (2001)/a4.mp3",
	"Greatest Hits (2001)/a5.mp3",
	"b1.mp3",
	"b2.mp3",
}

func TestRunMovesGroupsAboveThreshold(t *testing.T) {
	root, store := seedMixedRoot(t)

	res := run(t, newEngine(fsops.NewOS(), store, defaultOptions()), root)

	if diff := cmp.Diff(groupedRoot, testsupport.ListTree(t, root)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
	want := ledger.Counts{Processed: 7, Moved: 5, Skipped: 2, ContainersCreated: 1}
	if diff := cmp.Diff(want, res.Counts); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
	entry, ok := res.Lookup(filepath.Join(root, "b1.mp3"))
	if !ok || entry.SkipReason != ledger.SkipBelowThreshold || entry.AlbumKey != "Other" {
		t.Fatalf("unexpected entry for small group: %+v", entry)
	}
	dest := filepath.Join(root, "Greatest Hits (2001)")
	entry, ok = res.Lookup(filepath.Join(dest, "a3.mp3"))
	if !ok || entry.MovedTo != dest || entry.OriginalName() != "a3.mp3" {
		t.Fatalf("unexpected entry for moved track: %+v", entry)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	root, store := seedMixedRoot(t)
	e := newEngine(fsops.NewOS(), store, defaultOptions())
	run(t, e, root)

	res := run(t, e, root)

	if diff := cmp.Diff(groupedRoot, testsupport.ListTree(t, root)); diff != "" {
		t.Fatalf("tree changed on re-run (-want +got):\n%s", diff)
	}
	if res.Counts.Moved != 0 || res.Counts.ContainersCreated != 0 || res.Counts.ContainersRemoved != 0 {
		t.Fatalf("re-run made changes: %+v", res.Counts)
	}
	entry, _ := res.Lookup(filepath.Join(root, "Greatest Hits (2001)", "a1.mp3"))
	if entry.SkipReason != ledger.SkipAlreadyPlaced {
		t.Fatalf("skip reason = %q, want already_placed", entry.SkipReason)
	}
}

type recordingCleaner struct {
	seen []string
}

func (c *recordingCleaner) ProcessItem(_ context.Context, item library.Item, _ *ledger.Result) ledger.Outcome {
	c.seen = append(c.seen, item.Name)
	return ledger.OutcomeUnchanged
}

func TestRunSiblingPlacementPrunesAndQuarantines(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for i := 1; i <= 4; i++ {
		files[fmt.Sprintf("Dump/t%d.mp3", i)] = "x"
		files[fmt.Sprintf("devotional/d%d.mp3", i)] = "hymn"
	}
	testsupport.WriteTree(t, root, files)
	store := testsupport.NewTagStore()
	store.SetAlbum("x", "X", "")
	store.SetAlbum("hymn", "Hymns", "")

	cleaner := &recordingCleaner{}
	res := run(t, newEngine(fsops.NewOS(), store, defaultOptions()).WithCleaner(cleaner), root)

	want := []string{
		"X/t1.mp3", "X/t2.mp3", "X/t3.mp3", "X/t4.mp3",
		"devotional/d1.mp3", "devotional/d2.mp3", "devotional/d3.mp3", "devotional/d4.mp3",
	}
	if diff := cmp.Diff(want, testsupport.ListTree(t, root)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{filepath.Join(root, "Dump")}, res.Removed); diff != "" {
		t.Fatalf("removed containers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"d1.mp3", "d2.mp3", "d3.mp3", "d4.mp3"}, cleaner.seen); diff != "" {
		t.Fatalf("quarantined items not cleaned (-want +got):\n%s", diff)
	}
	entry, _ := res.Lookup(filepath.Join(root, "devotional", "d1.mp3"))
	if entry.SkipReason != ledger.SkipQuarantined || entry.MovedTo != "" {
		t.Fatalf("unexpected quarantined entry: %+v", entry)
	}
}

func TestRunInPlacePlacement(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for i := 1; i <= 4; i++ {
		files[fmt.Sprintf("Dump/t%d.mp3", i)] = "x"
	}
	testsupport.WriteTree(t, root, files)
	store := testsupport.NewTagStore()
	store.SetAlbum("x", "X", "1999")

	opts := defaultOptions()
	opts.Placement = PlacementInPlace
	res := run(t, newEngine(fsops.NewOS(), store, opts), root)

	want := []string{"Dump/X (1999)/t1.mp3", "Dump/X (1999)/t2.mp3", "Dump/X (1999)/t3.mp3", "Dump/X (1999)/t4.mp3"}
	if diff := cmp.Diff(want, testsupport.ListTree(t, root)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
	if len(res.Removed) != 0 {
		t.Fatalf("inplace placement removed %v", res.Removed)
	}
}

func TestPlanReservesNamesAcrossContainers(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for i := 1; i <= 4; i++ {
		files[fmt.Sprintf("A/%d.mp3", i)] = "x"
		files[fmt.Sprintf("B/%d.mp3", i)] = "x"
	}
	testsupport.WriteTree(t, root, files)
	store := testsupport.NewTagStore()
	store.SetAlbum("x", "X", "")

	plan, err := newEngine(fsops.NewOS(), store, defaultOptions()).Plan(context.Background(), root)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	var names []string
	for _, m := range plan.Moves {
		if m.DestDir != filepath.Join(root, "X") {
			t.Fatalf("unexpected destination %s", m.DestDir)
		}
		names = append(names, m.DestName)
	}
	want := []string{"1.mp3", "2.mp3", "3.mp3", "4.mp3", "1 (1).mp3", "2 (1).mp3", "3 (1).mp3", "4 (1).mp3"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("planned names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A/1.mp3", "A/2.mp3", "A/3.mp3", "A/4.mp3", "B/1.mp3", "B/2.mp3", "B/3.mp3", "B/4.mp3"}, testsupport.ListTree(t, root)); diff != "" {
		t.Fatalf("Plan touched the tree (-want +got):\n%s", diff)
	}
}

type occupiedExec struct {
	*fsops.OS
}

func (occupiedExec) Move(src, _, _ string) error {
	return fmt.Errorf("move %s: %w", src, fs.ErrExist)
}

func TestRunRecordsMoveConflicts(t *testing.T) {
	root, store := seedMixedRoot(t)
	exec := occupiedExec{fsops.NewOS()}

	res := run(t, newEngine(exec, store, defaultOptions()), root)

	if res.Counts.Moved != 0 || res.Counts.Errored != 5 {
		t.Fatalf("unexpected counts %+v", res.Counts)
	}
	entry, _ := res.Lookup(filepath.Join(root, "a1.mp3"))
	if len(entry.Errors) != 1 || !strings.Contains(entry.Errors[0], ErrMoveConflict.Error()) {
		t.Fatalf("expected a move conflict, got %v", entry.Errors)
	}
}

func TestRunSimulatesOnOverlay(t *testing.T) {
	root, store := seedMixedRoot(t)
	before := testsupport.ListTree(t, root)

	ov := fsops.NewOverlay()
	res := ledger.NewResult("albums", root, true)
	e := newEngine(ov, tags.NewOverlay(store, ov.Backing), defaultOptions())
	if err := e.Run(context.Background(), root, res); err != nil {
		t.Fatalf("Run: %v", err)
	}
	res.Finish()

	if diff := cmp.Diff(before, testsupport.ListTree(t, root)); diff != "" {
		t.Fatalf("simulation touched the tree (-want +got):\n%s", diff)
	}
	if res.Counts.Moved != 5 || res.Counts.ContainersCreated != 1 {
		t.Fatalf("simulation did not report the plan: %+v", res.Counts)
	}
}

func TestRunInterrupted(t *testing.T) {
	root, store := seedMixedRoot(t)
	before := testsupport.ListTree(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := ledger.NewResult("albums", root, false)
	if err := newEngine(fsops.NewOS(), store, defaultOptions()).Run(ctx, root, res); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Interrupted {
		t.Fatal("expected interrupted result")
	}
	if diff := cmp.Diff(before, testsupport.ListTree(t, root)); diff != "" {
		t.Fatalf("tree changed (-want +got):\n%s", diff)
	}
}

func TestRunFailsOnMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	err := newEngine(fsops.NewOS(), testsupport.NewTagStore(), defaultOptions()).Run(context.Background(), root, ledger.NewResult("albums", root, false))
	if err == nil || errors.Is(err, context.Canceled) {
		t.Fatalf("expected walk error, got %v", err)
	}
}

func TestRunKeepsDotAlbumsInsideRoot(t *testing.T) {
	tests := []struct {
		name   string
		album  string
		folder string
	}{
		{"parent reference", "..", "Unknown Album"},
		{"current directory", ".", "Unknown Album"},
		{"hidden name", ".Hidden", "Hidden"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			outer := t.TempDir()
			root := filepath.Join(outer, "music")
			files := make(map[string]string)
			for i := 1; i <= 4; i++ {
				files[fmt.Sprintf("t%d.mp3", i)] = "dotted"
			}
			testsupport.WriteTree(t, root, files)
			store := testsupport.NewTagStore()
			store.SetAlbum("dotted", tc.album, "")

			res := run(t, newEngine(fsops.NewOS(), store, defaultOptions()), root)

			var want []string
			for i := 1; i <= 4; i++ {
				want = append(want, fmt.Sprintf("music/%s/t%d.mp3", tc.folder, i))
			}
			if diff := cmp.Diff(want, testsupport.ListTree(t, outer)); diff != "" {
				t.Fatalf("tree mismatch (-want +got):\n%s", diff)
			}
			if res.Counts.Moved != 4 {
				t.Fatalf("moved = %d, want 4", res.Counts.Moved)
			}
		})
	}
}

func TestDestinationRejectsKeysOutsideRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "music")
	inbox := filepath.Join(root, "Inbox")
	sibling := newEngine(fsops.NewOS(), testsupport.NewTagStore(), defaultOptions())
	inplace := newEngine(fsops.NewOS(), testsupport.NewTagStore(), Options{Placement: PlacementInPlace})

	for _, key := range []string{"..", ".", ".Hidden", "a/b", ""} {
		for _, container := range []string{root, inbox} {
			if dest, err := sibling.destination(root, container, key); !errors.Is(err, ErrUnsafeKey) {
				t.Errorf("sibling destination(%q, %q) = %q, %v; want ErrUnsafeKey", container, key, dest, err)
			}
			if dest, err := inplace.destination(root, container, key); !errors.Is(err, ErrUnsafeKey) {
				t.Errorf("inplace destination(%q, %q) = %q, %v; want ErrUnsafeKey", container, key, dest, err)
			}
		}
	}

	if dest, err := sibling.destination(root, inbox, "Hits"); err != nil || dest != filepath.Join(root, "Hits") {
		t.Fatalf("sibling destination = %q, %v", dest, err)
	}
	if dest, err := inplace.destination(root, inbox, "Hits"); err != nil || dest != filepath.Join(inbox, "Hits") {
		t.Fatalf("inplace destination = %q, %v", dest, err)
	}
}
