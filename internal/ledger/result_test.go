package ledger

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRelocateKeepsOriginalIdentity(t *testing.T) {
	res := NewResult("clean", "/music", false)
	res.Relocate("/music/01 a.mp3", "/music/a.mp3")
	res.Relocate("/music/a.mp3", "/music/Album/a.mp3")

	e, ok := res.Lookup("/music/Album/a.mp3")
	if !ok {
		t.Fatal("expected entry for relocated item")
	}
	if e.OriginalPath != "/music/01 a.mp3" || e.FinalPath != "/music/Album/a.mp3" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if got := res.Paths.Original("/music/Album/a.mp3"); got != "/music/01 a.mp3" {
		t.Fatalf("Original = %q", got)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("expected a single entry, got %d", len(res.Entries))
	}
}

func TestPathIndexSwap(t *testing.T) {
	idx := NewPathIndex()
	idx.Record("/d/a", "/d/tmp")
	idx.Record("/d/b", "/d/a")
	idx.Record("/d/tmp", "/d/b")

	if got := idx.Original("/d/a"); got != "/d/b" {
		t.Fatalf("Original(/d/a) = %q", got)
	}
	if got := idx.Original("/d/b"); got != "/d/a" {
		t.Fatalf("Original(/d/b) = %q", got)
	}
	if got := idx.Original("/d/tmp"); got != "/d/tmp" {
		t.Fatalf("stale alias left behind: %q", got)
	}
}

func TestFinishTalliesEntries(t *testing.T) {
	res := NewResult("run", "/m", true)
	a := res.Relocate("/m/1 a.mp3", "/m/a.mp3")
	a.Renamed = true
	a.Metadata = append(a.Metadata, FieldChange{Field: "title", Before: "1 a", After: "a"})
	b := res.Entry("/m/b.mp3")
	b.SkipReason = SkipBelowThreshold
	c := res.Entry("/m/c.mp3")
	c.AddError(errors.New("boom"))
	c.AddError(errors.New("boom"))
	c.MovedTo = "/m/X"
	res.ContainerCreated("/m/X")
	res.Finish()

	want := Counts{Processed: 3, Renamed: 1, MetadataUpdated: 1, Moved: 1, Skipped: 1, Errored: 1, ContainersCreated: 1}
	if diff := cmp.Diff(want, res.Counts); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
	if len(c.Errors) != 1 {
		t.Fatalf("duplicate errors recorded: %v", c.Errors)
	}
	if res.FinishedAt.IsZero() || res.ID == "" {
		t.Fatal("expected finish time and run id")
	}
}

func TestResultsDoNotShareState(t *testing.T) {
	first := NewResult("clean", "/m", false)
	first.Tokens.Add("site.com")
	first.Entry("/m/a.mp3")

	second := NewResult("clean", "/m", false)
	if second.Tokens.Len() != 0 || len(second.Entries) != 0 || second.ID == first.ID {
		t.Fatal("new result inherited state from a previous run")
	}
}
