package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tunesweep/internal/runlock"
	"tunesweep/internal/testsupport"
)

const noisyName = "03 - Track Name - coolsite.com [192kbps].mp3"

func TestCleanRenamesAndRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTree(t, env.root, map[string]string{noisyName: junk, "cover.jpg": "img"})

	out, _, err := runCLI(t, []string{"clean", env.root, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	res := decodeResult(t, out)
	if res.Command != "clean" || res.DryRun || !res.Converged {
		t.Fatalf("unexpected result header: %+v", res)
	}
	if res.Counts.Processed != 1 || res.Counts.Renamed != 1 || res.Counts.Errored != 0 {
		t.Fatalf("unexpected counts: %+v", res.Counts)
	}
	if diff := cmp.Diff([]string{"coolsite.com"}, res.Tokens); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Track Name.mp3", "cover.jpg"}, testsupport.ListTree(t, env.root)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, res.ID[:8])
	requireContains(t, out, "clean")

	out, _, err = runCLI(t, []string{"history", "show", res.ID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "Run "+res.ID)
	requireContains(t, out, noisyName)
	requireContains(t, out, "Track Name.mp3")
	requireContains(t, out, "Web tokens removed: coolsite.com")
}

func TestCleanDryRunLeavesTreeUntouched(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTree(t, env.root, map[string]string{noisyName: junk})

	out, _, err := runCLI(t, []string{"clean", env.root, "--dry-run", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("clean --dry-run: %v", err)
	}
	res := decodeResult(t, out)
	if !res.DryRun || res.Counts.Renamed != 1 {
		t.Fatalf("dry run did not report the rename: %+v", res)
	}
	if diff := cmp.Diff([]string{noisyName}, testsupport.ListTree(t, env.root)); diff != "" {
		t.Fatalf("dry run touched the tree (-want +got):\n%s", diff)
	}
}

func TestCleanRejectsUnknownScope(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"clean", env.root, "--scope", "tags"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown scope")
	}
}

func TestAlbumsGroupsAndPrunes(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTree(t, env.root, map[string]string{
		"a.mp3":            junk,
		"b.mp3":            junk,
		"c.mp3":            junk,
		"d.mp3":            junk,
		"Devotional/x.mp3": junk,
		"empty/":           "",
	})

	out, _, err := runCLI(t, []string{"albums", env.root}, env.configPath)
	if err != nil {
		t.Fatalf("albums: %v", err)
	}
	requireContains(t, out, "Moved\t4")
	requireContains(t, out, "Folders removed\t1")

	want := []string{
		"Devotional/x.mp3",
		"Unknown Album/a.mp3",
		"Unknown Album/b.mp3",
		"Unknown Album/c.mp3",
		"Unknown Album/d.mp3",
	}
	if diff := cmp.Diff(want, testsupport.ListTree(t, env.root)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCleansThenGroups(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutHistory())
	testsupport.WriteTree(t, env.root, map[string]string{
		"Inbox/01 - Track Alpha - coolsite.com.mp3":   junk,
		"Inbox/02 - Track Bravo - coolsite.com.mp3":   junk,
		"Inbox/03 - Track Charlie - coolsite.com.mp3": junk,
		"Inbox/04 - Track Delta - coolsite.com.mp3":   junk,
	})

	out, _, err := runCLI(t, []string{"run", env.root, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	res := decodeResult(t, out)
	if res.Counts.Renamed != 4 || res.Counts.Moved != 4 || res.Counts.ContainersRemoved != 1 {
		t.Fatalf("unexpected counts: %+v", res.Counts)
	}

	want := []string{
		"Unknown Album/Track Alpha.mp3",
		"Unknown Album/Track Bravo.mp3",
		"Unknown Album/Track Charlie.mp3",
		"Unknown Album/Track Delta.mp3",
	}
	if diff := cmp.Diff(want, testsupport.ListTree(t, env.root)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(env.cfg.HistoryPath()); !os.IsNotExist(err) {
		t.Fatalf("history disabled but database exists: %v", err)
	}
}

func TestPruneKeepsQuarantine(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTree(t, env.root, map[string]string{
		"empty/nested/": "",
		"Devotional/":   "",
		"keep/song.mp3": junk,
	})

	if _, _, err := runCLI(t, []string{"prune", env.root}, env.configPath); err != nil {
		t.Fatalf("prune: %v", err)
	}
	want := []string{"Devotional/", "keep/song.mp3"}
	if diff := cmp.Diff(want, testsupport.ListTree(t, env.root)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestLockedRootFails(t *testing.T) {
	env := setupCLITestEnv(t)
	lock, err := runlock.Acquire(env.cfg.LockDir(), env.root)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	_, _, err = runCLI(t, []string{"clean", env.root}, env.configPath)
	if !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	requireContains(t, err.Error(), lock.File())

	if _, _, err := runCLI(t, []string{"clean", env.root, "--dry-run"}, env.configPath); err != nil {
		t.Fatalf("dry run should not need the lock: %v", err)
	}
}

func TestMissingRootFailsPreflight(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"clean", filepath.Join(env.root, "missing")}, env.configPath)
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	requireContains(t, err.Error(), "Library root")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "History: "+env.cfg.HistoryPath())
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	requireContains(t, out, "groups of more than 3 tracks move into album folders next to the folder")
	requireContains(t, out, `Quarantine: "Devotional"`)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite an existing config")
	}
}

func TestHistoryListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "No runs recorded in "+env.cfg.HistoryPath())
}
