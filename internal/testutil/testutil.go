// Package testutil provides shared test helpers for setting up graph
// roots and git repositories.
package testutil

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/recursa-hq/recursa/internal/storage"
	"github.com/recursa-hq/recursa/internal/vcs"
)

// TestGraph creates a temporary graph root with a storage.Provider.
func TestGraph(t *testing.T) (string, storage.Provider) {
	t.Helper()
	graphDir := t.TempDir()
	store, err := storage.NewFS(graphDir)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}

// RequireGit skips the test when no git binary is installed.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// TestRepo initializes a git repository at dir with a local identity so
// commits work in bare CI environments. Skips when git is unavailable.
func TestRepo(t *testing.T, dir string) *vcs.Git {
	t.Helper()
	RequireGit(t)

	git := vcs.New(dir, 30*time.Second)
	ctx := context.Background()
	if err := git.EnsureRepo(ctx); err != nil {
		t.Fatal(err)
	}
	for _, args := range [][]string{
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "test"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	return git
}
