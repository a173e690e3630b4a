// Package vcs drives the git command line for the graph working tree
// and layers checkpoint semantics on top of the stash stack.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/recursa-hq/recursa/internal/apperr"
	"github.com/recursa-hq/recursa/internal/models"
)

// Git executes git commands in a fixed working directory. All methods
// are safe for concurrent use; git itself serializes index access.
type Git struct {
	dir     string
	timeout time.Duration
}

// New creates a git client for the repository at dir.
func New(dir string, timeout time.Duration) *Git {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Git{dir: dir, timeout: timeout}
}

// run executes a git command and returns trimmed stdout. Failures are
// wrapped with apperr.ErrBackend and carry git's stderr message.
func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("vcs: git %s: timeout after %v: %w", args[0], g.timeout, apperr.ErrBackend)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("vcs: git %s: %s: %w", args[0], msg, apperr.ErrBackend)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (g *Git) runSilent(ctx context.Context, args ...string) error {
	_, err := g.run(ctx, args...)
	return err
}

// IsRepo reports whether dir is inside a git work tree.
func (g *Git) IsRepo(ctx context.Context) bool {
	return g.runSilent(ctx, "rev-parse", "--git-dir") == nil
}

// EnsureRepo initializes a repository at dir when none exists. A
// repository without any commit gets an empty baseline commit, since
// stash-based checkpoints need a HEAD to work from.
func (g *Git) EnsureRepo(ctx context.Context) error {
	if !g.IsRepo(ctx) {
		if err := g.runSilent(ctx, "init"); err != nil {
			return err
		}
	}
	if g.HasCommits(ctx) {
		return nil
	}
	// Inline identity so the baseline works even before the user has
	// configured git.
	return g.runSilent(ctx,
		"-c", "user.name=recursa", "-c", "user.email=recursa@localhost",
		"commit", "--allow-empty", "-m", "initialize graph")
}

// IsClean reports whether the working tree has no uncommitted changes,
// including untracked files.
func (g *Git) IsClean(ctx context.Context) (bool, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// AddAll stages every change in the working tree.
func (g *Git) AddAll(ctx context.Context) error {
	return g.runSilent(ctx, "add", "-A")
}

// Commit records the staged changes with message and returns the new
// commit hash. Commits are only ever created through this explicit call.
func (g *Git) Commit(ctx context.Context, message string) (string, error) {
	if err := g.AddAll(ctx); err != nil {
		return "", err
	}
	if err := g.runSilent(ctx, "commit", "-m", message); err != nil {
		return "", err
	}
	return g.run(ctx, "rev-parse", "HEAD")
}

// HasCommits reports whether HEAD resolves to a commit.
func (g *Git) HasCommits(ctx context.Context) bool {
	return g.runSilent(ctx, "rev-parse", "--verify", "HEAD") == nil
}

// StashPush stashes tracked and untracked changes with message.
func (g *Git) StashPush(ctx context.Context, message string) error {
	return g.runSilent(ctx, "stash", "push", "-u", "-m", message)
}

// StashApply reapplies the top stash without consuming it.
func (g *Git) StashApply(ctx context.Context) error {
	return g.runSilent(ctx, "stash", "apply")
}

// StashPop applies and removes the top stash entry.
func (g *Git) StashPop(ctx context.Context) error {
	return g.runSilent(ctx, "stash", "pop")
}

// StashCount returns the number of entries on the stash stack.
func (g *Git) StashCount(ctx context.Context) (int, error) {
	out, err := g.run(ctx, "stash", "list")
	if err != nil {
		return 0, err
	}
	if out == "" {
		return 0, nil
	}
	return len(strings.Split(out, "\n")), nil
}

// ResetHard resets the index and working tree to HEAD.
func (g *Git) ResetHard(ctx context.Context) error {
	return g.runSilent(ctx, "reset", "--hard", "HEAD")
}

// CleanUntracked removes untracked files and directories.
func (g *Git) CleanUntracked(ctx context.Context) error {
	return g.runSilent(ctx, "clean", "-fd")
}

// Diff returns the textual diff between two refs, optionally scoped to
// path. Empty refs diff the working tree against HEAD.
func (g *Git) Diff(ctx context.Context, from, to, path string) (string, error) {
	args := []string{"diff"}
	if from != "" {
		args = append(args, from)
	}
	if to != "" {
		args = append(args, to)
	}
	if path != "" {
		args = append(args, "--", path)
	}
	return g.run(ctx, args...)
}

// ChangedFiles lists the paths that differ between two refs, or the
// uncommitted changes in the working tree when both refs are empty.
func (g *Git) ChangedFiles(ctx context.Context, from, to string) ([]string, error) {
	var out string
	var err error
	if from == "" && to == "" {
		out, err = g.run(ctx, "status", "--porcelain")
		if err != nil {
			return nil, err
		}
		var files []string
		for _, line := range strings.Split(out, "\n") {
			if len(line) <= 3 {
				continue
			}
			name := strings.TrimSpace(line[3:])
			// Rename entries read "old -> new"; report the new path.
			if _, after, ok := strings.Cut(name, " -> "); ok {
				name = after
			}
			files = append(files, name)
		}
		return files, nil
	}
	args := []string{"diff", "--name-only", from}
	if to != "" {
		args = append(args, to)
	}
	out, err = g.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// logFieldSep separates the hash, subject, and date fields in log output.
const logFieldSep = "\x1f"

// Log returns up to limit commits, newest first, optionally scoped to path.
func (g *Git) Log(ctx context.Context, limit int, path string) ([]models.Commit, error) {
	if limit <= 0 {
		limit = 50
	}
	args := []string{
		"log",
		fmt.Sprintf("--max-count=%d", limit),
		"--pretty=format:%H" + logFieldSep + "%s" + logFieldSep + "%cI",
	}
	if path != "" {
		args = append(args, "--", path)
	}
	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	var commits []models.Commit
	for _, line := range strings.Split(out, "\n") {
		fields := strings.SplitN(line, logFieldSep, 3)
		if len(fields) != 3 {
			continue
		}
		date, parseErr := time.Parse(time.RFC3339, fields[2])
		if parseErr != nil {
			date = time.Time{}
		}
		commits = append(commits, models.Commit{Hash: fields[0], Message: fields[1], Date: date})
	}
	return commits, nil
}
