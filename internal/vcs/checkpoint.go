package vcs

import "context"

// checkpointMarker is the fixed message for checkpoint stash entries.
const checkpointMarker = "recursa-checkpoint"

// Manager layers save/revert/discard semantics over the git stash
// stack. Checkpoints give at-most-one-level undo: only the most recent
// entry is addressable, LIFO. Save and revert act purely on the stash
// stack and never touch the commit history; discard acts purely on
// tracked and committed state and never consumes a stash entry.
type Manager struct {
	git *Git
}

// NewManager creates a checkpoint manager over the git client.
func NewManager(git *Git) *Manager {
	return &Manager{git: git}
}

// Save pushes the current working-tree state onto the checkpoint stack
// and then reapplies it, so the tree keeps its changes. A clean tree is
// a no-op that still succeeds, keeping the operation idempotent from
// the caller's perspective.
func (m *Manager) Save(ctx context.Context) (bool, error) {
	clean, err := m.git.IsClean(ctx)
	if err != nil {
		return false, err
	}
	if clean {
		return true, nil
	}
	if err := m.git.AddAll(ctx); err != nil {
		return false, err
	}
	if err := m.git.StashPush(ctx, checkpointMarker); err != nil {
		return false, err
	}
	if err := m.git.StashApply(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Revert pops the most recent checkpoint and restores the working tree
// to it, dropping whatever speculative edits were made since. An empty
// checkpoint stack is a valid steady state: Revert reports false
// without error.
func (m *Manager) Revert(ctx context.Context) (bool, error) {
	count, err := m.git.StashCount(ctx)
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	if err := m.git.ResetHard(ctx); err != nil {
		return false, err
	}
	if err := m.git.CleanUntracked(ctx); err != nil {
		return false, err
	}
	if err := m.git.StashPop(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Discard irreversibly resets tracked files to the last committed state
// and removes untracked files and directories. The checkpoint stack is
// left untouched, so Discard is not undoable by Revert.
func (m *Manager) Discard(ctx context.Context) (bool, error) {
	if m.git.HasCommits(ctx) {
		if err := m.git.ResetHard(ctx); err != nil {
			return false, err
		}
	}
	if err := m.git.CleanUntracked(ctx); err != nil {
		return false, err
	}
	return true, nil
}
