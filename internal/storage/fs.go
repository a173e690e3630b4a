package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/recursa-hq/recursa/internal/apperr"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root     string // canonical absolute path to the graph root
	foldCase bool   // compare paths case-insensitively
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist; its path is made absolute and
// symlink-resolved once so that every later containment check compares
// against the real root.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: canonicalize root: %w", err)
	}
	info, err := os.Stat(canon)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", canon)
	}
	return &FS{
		root:     canon,
		foldCase: runtime.GOOS == "darwin" || runtime.GOOS == "windows",
	}, nil
}

// Root returns the canonical absolute graph root.
func (f *FS) Root() string {
	return f.root
}

// Resolve canonicalizes rel against the graph root and rejects any
// result that escapes it. Symlinks are resolved to their final target
// before the containment check, so a link inside the root that points
// outside is rejected. For paths that do not exist yet the deepest
// existing ancestor is resolved instead.
func (f *FS) Resolve(rel string) (string, error) {
	for _, r := range rel {
		if r < 0x20 || r == 0x7f {
			return "", fmt.Errorf("storage: control character in path %q: %w", rel, apperr.ErrTraversal)
		}
	}
	if filepath.VolumeName(rel) != "" || strings.HasPrefix(rel, `\\`) {
		return "", fmt.Errorf("storage: volume-qualified path %q: %w", rel, apperr.ErrTraversal)
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("storage: absolute path %q: %w", rel, apperr.ErrTraversal)
	}
	if rel == "" || rel == "." {
		return f.root, nil
	}

	joined := filepath.Join(f.root, filepath.Clean(filepath.FromSlash(rel)))
	canon := resolveSymlinks(joined)
	if !f.contains(canon) {
		return "", fmt.Errorf("storage: %q: %w", rel, apperr.ErrTraversal)
	}
	return canon, nil
}

// contains reports whether abs equals the root or is a descendant of it,
// folding case on file systems that do.
func (f *FS) contains(abs string) bool {
	a, b := abs, f.root
	if f.foldCase {
		a, b = strings.ToLower(a), strings.ToLower(b)
	}
	return a == b || strings.HasPrefix(a, b+string(os.PathSeparator))
}

// resolveSymlinks resolves symlinks in p, falling back to resolving the
// deepest existing ancestor when p itself does not exist (e.g. a file
// about to be created).
func resolveSymlinks(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}

	var pending []string
	current := p
	for {
		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			for i := len(pending) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, pending[i])
			}
			return resolved
		}
		dir := filepath.Dir(current)
		if dir == current {
			return p
		}
		pending = append(pending, filepath.Base(current))
		current = dir
	}
}

// Read returns the raw bytes of a graph file.
func (f *FS) Read(rel string) ([]byte, error) {
	abs, err := f.Resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", rel, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(rel string, content []byte) error {
	abs, err := f.Resolve(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".recursa-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes a file from the graph.
func (f *FS) Delete(rel string) error {
	abs, err := f.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", rel, err)
	}
	return nil
}

// Move renames a file within the graph.
func (f *FS) Move(oldRel, newRel string) error {
	absOld, err := f.Resolve(oldRel)
	if err != nil {
		return err
	}
	absNew, err := f.Resolve(newRel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absNew)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}

// Exists reports whether a file or directory exists at rel.
func (f *FS) Exists(rel string) (bool, error) {
	abs, err := f.Resolve(rel)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat %s: %w", rel, err)
	}
	return true, nil
}

// CreateDir creates the directory at rel and any missing parents.
func (f *FS) CreateDir(rel string) error {
	abs, err := f.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("storage: create dir %s: %w", rel, err)
	}
	return nil
}
