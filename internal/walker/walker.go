// Package walker enumerates graph files lazily, honoring ignore rules.
package walker

import (
	"fmt"
	"iter"
	"os"
	"path"
	"path/filepath"

	"github.com/recursa-hq/recursa/internal/ignore"
)

// Walk returns a lazy, finite, restartable sequence of slash-separated
// file paths relative to root, depth-first. Ignored directories are
// pruned without visiting their contents; ignored files are skipped;
// directories themselves are never yielded.
//
// A directory that cannot be read is reported as an error for that
// subtree, and the walk continues with its siblings. Re-invoking the
// returned sequence re-reads the tree from scratch.
//
// The traversal uses an explicit stack of pending directories so
// pathological nesting cannot exhaust the call stack.
func Walk(root string, matcher *ignore.Matcher) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stack := []string{""}
		for len(stack) > 0 {
			dir := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(dir)))
			if err != nil {
				if !yield("", fmt.Errorf("walker: read dir %q: %w", dir, err)) {
					return
				}
				continue
			}

			var subdirs []string
			for _, entry := range entries {
				rel := path.Join(dir, entry.Name())
				if entry.IsDir() {
					if !matcher.Ignored(rel, true) {
						subdirs = append(subdirs, rel)
					}
					continue
				}
				if matcher.Ignored(rel, false) {
					continue
				}
				if !yield(rel, nil) {
					return
				}
			}

			// Push in reverse so subdirectories pop in lexical order.
			for i := len(subdirs) - 1; i >= 0; i-- {
				stack = append(stack, subdirs[i])
			}
		}
	}
}
