// Package ignore compiles gitignore-style exclusion rules into matchers
// used by every traversal-based graph operation.
package ignore

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// FileName is the optional rule file at the top level of the graph root.
// One rule per line, # comments, blank lines ignored.
const FileName = ".recursaignore"

// defaultRules are always active so that the version-control directory
// and the rule file itself never show up in walks.
const defaultRules = ".git/\n" + FileName + "\n"

// rule is one compiled ignore pattern.
//
// A pattern containing a separator is anchored to the graph root;
// otherwise it is tested against the basename at any depth. A trailing
// slash restricts the rule to directories, a leading ! negates it.
type rule struct {
	matcher  glob.Glob
	negated  bool
	dirOnly  bool
	anchored bool
}

// Matcher tests relative paths against an ordered rule list with
// last-match-wins semantics.
type Matcher struct {
	rules []rule
}

// Compile parses rulesText into a Matcher. Each pattern is compiled
// once; * never crosses a path separator, ** does.
func Compile(rulesText string) (*Matcher, error) {
	var rules []rule
	for _, line := range strings.Split(rulesText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		r := rule{}
		if strings.HasPrefix(line, "!") {
			r.negated = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			r.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.HasPrefix(line, "/") {
			r.anchored = true
			line = line[1:]
		}
		r.anchored = r.anchored || strings.Contains(line, "/")

		g, err := glob.Compile(line, '/')
		if err != nil {
			return nil, fmt.Errorf("ignore: compile pattern %q: %w", line, err)
		}
		r.matcher = g
		rules = append(rules, r)
	}
	return &Matcher{rules: rules}, nil
}

// Load reads the rule file at the top of root (if present) and compiles
// it together with the default rules. No compiled state is cached: each
// top-level operation recompiles from disk.
func Load(root string) (*Matcher, error) {
	text := defaultRules
	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err == nil {
		text += string(data)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("ignore: read %s: %w", FileName, err)
	}
	return Compile(text)
}

// Ignored reports whether the relative slash-separated path rel is
// excluded. Rules are tested in file order and the last rule that
// matches decides; a negated rule un-ignores. The root itself is never
// ignored.
func (m *Matcher) Ignored(rel string, isDir bool) bool {
	if m == nil {
		return false
	}
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return false
	}

	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		target := rel
		if !r.anchored {
			target = path.Base(rel)
		}
		if r.matcher.Match(target) {
			ignored = !r.negated
		}
	}
	return ignored
}
