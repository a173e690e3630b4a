// Package graph derives links, backlinks, search results, and query
// matches from raw page content. Nothing is cached between calls: the
// graph is recomputed from the files on every operation.
package graph

import (
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/recursa-hq/recursa/internal/ignore"
	"github.com/recursa-hq/recursa/internal/models"
	"github.com/recursa-hq/recursa/internal/storage"
	"github.com/recursa-hq/recursa/internal/walker"
)

var wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// Engine evaluates graph operations against a sandboxed store.
type Engine struct {
	store storage.Provider
}

// NewEngine creates an engine over the given store.
func NewEngine(store storage.Provider) *Engine {
	return &Engine{store: store}
}

// ExtractLinks returns the distinct wikilink targets in content, in
// first-occurrence order. Extraction is purely syntactic: a link to a
// page that does not exist is still returned.
func ExtractLinks(content string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := strings.TrimSpace(m[1])
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// OutgoingLinks reads the page at rel and returns its wikilink targets.
func (e *Engine) OutgoingLinks(rel string) ([]string, error) {
	data, err := e.store.Read(rel)
	if err != nil {
		return nil, err
	}
	return ExtractLinks(string(data)), nil
}

// Backlinks returns the relative paths of every non-ignored text file
// whose raw content contains the literal token [[<name>]], where name
// is the target's filename without extension. The target itself is
// excluded even when it self-references; binary files are skipped.
//
// This is a deliberate substring test, not an outgoing-link-set lookup:
// it can match inside code blocks and misses links whose displayed text
// differs from the filename.
func (e *Engine) Backlinks(target string) ([]string, error) {
	target = path.Clean(strings.Trim(target, "/"))
	name := strings.TrimSuffix(path.Base(target), path.Ext(target))
	token := "[[" + name + "]]"

	var out []string
	for rel, err := range e.walk() {
		if err != nil {
			slog.Warn("graph: backlinks walk error", slog.String("error", err.Error()))
			continue
		}
		if rel == target {
			continue
		}
		data, readErr := e.store.Read(rel)
		if readErr != nil {
			slog.Warn("graph: backlinks read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
			continue
		}
		if !isText(data) {
			continue
		}
		if strings.Contains(string(data), token) {
			out = append(out, rel)
		}
	}
	return out, nil
}

// Search returns the relative paths of every walked file whose content
// contains query, compared case-insensitively. Files that do not decode
// as text are skipped, not errored.
func (e *Engine) Search(query string) ([]string, error) {
	needle := strings.ToLower(query)

	var out []string
	for rel, err := range e.walk() {
		if err != nil {
			slog.Warn("graph: search walk error", slog.String("error", err.Error()))
			continue
		}
		data, readErr := e.store.Read(rel)
		if readErr != nil {
			slog.Warn("graph: search read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
			continue
		}
		if !isText(data) {
			continue
		}
		if strings.Contains(strings.ToLower(string(data)), needle) {
			out = append(out, rel)
		}
	}
	return out, nil
}

// Query evaluates a parsed query string against every walked .md page.
// Conditions are ANDed in order and evaluation short-circuits on the
// first condition with no matches for a file. A query with no parsable
// conditions yields an empty result list.
func (e *Engine) Query(queryString string) ([]models.QueryResult, error) {
	conditions := ParseQuery(queryString)
	if len(conditions) == 0 {
		return []models.QueryResult{}, nil
	}

	results := []models.QueryResult{}
	for rel, err := range e.walk() {
		if err != nil {
			slog.Warn("graph: query walk error", slog.String("error", err.Error()))
			continue
		}
		if !strings.HasSuffix(rel, ".md") {
			continue
		}
		data, readErr := e.store.Read(rel)
		if readErr != nil {
			slog.Warn("graph: query read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
			continue
		}

		content := string(data)
		links := ExtractLinks(content)

		var fragments []string
		matched := true
		for _, cond := range conditions {
			m := cond.matches(content, links)
			if len(m) == 0 {
				matched = false
				break
			}
			fragments = append(fragments, m...)
		}
		if matched {
			results = append(results, models.QueryResult{FilePath: rel, Matches: fragments})
		}
	}
	return results, nil
}

// walk returns the lazy file sequence for one operation, recompiling
// the ignore rules from disk first.
func (e *Engine) walk() func(yield func(string, error) bool) {
	root := e.store.Root()
	matcher, err := ignore.Load(root)
	if err != nil {
		slog.Warn("graph: ignore rules unreadable, walking everything", slog.String("error", err.Error()))
		matcher = nil
	}
	return walker.Walk(root, matcher)
}

// isText reports whether data plausibly decodes as text: valid UTF-8
// with no NUL bytes.
func isText(data []byte) bool {
	return utf8.Valid(data) && !slices.Contains(data, 0)
}
