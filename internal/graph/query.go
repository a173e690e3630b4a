package graph

import (
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// Condition is one clause of a graph query. The two kinds form a closed
// set; evaluation is a single dispatch over the concrete type.
type Condition interface {
	// matches returns the fragments content contributes for this
	// condition, or nil when the condition does not hold.
	matches(content string, links []string) []string
}

// PropertyCondition requires a `key:: value` property line.
type PropertyCondition struct {
	Key   string
	Value string
}

// matches collects every line that, once trimmed and stripped of its
// bullet, equals exactly "key:: value". Pages keep properties on
// bulleted lines, so the bullet prefix is tolerated; the contributed
// fragment is always the canonical key:: value form.
func (c PropertyCondition) matches(content string, _ []string) []string {
	want := c.Key + ":: " + c.Value
	var out []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimPrefix(trimmed, "- ")
		if trimmed == want {
			out = append(out, trimmed)
		}
	}
	return out
}

// OutgoingLinkCondition requires a wikilink to Target anywhere in the page.
type OutgoingLinkCondition struct {
	Target string
}

// matches contributes a synthetic marker when the literal target appears
// in the page's outgoing-link set.
func (c OutgoingLinkCondition) matches(_ string, links []string) []string {
	if slices.Contains(links, c.Target) {
		return []string{"[[" + c.Target + "]]"}
	}
	return nil
}

var (
	andRe         = regexp.MustCompile(`(?i) AND `)
	propSegmentRe = regexp.MustCompile(`^\(property\s+([^\s:]+)::\s*(.*?)\s*\)$`)
	linkSegmentRe = regexp.MustCompile(`^\(outgoing-link\s+\[\[(.+?)\]\]\s*\)$`)
)

// ParseQuery splits queryString on the literal " AND " separator
// (case-insensitive) and parses each segment into a condition. Segments
// that parse as neither kind are dropped silently; the drop is logged at
// debug level so it stays observable.
func ParseQuery(queryString string) []Condition {
	var conditions []Condition
	for _, segment := range andRe.Split(queryString, -1) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if m := propSegmentRe.FindStringSubmatch(segment); m != nil {
			conditions = append(conditions, PropertyCondition{Key: m[1], Value: m[2]})
			continue
		}
		if m := linkSegmentRe.FindStringSubmatch(segment); m != nil {
			conditions = append(conditions, OutgoingLinkCondition{Target: m[1]})
			continue
		}
		slog.Debug("graph: dropping unparsable query segment", slog.String("segment", segment))
	}
	return conditions
}
