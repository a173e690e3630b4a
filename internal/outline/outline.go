// Package outline validates the block-outline grammar of graph pages.
package outline

import (
	"fmt"
	"regexp"
	"strings"
)

// Error is a single structural violation at a source line.
type Error struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Result is the outcome of validating one document.
type Result struct {
	Valid  bool    `json:"valid"`
	Errors []Error `json:"errors,omitempty"`
}

// ValidationError carries the full ordered violation list when a write
// is rejected.
type ValidationError struct {
	Errors []Error
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "outline: invalid document"
	}
	first := e.Errors[0]
	return fmt.Sprintf("outline: %d violation(s), first at line %d: %s", len(e.Errors), first.Line, first.Message)
}

// propertyRe matches a `key:: value` property line (after the bullet).
var propertyRe = regexp.MustCompile(`^[^\s:]+::(\s|$)`)

// Validate checks content against the block-outline grammar. It is a
// pure function: no I/O, no state. All violations are accumulated in a
// single pass and reported in source line order.
//
// Grammar: blank lines are ignored entirely. Every other line must,
// after trimming, start with "- "; its indentation must be a multiple
// of two spaces and may increase by at most one level (2 spaces) over
// the innermost active level. Property lines are not allowed at the
// document root.
func Validate(content string) Result {
	var errs []Error

	// Active indentation levels, seeded with a virtual root at -2 so
	// the first line sits one level below it.
	stack := []int{-2}

	for i, line := range strings.Split(content, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "- ") {
			errs = append(errs, Error{Line: lineNo, Message: `line must start with "- "`})
			continue
		}

		indent := len(line) - len(strings.TrimLeft(line, " "))
		if indent%2 != 0 {
			errs = append(errs, Error{
				Line:    lineNo,
				Message: fmt.Sprintf("indentation of %d spaces is not a multiple of 2", indent),
			})
		}

		top := stack[len(stack)-1]
		if indent/2 > top/2+1 {
			errs = append(errs, Error{
				Line:    lineNo,
				Message: "indentation increased by more than one level",
			})
		}

		// Update the level stack only after both checks above ran, so a
		// line can report both a modulus and a nesting violation.
		if indent > top {
			stack = append(stack, indent)
		} else {
			for len(stack) > 1 && stack[len(stack)-1] > indent {
				stack = stack[:len(stack)-1]
			}
		}

		if indent == 0 && propertyRe.MatchString(strings.TrimPrefix(trimmed, "- ")) {
			errs = append(errs, Error{
				Line:    lineNo,
				Message: "property line is not allowed at the document root",
			})
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}
