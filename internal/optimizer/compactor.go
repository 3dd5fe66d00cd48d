package optimizer

import (
	"regexp"
	"strings"
)

// dedupeMinLineLen keeps short unrelated lines (list bullets, closing
// braces) from being collapsed as duplicates.
const dedupeMinLineLen = 20

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	excessSpaces   = regexp.MustCompile(` {2,}`)
)

// compact removes redundant whitespace and duplicate lines. Strategy-
// agnostic cleanup applied after extraction inside OptimizeMessage; it does
// not touch the store.
func compact(text string) string {
	out := excessNewlines.ReplaceAllString(text, "\n\n")
	out = excessSpaces.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)
	return dedupeLines(out)
}

// dedupeLines drops repeated lines, comparing trimmed and lowercased.
// Only lines of at least dedupeMinLineLen characters participate; the
// first occurrence is kept.
func dedupeLines(text string) string {
	lines := strings.Split(text, "\n")
	seen := make(map[string]struct{})
	out := lines[:0]

	for _, line := range lines {
		key := strings.ToLower(strings.TrimSpace(line))
		if len(key) >= dedupeMinLineLen {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
