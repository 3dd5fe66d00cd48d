package optimizer

import (
	"fmt"
	"regexp"

	"github.com/fyrsmithlabs/optimd/internal/token"
)

// Extraction thresholds. Blocks below these stay inline; the marker would
// not be meaningfully shorter.
const (
	codeBlockTokenThreshold = 500
	jsonBlockTokenThreshold = 300
	jsonBlockMinChars       = 500
)

// fencedBlockRe matches a triple-backtick fenced region with an optional
// language tag. Nested fences confuse a single regex pass; JSON regions use
// a depth-tracking scanner instead (see findJSONSpans).
var fencedBlockRe = regexp.MustCompile("(?s)```([a-zA-Z0-9+#._-]*)\\n?(.*?)```")

// extractCodeBlocks replaces each fenced code block whose body estimates
// above the threshold with an inline marker, storing the body content-
// addressed. Returns the modified message and the number of replaced blocks.
func (s *Service) extractCodeBlocks(message string) (string, int) {
	replaced := 0
	out := fencedBlockRe.ReplaceAllStringFunc(message, func(block string) string {
		m := fencedBlockRe.FindStringSubmatch(block)
		if m == nil {
			return block
		}
		lang, body := m[1], m[2]

		est := token.Estimate(body)
		if est <= codeBlockTokenThreshold {
			return block
		}

		put, err := s.store.Put(body, "", "")
		if err != nil {
			// Store rejected the block (per-item cap); leave it inline.
			return block
		}
		replaced++

		if lang == "" {
			lang = "code"
		}
		return fmt.Sprintf("[Code: %s (%d tokens) - ID: %s]", lang, est, put.ID)
	})
	return out, replaced
}

// extractJSONBlocks replaces each balanced brace-delimited region of at
// least jsonBlockMinChars characters whose token estimate exceeds the
// threshold with an inline marker. Returns the modified message and the
// number of replaced blocks.
func (s *Service) extractJSONBlocks(message string) (string, int) {
	spans := findJSONSpans(message)
	if len(spans) == 0 {
		return message, 0
	}

	replaced := 0
	var out []byte
	last := 0
	for _, sp := range spans {
		body := message[sp.start:sp.end]
		est := token.Estimate(body)
		if est <= jsonBlockTokenThreshold {
			continue
		}

		put, err := s.store.Put(body, "", "")
		if err != nil {
			continue
		}

		out = append(out, message[last:sp.start]...)
		out = append(out, fmt.Sprintf("[JSON Data (%d tokens) - ID: %s]", est, put.ID)...)
		last = sp.end
		replaced++
	}
	if replaced == 0 {
		return message, 0
	}
	out = append(out, message[last:]...)
	return string(out), replaced
}

type span struct {
	start, end int
}

// findJSONSpans scans for balanced top-level {...} regions of at least
// jsonBlockMinChars bytes. Depth, string, and escape state are tracked
// explicitly so nested objects and braces inside string literals do not
// truncate the match the way a single regex pass would.
func findJSONSpans(text string) []span {
	var spans []span
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				if end := i + 1; end-start >= jsonBlockMinChars {
					spans = append(spans, span{start: start, end: end})
				}
				start = -1
			}
		}
	}
	return spans
}
