package optimizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompactCollapsesNewlines(t *testing.T) {
	got := compact("first\n\n\n\n\nsecond")
	assert.Equal(t, "first\n\nsecond", got)
}

func TestCompactCollapsesSpaces(t *testing.T) {
	got := compact("too    many   spaces here")
	assert.Equal(t, "too many spaces here", got)
}

func TestCompactTrims(t *testing.T) {
	got := compact("  \n padded content here \n  ")
	assert.Equal(t, "padded content here", got)
}

func TestCompactDeduplicatesLongLines(t *testing.T) {
	line := "this line is definitely long enough to deduplicate"
	input := strings.Join([]string{line, "middle", line, strings.ToUpper(line)}, "\n")

	got := compact(input)

	assert.Equal(t, 1, strings.Count(strings.ToLower(got), line),
		"case-insensitive duplicates dropped, first occurrence kept")
	assert.Contains(t, got, "middle")
}

func TestCompactKeepsShortDuplicateLines(t *testing.T) {
	input := "- item\n- item\n- item"
	got := compact(input)
	assert.Equal(t, input, got, "lines under the length floor never deduplicate")
}

func TestCompactNoopInput(t *testing.T) {
	input := "already clean single line"
	assert.Equal(t, input, compact(input))
}
