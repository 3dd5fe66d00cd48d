package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcherRuleOrder(t *testing.T) {
	m := NewMatcher(NewRegistry())

	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{name: "code review", prompt: "Please review this code for bugs", want: IDCodeReview},
		{name: "pr review", prompt: "review the open PR", want: IDCodeReview},
		{name: "data analysis csv", prompt: "analyze the attached CSV file", want: IDDataAnalysis},
		{name: "data analysis json", prompt: "I have data in JSON form", want: IDDataAnalysis},
		{name: "bug fix", prompt: "there is a bug in the parser", want: IDBugFix},
		{name: "error", prompt: "getting an error on startup", want: IDBugFix},
		{name: "fix", prompt: "fix the flaky test", want: IDBugFix},
		{name: "documentation", prompt: "write a README for the project", want: IDDocumentation},
		{name: "guide", prompt: "create a setup guide", want: IDDocumentation},
		{name: "fallback", prompt: "tell me a story about whales", want: IDAssistant},
		{name: "review without code keyword falls through", prompt: "review my essay for errors", want: IDBugFix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := m.Match(tt.prompt)
			require.NotNil(t, match.Template)
			assert.Equal(t, tt.want, match.Template.ID)
		})
	}
}

func TestMatcherTotalCoverage(t *testing.T) {
	m := NewMatcher(NewRegistry())

	// The assistant template is a catch-all: every input matches something.
	for _, prompt := range []string{"", "x", "?!", "completely unrelated text"} {
		match := m.Match(prompt)
		require.NotNil(t, match.Template, "prompt %q must match", prompt)
	}
}

func TestMatcherVariableExtraction(t *testing.T) {
	m := NewMatcher(NewRegistry())

	match := m.Match("Please review this Python code for security issues")
	require.NotNil(t, match.Template)
	assert.Equal(t, IDCodeReview, match.Template.ID)
	assert.Equal(t, "python", match.Vars["language"])
	assert.Equal(t, "security", match.Vars["focus"])
}

func TestMatcherVariableFallback(t *testing.T) {
	m := NewMatcher(NewRegistry())

	// No known language or focus keyword: fall back to the first three words.
	match := m.Match("review this code carefully please")
	require.Equal(t, IDCodeReview, match.Template.ID)
	assert.Equal(t, "review this code", match.Vars["language"])
	assert.Equal(t, "review this code", match.Vars["focus"])
}

func TestMatcherShortKeywordNeedsWordBoundary(t *testing.T) {
	m := NewMatcher(NewRegistry())

	// "go" appears inside "algorithm" but not as a word.
	match := m.Match("review this code implementing the algorithm")
	require.Equal(t, IDCodeReview, match.Template.ID)
	assert.NotEqual(t, "go", match.Vars["language"])

	match = m.Match("review this go code")
	assert.Equal(t, "go", match.Vars["language"])
}
