package template

import (
	"strings"
	"unicode"
)

// Match is the outcome of classifying a prompt: the selected template and
// the variable values extracted for it.
type Match struct {
	Template *Template
	Vars     map[string]string
}

// Matcher classifies prompts with an ordered keyword rule list; the first
// matching rule wins and the assistant template is the unconditional
// catch-all, so every prompt matches something.
type Matcher struct {
	registry *Registry
	vocab    map[string][]string
}

// NewMatcher creates a matcher over the given registry with the default
// variable vocabulary.
func NewMatcher(registry *Registry) *Matcher {
	return &Matcher{
		registry: registry,
		vocab:    defaultVocabulary(),
	}
}

// defaultVocabulary maps a variable name to the keywords that can fill it.
// The first keyword present in the prompt wins. Kept as data, not control
// flow, so new keywords can be added without touching the matcher.
func defaultVocabulary() map[string][]string {
	return map[string][]string{
		"language": {
			"python", "javascript", "typescript", "golang", "go", "java",
			"rust", "ruby", "php", "swift", "kotlin", "scala", "sql",
			"html", "css", "bash", "c++", "c#",
		},
		"focus": {
			"performance", "security", "user", "readability", "memory",
			"concurrency", "style", "correctness",
		},
		"format": {"csv", "json", "excel", "xml", "yaml", "parquet"},
		"tools":  {"web", "file", "database"},
		"doc_type": {
			"readme", "guide", "api", "tutorial", "reference",
		},
	}
}

// Match classifies the prompt. Rules are evaluated top to bottom:
//
//  1. review + (code|pr)                      -> code-review
//  2. (analy|data) + (csv|json|excel)         -> data-analysis
//  3. bug|error|fix                           -> bug-fix
//  4. document|readme|guide                   -> documentation
//  5. anything else                           -> assistant
func (m *Matcher) Match(prompt string) Match {
	p := strings.ToLower(prompt)
	has := func(kw string) bool { return strings.Contains(p, kw) }

	var id string
	switch {
	case has("review") && (has("code") || has("pr")):
		id = IDCodeReview
	case (has("analy") || has("data")) && (has("csv") || has("json") || has("excel")):
		id = IDDataAnalysis
	case has("bug") || has("error") || has("fix"):
		id = IDBugFix
	case has("document") || has("readme") || has("guide"):
		id = IDDocumentation
	default:
		id = IDAssistant
	}

	tmpl := m.registry.Get(id)
	if tmpl == nil {
		// Registry was constructed without builtins; fall through to the
		// assistant catch-all, and give up only if that is missing too.
		tmpl = m.registry.Get(IDAssistant)
	}
	if tmpl == nil {
		return Match{}
	}

	return Match{
		Template: tmpl,
		Vars:     m.extractVariables(tmpl, prompt),
	}
}

// extractVariables scans the lowercased prompt for known vocabulary per
// variable. A variable with no keyword hit falls back to the first three
// whitespace-separated words of the original prompt.
func (m *Matcher) extractVariables(tmpl *Template, prompt string) map[string]string {
	words := promptWords(prompt)
	fallback := firstWords(prompt, 3)

	vars := make(map[string]string, len(tmpl.Variables))
	for _, name := range tmpl.Variables {
		value := fallback
		for _, kw := range m.vocab[name] {
			if _, ok := words[kw]; ok {
				value = kw
				break
			}
		}
		vars[name] = value
	}
	return vars
}

// promptWords returns the set of lowercased words in the prompt, trimmed of
// surrounding punctuation. Word-level matching keeps short keywords like
// "go" from firing inside unrelated words.
func promptWords(prompt string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(prompt))
	words := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '+' && r != '#'
		})
		if w != "" {
			words[w] = struct{}{}
		}
	}
	return words
}

// firstWords returns the first n whitespace-separated words of s.
func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
