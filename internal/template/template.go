// Package template provides compact parameterized prompt templates and the
// keyword matcher that classifies free-form system prompts into them.
package template

import (
	"errors"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/optimd/internal/token"
)

// Validation errors.
var (
	ErrEmptyID       = errors.New("template id is required")
	ErrEmptyTemplate = errors.New("template body is required")
	ErrDuplicateID   = errors.New("template id already registered")
)

// Template is a fixed string skeleton with named {{placeholder}} variables.
// Templates are reference data: seeded at startup, optionally extended at
// runtime, never deleted.
type Template struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Template   string   `json:"template"`
	Variables  []string `json:"variables"`
	TokenCount int      `json:"token_count"`
}

// Instantiate fills the template by literal substring replacement of each
// {{name}} placeholder. Variables missing from vars are left in place.
func (t *Template) Instantiate(vars map[string]string) string {
	out := t.Template
	for _, name := range t.Variables {
		if v, ok := vars[name]; ok {
			out = strings.ReplaceAll(out, "{{"+name+"}}", v)
		}
	}
	return out
}

// Registry holds the available templates, keyed by id.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
	order     []string
}

// Builtin template ids.
const (
	IDCodeReview    = "code-review"
	IDDataAnalysis  = "data-analysis"
	IDBugFix        = "bug-fix"
	IDDocumentation = "documentation"
	IDAssistant     = "assistant"
)

// NewRegistry returns a registry seeded with the builtin templates.
func NewRegistry() *Registry {
	r := &Registry{
		templates: make(map[string]*Template),
	}
	for _, t := range builtinTemplates() {
		// Builtin ids are unique, Register cannot fail here.
		_ = r.Register(t)
	}
	return r
}

func builtinTemplates() []*Template {
	return []*Template{
		{
			ID:        IDCodeReview,
			Name:      "Code Review",
			Template:  "Review {{language}} code. Focus: {{focus}}.",
			Variables: []string{"language", "focus"},
		},
		{
			ID:        IDDataAnalysis,
			Name:      "Data Analysis",
			Template:  "Analyze {{format}} data. Goal: {{goal}}.",
			Variables: []string{"format", "goal"},
		},
		{
			ID:        IDBugFix,
			Name:      "Bug Fix",
			Template:  "Fix {{language}} bug: {{symptom}}.",
			Variables: []string{"language", "symptom"},
		},
		{
			ID:        IDDocumentation,
			Name:      "Documentation",
			Template:  "Write {{doc_type}} docs: {{subject}}.",
			Variables: []string{"doc_type", "subject"},
		},
		{
			ID:        IDAssistant,
			Name:      "Assistant",
			Template:  "Task: {{task}}. Be concise.",
			Variables: []string{"task"},
		},
	}
}

// Register adds a template to the registry. The template's TokenCount is
// computed from the skeleton if unset.
func (r *Registry) Register(t *Template) error {
	if t.ID == "" {
		return ErrEmptyID
	}
	if t.Template == "" {
		return ErrEmptyTemplate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.templates[t.ID]; exists {
		return ErrDuplicateID
	}
	if t.TokenCount == 0 {
		t.TokenCount = token.Estimate(t.Template)
	}
	r.templates[t.ID] = t
	r.order = append(r.order, t.ID)
	return nil
}

// Get returns the template with the given id, or nil.
func (r *Registry) Get(id string) *Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates[id]
}

// List returns all templates in registration order.
func (r *Registry) List() []*Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Template, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.templates[id])
	}
	return out
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}
